// Package converter rewrites rendered HTML fragments into Markdown using a
// fixed sequence of text-substitution passes.
//
// The passes are regex based and tolerate malformed markup: a tag that does
// not match its pattern is removed by the final tag strip instead of being
// converted.
package converter

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	preCodeRe    = regexp.MustCompile(`(?is)<pre[^>]*><code[^>]*>(.*?)</code></pre>`)
	preRe        = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	codeRe       = regexp.MustCompile(`(?is)<code[^>]*>(.*?)</code>`)
	imgAltSrcRe  = regexp.MustCompile(`(?is)<img[^>]+alt=["']([^"']*)["'][^>]+src=["']([^"']*)["'][^>]*/?>`)
	imgSrcAltRe  = regexp.MustCompile(`(?is)<img[^>]+src=["']([^"']*)["'][^>]+alt=["']([^"']*)["'][^>]*/?>`)
	imgSrcRe     = regexp.MustCompile(`(?is)<img[^>]+src=["']([^"']*)["'][^>]*/?>`)
	anchorRe     = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*)["'][^>]*>(.*?)</a>`)
	boldOpenRe   = regexp.MustCompile(`(?i)<(strong|b)>`)
	italicOpenRe = regexp.MustCompile(`(?i)<(em|i)>`)
	strikeOpenRe = regexp.MustCompile(`(?i)<(del|s|strike)>`)
	quoteRe      = regexp.MustCompile(`(?is)<blockquote[^>]*>(.*?)</blockquote>`)
	listOpenRe   = regexp.MustCompile(`(?i)<(?:ul|ol)[^>]*>`)
	listCloseRe  = regexp.MustCompile(`(?i)</(?:ul|ol)>`)
	itemRe       = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	hrRe         = regexp.MustCompile(`(?i)<hr[^>]*/?>`)
	paragraphRe  = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	breakRe      = regexp.MustCompile(`(?i)<br[^>]*/?>`)
	figureRe     = regexp.MustCompile(`(?i)</?figure[^>]*>`)
	captionRe    = regexp.MustCompile(`(?is)<figcaption[^>]*>(.*?)</figcaption>`)
	tableRe      = regexp.MustCompile(`(?is)<table[^>]*>(.*?)</table>`)
	rowRe        = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellRe       = regexp.MustCompile(`(?is)<(?:td|th)[^>]*>(.*?)</(?:td|th)>`)
	commentRe    = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagRe        = regexp.MustCompile(`(?s)<(?:/?[a-zA-Z]|[!?])[^>]*>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)

	headingRes = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, 7)
		for level := 1; level <= 6; level++ {
			n := strconv.Itoa(level)
			out[level] = regexp.MustCompile(`(?is)<h` + n + `[^>]*>(.*?)</h` + n + `>`)
		}
		return out
	}()
)

// Sentinel delimiters for verbatim placeholders. Private-use code points do
// not occur in rendered content and survive every later pass untouched.
const (
	sentinelOpen  = "\uE000PREBLOCK_"
	sentinelClose = "\uE001"
)

// Convert turns an HTML fragment into a Markdown document body headed by
// "# title". The result always ends with a single newline.
func Convert(htmlSrc, title string) string {
	body := Body(htmlSrc)
	// An empty body still yields the heading.
	if body == "" {
		return "# " + title + "\n"
	}
	return "# " + title + "\n\n" + body + "\n"
}

// Body runs every conversion pass over htmlSrc and returns the trimmed
// Markdown without a title heading.
func Body(htmlSrc string) string {
	md := strings.TrimSpace(htmlSrc)
	if md == "" {
		return ""
	}

	md, blocks := ProtectVerbatim(md)
	md = InlineCode(md)
	md = Headings(md)
	md = Images(md)
	md = Anchors(md)
	md = Emphasis(md)
	md = Blockquotes(md)
	md = Lists(md)
	md = HorizontalRules(md)
	md = Paragraphs(md)
	md = Figures(md)
	md = Tables(md)
	md = html.UnescapeString(StripTags(md))
	md = RestoreVerbatim(md, blocks)
	md = blankRunRe.ReplaceAllString(md, "\n\n")

	return strings.TrimSpace(md)
}

// ProtectVerbatim replaces <pre><code> and bare <pre> blocks with sentinel
// tokens and returns the fenced replacements in token order.
func ProtectVerbatim(s string) (string, []string) {
	var blocks []string
	fence := func(groups []string) string {
		code := html.UnescapeString(StripTags(groups[1]))
		token := sentinelOpen + strconv.Itoa(len(blocks)) + sentinelClose
		blocks = append(blocks, "\n```\n"+code+"\n```\n")
		return token
	}
	s = replaceSubmatch(preCodeRe, s, fence)
	s = replaceSubmatch(preRe, s, fence)
	return s, blocks
}

// RestoreVerbatim swaps sentinel tokens back for their fenced blocks.
func RestoreVerbatim(s string, blocks []string) string {
	for i, block := range blocks {
		s = strings.ReplaceAll(s, sentinelOpen+strconv.Itoa(i)+sentinelClose, block)
	}
	return s
}

// InlineCode wraps <code> spans in backticks.
func InlineCode(s string) string {
	return codeRe.ReplaceAllString(s, "`${1}`")
}

// Headings converts h6 through h1, highest level first.
func Headings(s string) string {
	for level := 6; level >= 1; level-- {
		s = headingRes[level].ReplaceAllString(s, "\n"+strings.Repeat("#", level)+" ${1}\n")
	}
	return s
}

// Images converts <img> tags; alt-before-src, src-before-alt and src-only
// forms are tried in that order.
func Images(s string) string {
	s = imgAltSrcRe.ReplaceAllString(s, "![${1}](${2})")
	s = imgSrcAltRe.ReplaceAllString(s, "![${2}](${1})")
	return imgSrcRe.ReplaceAllString(s, "![](${1})")
}

// Anchors converts <a href> elements to inline links.
func Anchors(s string) string {
	return anchorRe.ReplaceAllString(s, "[${2}](${1})")
}

// Emphasis converts bold, italic and strikethrough pairs. The closing tag
// must carry the same name as the opening one.
func Emphasis(s string) string {
	s = replacePaired(s, boldOpenRe, "**")
	s = replacePaired(s, italicOpenRe, "*")
	return replacePaired(s, strikeOpenRe, "~~")
}

// Blockquotes strips inner tags and prefixes each non-empty line with "> ".
func Blockquotes(s string) string {
	return replaceSubmatch(quoteRe, s, func(groups []string) string {
		lines := strings.Split(strings.TrimSpace(StripTags(groups[1])), "\n")
		for i, l := range lines {
			l = strings.TrimSpace(l)
			if l != "" {
				l = "> " + l
			}
			lines[i] = l
		}
		return "\n" + strings.Join(lines, "\n") + "\n"
	})
}

// Lists turns list containers into blank lines and items into "- " lines.
// Ordered lists are not numbered.
func Lists(s string) string {
	s = listOpenRe.ReplaceAllString(s, "\n")
	s = listCloseRe.ReplaceAllString(s, "\n")
	return itemRe.ReplaceAllString(s, "- ${1}\n")
}

// HorizontalRules converts <hr>.
func HorizontalRules(s string) string {
	return hrRe.ReplaceAllString(s, "\n---\n")
}

// Paragraphs converts <p> blocks and <br> hard breaks.
func Paragraphs(s string) string {
	s = paragraphRe.ReplaceAllString(s, "\n${1}\n")
	return breakRe.ReplaceAllString(s, "  \n")
}

// Figures drops figure wrappers and italicizes captions.
func Figures(s string) string {
	s = figureRe.ReplaceAllString(s, "\n")
	return captionRe.ReplaceAllString(s, "*${1}*\n")
}

// Tables converts each <table> into pipe rows, treating the first row as the
// header. Tables without rows are left as they were.
func Tables(s string) string {
	return replaceSubmatch(tableRe, s, func(groups []string) string {
		rows := rowRe.FindAllStringSubmatch(groups[1], -1)
		if len(rows) == 0 {
			return groups[0]
		}
		var b strings.Builder
		b.WriteString("\n")
		for i, row := range rows {
			var cells []string
			for _, cell := range cellRe.FindAllStringSubmatch(row[1], -1) {
				cells = append(cells, strings.TrimSpace(StripTags(cell[1])))
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			if i == 0 {
				sep := make([]string, len(cells))
				for j := range sep {
					sep[j] = "---"
				}
				b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
			}
		}
		b.WriteString("\n")
		return b.String()
	})
}

// StripTags removes comments and anything that looks like a tag.
func StripTags(s string) string {
	s = commentRe.ReplaceAllString(s, "")
	return tagRe.ReplaceAllString(s, "")
}

// replaceSubmatch is ReplaceAllStringFunc with access to capture groups.
func replaceSubmatch(re *regexp.Regexp, s string, fn func(groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range matches {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// replacePaired wraps the content between an opening tag matched by open and
// the first closing tag with the same name. Openers without a closer are
// skipped.
func replacePaired(s string, open *regexp.Regexp, wrap string) string {
	lower := asciiLower(s)
	var b strings.Builder
	pos := 0
	for pos < len(s) {
		loc := open.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		closing := "</" + lower[pos+loc[2]:pos+loc[3]] + ">"
		idx := strings.Index(lower[end:], closing)
		if idx < 0 {
			b.WriteString(s[pos : start+1])
			pos = start + 1
			continue
		}
		b.WriteString(s[pos:start])
		b.WriteString(wrap + s[end:end+idx] + wrap)
		pos = end + idx + len(closing)
	}
	b.WriteString(s[pos:])
	return b.String()
}

// asciiLower lowercases ASCII letters only so byte offsets stay aligned with s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
