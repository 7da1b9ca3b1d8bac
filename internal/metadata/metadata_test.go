package metadata

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestScalar(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{true, "true"},
		{false, "false"},
		{nil, "null"},
		{42, "42"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{"plain", "plain"},
		{"", "''"},
		{"a: b", "'a: b'"},
		{"it's #1", "'it''s #1'"},
		{"line\nbreak", "'line\nbreak'"},
		{"x,y", "'x,y'"},
		{"`tick`", "'`tick`'"},
		{"50%", "'50%'"},
	}
	for _, c := range cases {
		if got := Scalar(c.in); got != c.want {
			t.Errorf("Scalar(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSerialize_NestedAndSequence(t *testing.T) {
	author := NewMap()
	author.Set("name", "Ana")
	author.Set("url", "https://example.com/author/ana/")

	m := NewMap()
	m.Set("title", "Hello")
	m.Set("author", author)
	m.Set("tags", []string{"go", "web dev"})
	m.Set("published", true)

	want := "title: Hello\n" +
		"author:\n" +
		"  name: Ana\n" +
		"  url: 'https://example.com/author/ana/'\n" +
		"tags:\n" +
		"  - go\n" +
		"  - web dev\n" +
		"published: true\n"
	if got := Serialize(m); got != want {
		t.Errorf("Serialize =\n%s\nwant\n%s", got, want)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	build := func() *Map {
		m := NewMap()
		m.Set("b", "two")
		m.Set("a", 1)
		m.Set("c", []any{"x", 2, false})
		return m
	}
	first := Serialize(build())
	for i := 0; i < 20; i++ {
		if got := Serialize(build()); got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestSet_OverwriteKeepsPosition(t *testing.T) {
	m := NewMap()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)
	if got := Serialize(m); got != "a: 3\nb: 2\n" {
		t.Errorf("got %q", got)
	}
}

func TestBlock_EmptyMap(t *testing.T) {
	if got := Block(NewMap()); got != "" {
		t.Errorf("Block(empty) = %q, want empty", got)
	}
	if got := Block(nil); got != "" {
		t.Errorf("Block(nil) = %q, want empty", got)
	}
}

func TestSerialize_ParsesAsYAML(t *testing.T) {
	author := NewMap()
	author.Set("name", "O'Brien")
	m := NewMap()
	m.Set("title", "Colons: everywhere, [really]")
	m.Set("date", "2024-01-02T10:00:00+00:00")
	m.Set("author", author)
	m.Set("tags", []string{"a,b", "c"})
	m.Set("empty", "")

	var out map[string]any
	if err := yaml.Unmarshal([]byte(Serialize(m)), &out); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if out["title"] != "Colons: everywhere, [really]" {
		t.Errorf("title = %v", out["title"])
	}
	if out["date"] != "2024-01-02T10:00:00+00:00" {
		t.Errorf("date = %v", out["date"])
	}
	if a, ok := out["author"].(map[string]any); !ok || a["name"] != "O'Brien" {
		t.Errorf("author = %v", out["author"])
	}
	if tags, ok := out["tags"].([]any); !ok || len(tags) != 2 || tags[0] != "a,b" {
		t.Errorf("tags = %v", out["tags"])
	}
	if out["empty"] != "" {
		t.Errorf("empty = %#v", out["empty"])
	}
}
