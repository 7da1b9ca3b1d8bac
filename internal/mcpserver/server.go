// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes servemd tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/apperr"
	"github.com/starford/servemd/internal/bots"
	"github.com/starford/servemd/internal/converter"
)

// BotsURI is the resource holding the crawler signature table.
const BotsURI = "servemd://bots"

// Previewer renders the Markdown document of an item without serving it.
type Previewer interface {
	Markdown(ctx context.Context, id int64) (string, error)
}

// Server wraps the MCP server with servemd tools.
type Server struct {
	mcp     *server.MCPServer
	preview Previewer
	log     accesslog.Log
}

// New creates a new MCP server with all servemd tools registered.
func New(preview Previewer, log accesslog.Log) *Server {
	s := &Server{preview: preview, log: log}

	s.mcp = server.NewMCPServer(
		"servemd",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_html",
		mcp.WithDescription("Convert an HTML fragment to Markdown headed by a title."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment to convert")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title used for the leading heading")),
	), s.convertHTML)

	s.mcp.AddTool(mcp.NewTool("get_item_markdown",
		mcp.WithDescription("Return the Markdown document served for a content item, "+
			"including its frontmatter. Fails when the item is not eligible."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Item ID")),
	), s.getItemMarkdown)

	s.mcp.AddTool(mcp.NewTool("crawler_stats",
		mcp.WithDescription("Total, today and per-bot counts of Markdown documents served."),
	), s.crawlerStats)

	s.mcp.AddTool(mcp.NewTool("list_access_log",
		mcp.WithDescription("List access log entries, newest first."),
		mcp.WithNumber("page", mcp.Description("Page number (1-based, default 1)")),
		mcp.WithNumber("per_page", mcp.Description("Page size (default 30)")),
		mcp.WithString("bot", mcp.Description("Only entries for this bot name")),
	), s.listAccessLog)

	s.mcp.AddResource(
		mcp.NewResource(BotsURI, "Crawler Signatures",
			mcp.WithResourceDescription("User-agent substrings and the bot names they map to, in match order."),
			mcp.WithMIMEType("application/json"),
		),
		s.readBotsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) convertHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(converter.Convert(src, title)), nil
}

func (s *Server) getItemMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := intArg(req, "id")
	if !ok || id <= 0 {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	doc, err := s.preview.Markdown(ctx, int64(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: item %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc), nil
}

func (s *Server) crawlerStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.log.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listAccessLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, _ := intArg(req, "page")
	perPage, _ := intArg(req, "per_page")
	bot := ""
	if b, err := req.RequireString("bot"); err == nil {
		bot = b
	}
	res, err := s.log.Query(ctx, perPage, page, bot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBotsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(bots.Signatures(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      BotsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

// intArg reads a numeric argument. JSON clients send numbers as float64;
// strings holding digits are accepted too.
func intArg(req mcp.CallToolRequest, key string) (int, bool) {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v), v == float64(int(v))
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
