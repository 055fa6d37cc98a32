// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the daily log to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dailylog/internal/apperr"
	"github.com/starford/dailylog/internal/diary"
	"github.com/starford/dailylog/internal/models"
)

// EntryFormatURI is the resource URI of the entry format description.
const EntryFormatURI = "dailylog://entry-format"

// ActivityLister reads the activity journal.
type ActivityLister interface {
	ListActivity(date string, limit int) ([]models.Activity, error)
}

// Server wraps the MCP server with daily log tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *diary.Service
	activity ActivityLister
}

// New creates a new MCP server with all daily log tools registered.
func New(svc *diary.Service, activity ActivityLister) *Server {
	s := &Server{svc: svc, activity: activity}

	s.mcp = server.NewMCPServer(
		"dailylog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_diary",
		mcp.WithDescription("Read the daily log for a date. The log lists the notes "+
			"created and edited that day. See the "+EntryFormatURI+" resource for the line format."),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (default: today)")),
	), s.readDiary)

	s.mcp.AddTool(mcp.NewTool("list_activity",
		mcp.WithDescription("List recorded create/edit activity, newest first."),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (empty for all days)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows (default 100)")),
	), s.listActivity)

	s.mcp.AddTool(mcp.NewTool("log_change",
		mcp.WithDescription("Record that a Markdown note was created or modified, "+
			"updating today's daily log."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note (e.g. folder/note.md)")),
		mcp.WithString("kind", mcp.Required(), mcp.Enum("created", "modified"), mcp.Description("Kind of change")),
	), s.logChange)

	s.mcp.AddResource(
		mcp.NewResource(EntryFormatURI, "Daily Log Entry Format",
			mcp.WithResourceDescription("Layout of the daily log and of its entry lines."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readDiary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := s.svc.Now()
	if raw := req.GetString("date", ""); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, day.Location())
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		day = t
	}
	path, text, err := s.svc.Read(ctx, day)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no daily log: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := req.GetString("date", "")
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
	}
	rows, err := s.activity.ListActivity(date, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) logChange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawKind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, ok := models.ParseKind(rawKind)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q (want created or modified)", rawKind)), nil
	}

	out, err := s.svc.Record(ctx, models.ChangeEvent{Path: path, Kind: kind})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch out.Status {
	case diary.StatusSkipped:
		return mcp.NewToolResultText(fmt.Sprintf("skipped: %s", out.Reason)), nil
	case diary.StatusUnchanged:
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %s", out.DiaryPath)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("updated: %s", out.DiaryPath)), nil
	}
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EntryFormatURI,
			MIMEType: "text/markdown",
			Text:     EntryFormat(s.svc.Settings()),
		},
	}, nil
}
