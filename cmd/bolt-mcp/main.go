// Command bolt-mcp exposes BOLT history to assistants over MCP stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/bolt/internal/backend"
	"github.com/jwulff/bolt/internal/config"
	"github.com/jwulff/bolt/internal/db"
	"github.com/jwulff/bolt/internal/domain"
	"github.com/jwulff/bolt/internal/history"
	"github.com/jwulff/bolt/internal/logging"
)

var version = "0.1.0-dev"

const defaultListLimit = 50

func main() {
	configPath := flag.String("config", "bolt.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bolt-mcp: %v\n", err)
		os.Exit(1)
	}

	store, err := db.OpenReadOnly(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bolt-mcp: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	h := &handlers{
		store:   store,
		backend: backend.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout()),
	}

	s := server.NewMCPServer("bolt", version, server.WithToolCapabilities(false))
	h.register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "bolt-mcp: %v\n", err)
		os.Exit(1)
	}
}

// historyReader is the read side of *db.Store.
type historyReader interface {
	ListEntries(f db.Filter) ([]domain.HistoryEntry, error)
	GetEntry(id string) (domain.HistoryEntry, error)
}

type healthChecker interface {
	Health(ctx context.Context) error
	BaseURL() string
}

type handlers struct {
	store   historyReader
	backend healthChecker
}

func (h *handlers) register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List recognized text from BOLT sessions, newest first."),
		mcp.WithString("type",
			mcp.Description("Restrict to one capture mode"),
			mcp.Enum(string(domain.EntryLipReading), string(domain.EntryGesture)),
		),
		mcp.WithBoolean("saved_only", mcp.Description("Only entries the user saved")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 50)")),
	), h.listHistory)

	s.AddTool(mcp.NewTool("get_history_entry",
		mcp.WithDescription("Get the full text of one history entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id from list_history")),
	), h.getEntry)

	s.AddTool(mcp.NewTool("export_history",
		mcp.WithDescription("Export history as plain text with timestamp and confidence headers."),
		mcp.WithString("type",
			mcp.Description("Restrict to one capture mode"),
			mcp.Enum(string(domain.EntryLipReading), string(domain.EntryGesture)),
		),
		mcp.WithBoolean("saved_only", mcp.Description("Only entries the user saved")),
	), h.exportHistory)

	s.AddTool(mcp.NewTool("backend_status",
		mcp.WithDescription("Check whether the inference backend is reachable."),
	), h.backendStatus)
}

func (h *handlers) filter(req mcp.CallToolRequest) (db.Filter, error) {
	f := db.Filter{
		Type:      domain.EntryType(req.GetString("type", "")),
		SavedOnly: req.GetBool("saved_only", false),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("unknown type %q", f.Type)
	}
	return f, nil
}

func (h *handlers) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := h.filter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f.Limit = req.GetInt("limit", defaultListLimit)

	entries, err := h.store.ListEntries(f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list history: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No history entries."), nil
	}

	var b strings.Builder
	for _, e := range entries {
		conf := e.ConfidenceLabel()
		if e.Confidence != nil {
			conf += "%"
		}
		saved := ""
		if e.IsSaved {
			saved = " [saved]"
		}
		fmt.Fprintf(&b, "%s  %s  %s  conf=%s%s\n  %s\n",
			e.ID, e.Timestamp(), e.Type, conf, saved, strings.ReplaceAll(e.Text, "\n", "\n  "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := h.store.GetEntry(id)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no entry with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get entry: %v", err)), nil
	}
	return mcp.NewToolResultText(string(history.DownloadAsText(e).Data)), nil
}

func (h *handlers) exportHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := h.filter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := h.store.ListEntries(f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export history: %v", err)), nil
	}
	// The snapshot store renders the same bulk format as the TUI download.
	snapshot := history.New(logging.Discard(), entries)
	return mcp.NewToolResultText(string(snapshot.DownloadAll().Data)), nil
}

func (h *handlers) backendStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.backend.Health(ctx); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Backend at %s is unavailable: %v", h.backend.BaseURL(), err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Backend at %s is running.", h.backend.BaseURL())), nil
}
