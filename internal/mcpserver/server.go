// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/aegis/internal/index"
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/vault"
)

const conventionsURI = "aegis://vault-conventions"

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp    *server.MCPServer
	root   string
	vault  *vault.Service
	db     index.NoteIndex
	logger *slog.Logger
}

// New creates a new MCP server with all vault tools registered.
func New(root string, svc *vault.Service, db index.NoteIndex, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{root: root, vault: svc, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"Aegis",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("scan_vault",
		mcp.WithDescription("List every file and folder in the vault, sorted case-insensitively. "+
			"Hidden and system entries are skipped."),
		mcp.WithBoolean("flat", mcp.Description("Return a flat depth-first list instead of a tree")),
		mcp.WithBoolean("include_content", mcp.Description("Embed the text of Markdown notes")),
	), s.scanVault)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note (e.g. 01_Inbox/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note, creating missing folders. "+
			"Refuses to overwrite an existing file. Read the conventions first via "+
			"get_vault_conventions or the "+conventionsURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("move_entry",
		mcp.WithDescription("Move a file or folder into another folder. A same-named entry at the "+
			"destination is never overwritten; the moved entry gets a timestamped name."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Vault-relative path of the entry to move")),
		mcp.WithString("destination", mcp.Description("Vault-relative destination folder (empty for the vault root)")),
		mcp.WithBoolean("update_links", mcp.Description("Rewrite [[wikilinks]] that point at the old location")),
	), s.moveEntry)

	s.mcp.AddTool(mcp.NewTool("rename_item",
		mcp.WithDescription("Rename a file or folder in place. Fails if the new name is taken."),
		mcp.WithString("old_path", mcp.Required(), mcp.Description("Vault-relative path of the entry")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New file or folder name, without separators")),
		mcp.WithBoolean("update_links", mcp.Description("Rewrite [[wikilinks]] that point at the old name")),
	), s.renameItem)

	s.mcp.AddTool(mcp.NewTool("update_links",
		mcp.WithDescription("Rewrite [[wikilinks]] across the vault from an old note path to a new one."),
		mcp.WithString("old_path", mcp.Required(), mcp.Description("Previous vault-relative path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("Current vault-relative path")),
	), s.updateLinks)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content, titles and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List task items (- [ ] / - [x]) found in notes."),
		mcp.WithString("note", mcp.Description("Only tasks from this note")),
		mcp.WithBoolean("open_only", mcp.Description("Skip completed tasks")),
	), s.listActions)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_vault_conventions",
		mcp.WithDescription("Returns the vault layout, note format and linking conventions. "+
			"Call this before creating or reorganising notes."),
	), s.getConventions)

	s.mcp.AddTool(mcp.NewTool("save_attachment",
		mcp.WithDescription("Store a base64 data URI (image or PDF) in attachments/. "+
			"Returns a markdownImage field ready to paste into a note."),
		mcp.WithString("data_uri", mcp.Required(), mcp.Description("data:<mime>;base64,<payload>")),
		mcp.WithString("filename", mcp.Description("Preferred file name; derived from the MIME type when empty")),
	), s.saveAttachment)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Vault Conventions",
			mcp.WithResourceDescription("Folder layout, note format and wikilink rules for this vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) scanVault(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		nodes []models.VaultNode
		err   error
	)
	if req.GetBool("flat", false) {
		nodes, err = s.vault.ScanFlat(s.root)
	} else {
		nodes, err = s.vault.Scan(s.root)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !req.GetBool("include_content", false) {
		stripContent(nodes)
	}
	return jsonResult(nodes)
}

func stripContent(nodes []models.VaultNode) {
	for i := range nodes {
		nodes[i].Content = ""
		stripContent(nodes[i].Children)
	}
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	abs, err := vault.Resolve(s.root, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.vault.ReadNote(abs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) createNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return mcp.NewToolResultError(fmt.Sprintf("note path must end with .md: %s", path)), nil
	}
	abs, err := vault.Resolve(s.root, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path)), nil
	}
	if err := s.vault.CreateNote(abs, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rel := vault.Relative(s.root, abs)
	if s.db != nil {
		if err := index.IndexNote(s.db, rel, content, time.Now()); err != nil {
			s.logger.Warn("mcp: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", rel)), nil
}

type moveResult struct {
	Status        string `json:"status"`
	Path          string `json:"path"`
	FilesModified *int   `json:"files_modified,omitempty"`
}

func (s *Server) moveEntry(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	src, err := vault.Resolve(s.root, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	oldRel := vault.Relative(s.root, src)
	if oldRel == "" {
		return mcp.NewToolResultError("cannot move the vault root"), nil
	}
	dst, err := vault.Resolve(s.root, req.GetString("destination", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.vault.Move(src, dst)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.afterMove(oldRel, vault.Relative(s.root, target), req.GetBool("update_links", false))
}

func (s *Server) renameItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath, err := req.RequireString("old_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	abs, err := vault.Resolve(s.root, oldPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	oldRel := vault.Relative(s.root, abs)
	newRel, err := s.vault.Rename(s.root, oldRel, newName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.afterMove(oldRel, newRel, req.GetBool("update_links", false))
}

// afterMove re-keys the index and optionally rewrites links.
func (s *Server) afterMove(oldRel, newRel string, updateLinks bool) (*mcp.CallToolResult, error) {
	res := moveResult{Status: models.StatusOK, Path: newRel}
	if oldRel == newRel {
		return jsonResult(res)
	}
	if s.db != nil {
		if _, err := s.db.MovePath(oldRel, newRel); err != nil {
			s.logger.Warn("mcp: index move failed",
				slog.String("from", oldRel),
				slog.String("to", newRel),
				slog.String("error", err.Error()))
		}
	}
	if updateLinks {
		report, err := s.vault.RewriteMovedLinks(s.root, oldRel, newRel)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("moved to %s but link update failed after %d files: %v",
				newRel, report.FilesModified, err)), nil
		}
		n := report.FilesModified
		res.FilesModified = &n
	}
	return jsonResult(res)
}

func (s *Server) updateLinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath, err := req.RequireString("old_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, p := range []string{oldPath, newPath} {
		if _, err := vault.Resolve(s.root, p); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	report, err := s.vault.RewriteLinks(s.root, oldPath, newPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError("index not available"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listActions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError("index not available"), nil
	}
	f := index.ActionFilter{OpenOnly: req.GetBool("open_only", false)}
	if note := req.GetString("note", ""); note != "" {
		f.NotePath = vault.NormalizeRel(note)
	}
	actions, err := s.db.ListActions(f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(actions) == 0 {
		return mcp.NewToolResultText("no actions found"), nil
	}
	var b strings.Builder
	for _, a := range actions {
		box := " "
		if a.Done {
			box = "x"
		}
		fmt.Fprintf(&b, "%s:%d [%s] %s\n", a.NotePath, a.Line, box, a.Text)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError("index not available"), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(vault.NormalizeRel(path))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Conventions(s.vault.ProtectedFolders())), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     Conventions(s.vault.ProtectedFolders()),
		},
	}, nil
}
