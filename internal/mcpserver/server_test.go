package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/aegis/internal/index"
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/testutil"
	"github.com/starford/aegis/internal/vault"
)

func testServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	root := testutil.TestVault(t, files)
	svc, err := vault.New(vault.WithClock(testutil.FixedClock(1700000000)), vault.WithLogger(logger))
	require.NoError(t, err)
	db := testutil.TestDB(t)
	_, err = index.Sync(db, svc, root, logger)
	require.NoError(t, err)
	return New(root, svc, db, logger), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so dispatch to the handlers.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"scan_vault":            srv.scanVault,
		"read_note":             srv.readNote,
		"create_note":           srv.createNote,
		"move_entry":            srv.moveEntry,
		"rename_item":           srv.renameItem,
		"update_links":          srv.updateLinks,
		"search_notes":          srv.searchNotes,
		"list_actions":          srv.listActions,
		"get_backlinks":         srv.getBacklinks,
		"get_vault_conventions": srv.getConventions,
		"save_attachment":       srv.saveAttachment,
	}
	h, ok := handlers[name]
	require.True(t, ok, "unknown tool: %s", name)
	result, err := h(ctx, req)
	require.NoError(t, err, "tool %s", name)
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t, nil)
	tools := srv.MCPServer().ListTools()
	for _, name := range []string{
		"scan_vault", "read_note", "create_note", "move_entry", "rename_item",
		"update_links", "search_notes", "list_actions", "get_backlinks",
		"get_vault_conventions", "save_attachment",
	} {
		assert.Contains(t, tools, name)
	}
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t, nil)

	r := callTool(t, srv, "create_note", map[string]any{
		"path":    "01_Inbox/test.md",
		"content": "# Test\nHello [[other]]",
	})
	require.False(t, r.IsError, resultText(r))

	r = callTool(t, srv, "read_note", map[string]any{"path": "01_Inbox/test.md"})
	assert.Equal(t, "# Test\nHello [[other]]", resultText(r))

	// Indexed right away.
	r = callTool(t, srv, "get_backlinks", map[string]any{"path": "other.md"})
	assert.Equal(t, "01_Inbox/test.md", resultText(r))
}

func TestCreateNoteRejections(t *testing.T) {
	srv, root := testServer(t, map[string]string{"a.md": "keep"})

	for _, args := range []map[string]any{
		{"path": "a.md", "content": "clobber"},
		{"path": "b.txt", "content": "x"},
		{"path": "../escape.md", "content": "x"},
	} {
		r := callTool(t, srv, "create_note", args)
		assert.True(t, r.IsError, "create %v should fail", args["path"])
	}
	assert.Equal(t, "keep", readFile(t, root, "a.md"))
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "read_note", map[string]any{"path": "nope.md"})
	assert.True(t, r.IsError)
	assert.Contains(t, resultText(r), "no such file")
}

func TestReadNoteKeepsOSMessage(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"folder.md/": ""})
	r := callTool(t, srv, "read_note", map[string]any{"path": "folder.md"})
	assert.True(t, r.IsError)
	assert.Contains(t, resultText(r), "is a directory")
	assert.NotContains(t, resultText(r), "not found")
}

func TestScanVault(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"b.md": "body", "A/c.md": "x", ".git/HEAD": "ref"})

	r := callTool(t, srv, "scan_vault", map[string]any{"flat": true})
	var nodes []models.VaultNode
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &nodes))
	var paths []string
	for _, n := range nodes {
		paths = append(paths, n.RelativePath)
		assert.Empty(t, n.Content, "%s content leaked without include_content", n.RelativePath)
	}
	assert.Equal(t, []string{"A", "A/c.md", "b.md"}, paths)

	r = callTool(t, srv, "scan_vault", map[string]any{"include_content": true})
	nodes = nil
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, "body", nodes[1].Content)
	assert.Len(t, nodes[0].Children, 1)
}

func TestMoveEntryUpdatesLinks(t *testing.T) {
	srv, root := testServer(t, map[string]string{
		"01_Inbox/idea.md": "idea",
		"hub.md":           "see [[01_Inbox/idea]]",
		"40_Archive/":      "",
	})

	r := callTool(t, srv, "move_entry", map[string]any{
		"source": "01_Inbox/idea.md", "destination": "40_Archive", "update_links": true,
	})
	require.False(t, r.IsError, resultText(r))
	var res moveResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.Equal(t, "40_Archive/idea.md", res.Path)
	require.NotNil(t, res.FilesModified)
	assert.Equal(t, 1, *res.FilesModified)
	assert.Equal(t, "see [[40_Archive/idea]]", readFile(t, root, "hub.md"))

	_, err := srv.db.GetNote("40_Archive/idea.md")
	assert.NoError(t, err, "index not re-keyed")
}

func TestMoveEntryFolderUpdatesNoteLinks(t *testing.T) {
	srv, root := testServer(t, map[string]string{
		"projects/alpha/a.md": "a",
		"other/alpha.md":      "unrelated",
		"ref.md":              "[[projects/alpha/a]] and [[alpha]]",
		"archive/":            "",
	})

	r := callTool(t, srv, "move_entry", map[string]any{
		"source": "projects/alpha", "destination": "archive", "update_links": true,
	})
	require.False(t, r.IsError, resultText(r))
	assert.Equal(t, "[[archive/alpha/a]] and [[alpha]]", readFile(t, root, "ref.md"))
}

func TestMoveEntryRejectsProtected(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"01_Inbox/": "", "other/": ""})
	r := callTool(t, srv, "move_entry", map[string]any{"source": "01_Inbox", "destination": "other"})
	assert.True(t, r.IsError)
	assert.Contains(t, resultText(r), "protected")
}

func TestRenameItem(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"a.md": "a", "b.md": "b"})

	r := callTool(t, srv, "rename_item", map[string]any{"old_path": "a.md", "new_name": "b.md"})
	assert.True(t, r.IsError, "rename onto existing name should fail")

	r = callTool(t, srv, "rename_item", map[string]any{"old_path": "a.md", "new_name": "c.md"})
	require.False(t, r.IsError, resultText(r))
	var res moveResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.Equal(t, "c.md", res.Path)
}

func TestUpdateLinks(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"x.md": "[[old]] and [[old.md]]"})

	r := callTool(t, srv, "update_links", map[string]any{"old_path": "old.md", "new_path": "dir/new.md"})
	require.False(t, r.IsError, resultText(r))
	var report models.LinkRewriteReport
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &report))
	assert.Equal(t, 1, report.FilesModified)
}

func TestSearchAndActions(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"plan.md": "# Plan\nzebra crossing\n- [ ] buy paint\n- [x] measure road",
	})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "zebra"})
	assert.Contains(t, resultText(r), "plan.md")

	r = callTool(t, srv, "list_actions", map[string]any{})
	assert.Equal(t, "plan.md:3 [ ] buy paint\nplan.md:4 [x] measure road", resultText(r))

	r = callTool(t, srv, "list_actions", map[string]any{"open_only": true})
	assert.Equal(t, "plan.md:3 [ ] buy paint", resultText(r))
}

func TestConventions(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "get_vault_conventions", map[string]any{})
	text := resultText(r)
	assert.Contains(t, text, "- `01_Inbox/`")
	assert.Contains(t, text, "[[stem]]")

	contents, err := srv.readConventionsResource(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, text, tc.Text, "resource text differs from tool output")
}

// Smallest valid PNG header followed by an IHDR chunk.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestSaveAttachment(t *testing.T) {
	srv, root := testServer(t, map[string]string{"attachments/shot.png": "existing"})
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	r := callTool(t, srv, "save_attachment", map[string]any{"data_uri": uri, "filename": "shot.png"})
	require.False(t, r.IsError, resultText(r))
	var res attachmentResult
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &res))
	assert.Equal(t, "attachments/shot_1700000000.png", res.Path)
	assert.Equal(t, "![shot_1700000000.png](/attachments/shot_1700000000.png)", res.MarkdownImage)
	assert.Equal(t, "existing", readFile(t, root, "attachments/shot.png"))
}

func TestSaveAttachmentRejections(t *testing.T) {
	srv, _ := testServer(t, nil)
	png := base64.StdEncoding.EncodeToString(pngBytes)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"not a data uri", map[string]any{"data_uri": "https://example.com/a.png"}},
		{"not base64", map[string]any{"data_uri": "data:image/png,raw"}},
		{"unsupported mime", map[string]any{"data_uri": "data:text/plain;base64,aGk="}},
		{"content mismatch", map[string]any{"data_uri": "data:image/gif;base64," + png}},
		{"extension mismatch", map[string]any{"data_uri": "data:image/png;base64," + png, "filename": "x.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "save_attachment", tt.args)
			assert.True(t, r.IsError, "got %q", resultText(r))
		})
	}
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "my_shot.png", attachmentName("../../etc/my shot.png", ".png"))
	assert.Equal(t, "diagram.svg", attachmentName("diagram", ".svg"))

	got := attachmentName("", ".pdf")
	assert.True(t, len(got) == 36+4 && filepath.Ext(got) == ".pdf", "got %q", got)
}
