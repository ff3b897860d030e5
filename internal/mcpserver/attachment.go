package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/aegis/internal/vault"
)

const (
	attachDir     = "attachments"
	maxAssetBytes = 10 << 20 // 10 MB
)

var (
	mimeToExt = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

type attachmentResult struct {
	Path          string `json:"path"`
	MarkdownImage string `json:"markdownImage"`
}

func (s *Server) saveAttachment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("data_uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxAssetBytes {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxAssetBytes)), nil
	}

	name := attachmentName(req.GetString("filename", ""), ext)
	if got := strings.ToLower(filepath.Ext(name)); got != ext && !(ext == ".jpg" && got == ".jpeg") {
		return mcp.NewToolResultError(fmt.Sprintf("file name %s does not match content type %s", name, ext)), nil
	}
	if err := checkMagic(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dir, err := vault.Resolve(s.root, attachDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name = s.vault.UniqueName(dir, name)
	if err := s.vault.SaveBinary(filepath.Join(dir, name), data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save attachment: %v", err)), nil
	}

	rel := path.Join(attachDir, name)
	out, _ := json.Marshal(attachmentResult{
		Path:          rel,
		MarkdownImage: fmt.Sprintf("![%s](/%s)", name, rel),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI and returns the
// payload with the extension for its MIME type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// attachmentName strips separators and unsafe characters, falling back to a
// UUID when nothing usable is left.
func attachmentName(name, ext string) string {
	name = unsafeNameRe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == "_" || strings.Trim(name, "._") == "" {
		return uuid.NewString() + ext
	}
	if filepath.Ext(name) == "" {
		name += ext
	}
	return name
}

// checkMagic verifies that the content matches the declared type.
func checkMagic(data []byte, ext string) error {
	if ext == ".svg" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if mimeToExt[detected] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
