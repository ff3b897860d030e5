// Package models defines the domain types for Aegis.
package models

import "time"

// StatusOK is the success token returned by every mutating vault operation.
const StatusOK = "OK"

// VaultNode is one filesystem entry under a vault root.
//
// Children is only populated for directories and is sorted case-insensitively.
// Content is only populated for Markdown files.
type VaultNode struct {
	Name         string      `json:"name"`
	RelativePath string      `json:"path"`
	IsDirectory  bool        `json:"is_dir"`
	Extension    string      `json:"extension"`
	Content      string      `json:"content"`
	Children     []VaultNode `json:"children"`
}

// IsMarkdown reports whether the node is a Markdown note.
func (n VaultNode) IsMarkdown() bool {
	return !n.IsDirectory && n.Extension == "md"
}

// OperationResult is the outcome of a single vault request.
type OperationResult struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// LinkRewriteReport counts the files touched by a link-update pass.
type LinkRewriteReport struct {
	FilesModified int `json:"files_modified"`
}

// Action is a task item parsed from a note body.
type Action struct {
	ID       int64     `json:"id"`
	NotePath string    `json:"note_path"`
	Line     int       `json:"line"`
	Text     string    `json:"text"`
	Done     bool      `json:"done"`
	SyncedAt time.Time `json:"synced_at"`
}
