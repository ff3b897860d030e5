package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/aegis/internal/index"
	"github.com/starford/aegis/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"01_Inbox/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld"`
}

// Validate validates the request.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// SaveNoteRequest is the request body for overwriting a note.
type SaveNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent"`
}

// Validate validates the request.
func (r *SaveNoteRequest) Validate() error { return nil }

// FolderRequest is the request body for creating a folder.
type FolderRequest struct {
	Path string `json:"path" example:"10_Projects/alpha" validate:"required"`
}

// Validate validates the request.
func (r *FolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// RenameRequest is the request body for renaming an entry in place.
type RenameRequest struct {
	OldPath     string `json:"old_path" example:"01_Inbox/a.md" validate:"required"`
	NewName     string `json:"new_name" example:"b.md" validate:"required"`
	UpdateLinks bool   `json:"update_links"`
}

// Validate validates the request.
func (r *RenameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OldPath, validation.Required),
		validation.Field(&r.NewName, validation.Required, validation.By(plainName)),
	)
}

// MoveRequest is the request body for moving an entry into a folder.
// An empty destination is the vault root.
type MoveRequest struct {
	Source      string `json:"source" example:"01_Inbox/a.md" validate:"required"`
	Destination string `json:"destination" example:"40_Archive"`
	UpdateLinks bool   `json:"update_links"`
}

// Validate validates the request.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Source, validation.Required),
	)
}

// LinksRequest is the request body for a link-update pass.
type LinksRequest struct {
	OldPath string `json:"old_path" example:"01_Inbox/a.md" validate:"required"`
	NewPath string `json:"new_path" example:"40_Archive/a.md" validate:"required"`
}

// Validate validates the request.
func (r *LinksRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OldPath, validation.Required),
		validation.Field(&r.NewPath, validation.Required),
	)
}

// ImportRequest is the request body for copying an outside file into the vault.
type ImportRequest struct {
	Source       string `json:"source" example:"/home/me/Downloads/report.xlsx" validate:"required"`
	TargetFolder string `json:"target_folder" example:"10_Projects"`
}

// Validate validates the request.
func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Source, validation.Required),
	)
}

// OpenRequest is the request body for opening an entry with the OS handler.
type OpenRequest struct {
	Path string `json:"path" example:"10_Projects/report.xlsx" validate:"required"`
}

// Validate validates the request.
func (r *OpenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// SettingRequest is the request body for storing a setting.
type SettingRequest struct {
	Value string `json:"value" example:"dark"`
}

// Validate validates the request.
func (r *SettingRequest) Validate() error { return nil }

func plainName(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) {
		return validation.NewError("validation_plain_name", "must be a plain name without separators")
	}
	return nil
}

// TreeResponse wraps a vault scan.
type TreeResponse struct {
	Status string             `json:"status" example:"OK"`
	Nodes  []models.VaultNode `json:"nodes"`
}

// NoteResponse is a note read or write result.
type NoteResponse struct {
	Status   string `json:"status" example:"OK"`
	Path     string `json:"path" example:"01_Inbox/hello.md"`
	Content  string `json:"content,omitempty"`
	Checksum string `json:"checksum,omitempty" example:"abc123..."`
}

// MoveResponse is returned by rename and move.
type MoveResponse struct {
	Status        string `json:"status" example:"OK"`
	Path          string `json:"path" example:"40_Archive/a.md"`
	FilesModified *int   `json:"files_modified,omitempty"`
}

// LinksResponse is returned by a link-update pass.
type LinksResponse struct {
	Status string `json:"status" example:"OK"`
	models.LinkRewriteReport
}

// TokenResponse carries a fixed status token from the probe endpoints.
type TokenResponse struct {
	Status string `json:"status" example:"OK"`
	Result string `json:"result" example:"CONNEXION_OK"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func toSearchResults(in []index.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{Path: r.Path, Title: r.Title, Snippet: r.Snippet}
	}
	return out
}

// BacklinksResponse lists the notes that link to Path.
type BacklinksResponse struct {
	Path      string   `json:"path"`
	Backlinks []string `json:"backlinks"`
}

// ActionsResponse wraps task items.
type ActionsResponse struct {
	Actions []models.Action `json:"actions"`
}

// SettingResponse is one stored setting.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Status string `json:"status" example:"OK"`
	Path   string `json:"path" example:"attachments/image.png" validate:"required"`
	Size   int64  `json:"size" example:"12345" validate:"required"`
	URL    string `json:"url" example:"/api/files/attachments/image.png" validate:"required"`
}
