package api

import (
	"net/http"
	"strings"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/checksum"
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/vault"
)

// Tree handles GET /api/vault/tree.
//
//	@Summary		Scan the vault as a tree
//	@Tags			vault
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/vault/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.vault.Scan(h.root)
	if err != nil {
		h.writeError(w, "scan vault", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Status: models.StatusOK, Nodes: nodes})
}

// List handles GET /api/vault/list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.vault.ScanFlat(h.root)
	if err != nil {
		h.writeError(w, "scan vault", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Status: models.StatusOK, Nodes: nodes})
}

// ReadNote handles GET /api/notes/*.
//
//	@Summary		Read a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) ReadNote(w http.ResponseWriter, r *http.Request) {
	rel, abs, ok := h.resolveWildcard(w, r, "read note")
	if !ok {
		return
	}
	content, err := h.vault.ReadNote(abs)
	if err != nil {
		h.writeError(w, "read note", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{
		Status:   models.StatusOK,
		Path:     rel,
		Content:  content,
		Checksum: checksum.String(content),
	})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note, creating missing parent folders
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	abs, err := vault.Resolve(h.root, req.Path)
	if err != nil {
		h.writeError(w, "create note", err)
		return
	}
	if err := h.vault.CreateNote(abs, req.Content); err != nil {
		h.writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{
		Status:   models.StatusOK,
		Path:     vault.Relative(h.root, abs),
		Checksum: checksum.String(req.Content),
	})
}

// SaveNote handles PUT /api/notes/*.
//
// An If-Match header carrying the checksum from a previous read turns the save
// into a compare-and-swap; a stale checksum gets 409. The checksum covers the
// decoded text ReadNote returns.
//
//	@Summary		Overwrite a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string			true	"Note path"
//	@Param			If-Match	header		string			false	"Expected checksum"
//	@Param			body		body		SaveNoteRequest	true	"New content"
//	@Success		200			{object}	NoteResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	rel, abs, ok := h.resolveWildcard(w, r, "save note")
	if !ok {
		return
	}
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if want := strings.Trim(r.Header.Get("If-Match"), `"`); want != "" {
		current, err := h.vault.ReadNote(abs)
		if err != nil {
			h.writeError(w, "save note", err)
			return
		}
		if checksum.String(current) != want {
			h.writeError(w, "save note", apperr.New(apperr.KindConflict, "save note", rel,
				"note changed since it was read: "+rel))
			return
		}
	}
	if err := h.vault.SaveNote(abs, req.Content); err != nil {
		h.writeError(w, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{
		Status:   models.StatusOK,
		Path:     rel,
		Checksum: checksum.String(req.Content),
	})
}

// DeleteNote handles DELETE /api/notes/*.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	rel, abs, ok := h.resolveWildcard(w, r, "delete note")
	if !ok {
		return
	}
	if err := h.vault.DeleteNote(abs); err != nil {
		h.writeError(w, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OperationResult{Status: models.StatusOK, Path: rel})
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	abs, err := vault.Resolve(h.root, req.Path)
	if err != nil {
		h.writeError(w, "create folder", err)
		return
	}
	if err := h.vault.CreateFolder(abs); err != nil {
		h.writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.OperationResult{
		Status: models.StatusOK,
		Path:   vault.Relative(h.root, abs),
	})
}

// DeleteFolder handles DELETE /api/folders/*.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	rel, abs, ok := h.resolveWildcard(w, r, "delete folder")
	if !ok {
		return
	}
	if err := h.vault.DeleteFolder(abs); err != nil {
		h.writeError(w, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OperationResult{Status: models.StatusOK, Path: rel})
}

// resolveWildcard resolves the URL wildcard against the vault root. The root
// itself is never a valid target here.
func (h *Handler) resolveWildcard(w http.ResponseWriter, r *http.Request, op string) (string, string, bool) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", "", false
	}
	abs, err := vault.Resolve(h.root, p)
	if err != nil {
		h.writeError(w, op, err)
		return "", "", false
	}
	rel := vault.Relative(h.root, abs)
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", "", false
	}
	return rel, abs, true
}
