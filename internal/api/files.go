package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/vault"
)

const (
	attachDir      = "attachments"
	maxUploadBytes = 50 << 20 // 50 MB
)

// SaveFile handles PUT /api/files/*. The request body is written verbatim.
//
//	@Summary		Write a binary file
//	@Tags			files
//	@Accept			application/octet-stream
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	models.OperationResult
//	@Failure		413		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [put]
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	rel, abs, ok := h.resolveWildcard(w, r, "save binary")
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
		return
	}
	if err := h.vault.SaveBinary(abs, data); err != nil {
		h.writeError(w, "save binary", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OperationResult{Status: models.StatusOK, Path: rel})
}

// ServeFile handles GET /api/files/*.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	_, abs, ok := h.resolveWildcard(w, r, "serve file")
	if !ok {
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		h.writeError(w, "serve file", apperr.Wrap("serve file", abs, err))
		return
	}
	if info.IsDir() {
		writeJSON(w, http.StatusBadRequest, errorBody("is a directory"))
		return
	}
	http.ServeFile(w, r, abs)
}

// UploadAttachment handles POST /api/attachments (multipart/form-data, field
// "file"). A name already taken in attachments/ gets a timestamped one.
//
//	@Summary		Upload an attachment
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := filepath.Base(filepath.Clean("/" + header.Filename))
	if name == "" || name == "/" || name == "." || name == ".." {
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("invalid filename: %s", header.Filename)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	dir, err := vault.Resolve(h.root, attachDir)
	if err != nil {
		h.writeError(w, "upload attachment", err)
		return
	}
	name = h.vault.UniqueName(dir, name)
	if err := h.vault.SaveBinary(filepath.Join(dir, name), data); err != nil {
		h.writeError(w, "upload attachment", err)
		return
	}

	rel := path.Join(attachDir, name)
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Status: models.StatusOK,
		Path:   rel,
		Size:   int64(len(data)),
		URL:    "/api/files/" + rel,
	})
}
