package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/vault"
)

// Rename handles POST /api/rename.
//
//	@Summary		Rename a file or folder in place
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Entry and new name"
//	@Success		200		{object}	MoveResponse
//	@Failure		403		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename [post]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	oldAbs, err := vault.Resolve(h.root, req.OldPath)
	if err != nil {
		h.writeError(w, "rename", err)
		return
	}
	oldRel := vault.Relative(h.root, oldAbs)
	newRel, err := h.vault.Rename(h.root, oldRel, req.NewName)
	if err != nil {
		h.writeError(w, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, h.afterMove(oldRel, newRel, req.UpdateLinks))
}

// Move handles POST /api/move.
//
//	@Summary		Move a file or folder into another folder
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Entry and destination folder"
//	@Success		200		{object}	MoveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src, err := vault.Resolve(h.root, req.Source)
	if err != nil {
		h.writeError(w, "move", err)
		return
	}
	oldRel := vault.Relative(h.root, src)
	if oldRel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("cannot move the vault root"))
		return
	}
	dst, err := vault.Resolve(h.root, req.Destination)
	if err != nil {
		h.writeError(w, "move", err)
		return
	}
	target, err := h.vault.Move(src, dst)
	if err != nil {
		h.writeError(w, "move", err)
		return
	}
	writeJSON(w, http.StatusOK, h.afterMove(oldRel, vault.Relative(h.root, target), req.UpdateLinks))
}

// afterMove re-keys the index, notifies clients and optionally rewrites links.
// A failed link pass is logged; the move itself already happened.
func (h *Handler) afterMove(oldRel, newRel string, updateLinks bool) MoveResponse {
	resp := MoveResponse{Status: models.StatusOK, Path: newRel}
	if oldRel == newRel {
		return resp
	}
	if h.index != nil {
		if n, err := h.index.MovePath(oldRel, newRel); err != nil {
			h.logger.Warn("index move failed",
				slog.String("from", oldRel),
				slog.String("to", newRel),
				slog.String("error", err.Error()))
		} else {
			h.logger.Debug("index re-keyed", slog.Int("notes", n))
		}
	}
	if h.events != nil {
		h.events.PublishMove(oldRel, newRel)
	}
	if !updateLinks {
		return resp
	}
	report, err := h.vault.RewriteMovedLinks(h.root, oldRel, newRel)
	if err != nil {
		h.logger.Error("link rewrite failed",
			slog.String("from", oldRel),
			slog.String("to", newRel),
			slog.String("error", err.Error()))
	}
	n := report.FilesModified
	resp.FilesModified = &n
	if h.events != nil {
		h.events.PublishLinksRewritten(oldRel, newRel, n)
	}
	return resp
}

// RewriteLinks handles POST /api/links/rewrite.
func (h *Handler) RewriteLinks(w http.ResponseWriter, r *http.Request) {
	var req LinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, p := range []string{req.OldPath, req.NewPath} {
		if _, err := vault.Resolve(h.root, p); err != nil {
			h.writeError(w, "update links", err)
			return
		}
	}
	report, err := h.vault.RewriteLinks(h.root, req.OldPath, req.NewPath)
	if err != nil {
		h.writeError(w, "update links", err)
		return
	}
	if h.events != nil {
		h.events.PublishLinksRewritten(vault.NormalizeRel(req.OldPath), vault.NormalizeRel(req.NewPath), report.FilesModified)
	}
	writeJSON(w, http.StatusOK, LinksResponse{Status: models.StatusOK, LinkRewriteReport: report})
}

// Import handles POST /api/import. The source is an absolute path outside the
// vault, typically a file dropped onto the GUI.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rel, err := h.vault.Import(h.root, req.TargetFolder, req.Source)
	if err != nil {
		h.writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.OperationResult{Status: models.StatusOK, Path: rel})
}
