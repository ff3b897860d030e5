package api

import (
	"net/http"
	"os"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/probe"
	"github.com/starford/aegis/internal/vault"
)

// Open handles POST /api/open. The entry is launched with the OS default handler.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	if h.opener == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("opener not configured"))
		return
	}
	var req OpenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	abs, err := vault.Resolve(h.root, req.Path)
	if err != nil {
		h.writeError(w, "open", err)
		return
	}
	if _, err := os.Stat(abs); err != nil {
		h.writeError(w, "open", apperr.Wrap("open", abs, err))
		return
	}
	if err := h.opener.Open(r.Context(), abs); err != nil {
		h.writeError(w, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OperationResult{Status: models.StatusOK, Path: vault.Relative(h.root, abs)})
}

// OpenMail handles POST /api/mail/open.
func (h *Handler) OpenMail(w http.ResponseWriter, r *http.Request) {
	if h.opener == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("opener not configured"))
		return
	}
	if err := h.opener.OpenMail(r.Context()); err != nil {
		h.writeError(w, "open mail", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OperationResult{Status: models.StatusOK})
}

// Connectivity handles GET /api/connectivity.
//
// A reachable endpoint yields CONNEXION_OK or STATUS_<code> with 200; a
// transport failure yields 502 carrying the error text.
//
//	@Summary		Probe the mail service
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	TokenResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/connectivity [get]
func (h *Handler) Connectivity(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("connectivity probe not configured"))
		return
	}
	token, err := h.probe.Check(r.Context())
	if err != nil {
		h.writeError(w, "check connectivity", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Status: models.StatusOK, Result: token})
}

// SystemStatus handles GET /api/status.
func (h *Handler) SystemStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TokenResponse{Status: models.StatusOK, Result: probe.SystemStatus()})
}
