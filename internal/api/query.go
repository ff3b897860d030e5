package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/aegis/internal/index"
	"github.com/starford/aegis/internal/vault"
)

const defaultSearchLimit = 50

func (h *Handler) requireIndex(w http.ResponseWriter) bool {
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not configured"))
		return false
	}
	return true
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over indexed notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.requireIndex(w) {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := h.index.Search(q, limit)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: toSearchResults(results)})
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	if !h.requireIndex(w) {
		return
	}
	rel, _, ok := h.resolveWildcard(w, r, "backlinks")
	if !ok {
		return
	}
	links, err := h.index.Backlinks(rel)
	if err != nil {
		h.writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: rel, Backlinks: links})
}

// Actions handles GET /api/actions.
//
// Query parameters: note (vault-relative path), open=true, limit.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	if !h.requireIndex(w) {
		return
	}
	q := r.URL.Query()
	f := index.ActionFilter{OpenOnly: q.Get("open") == "true"}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if note := q.Get("note"); note != "" {
		abs, err := vault.Resolve(h.root, note)
		if err != nil {
			h.writeError(w, "list actions", err)
			return
		}
		f.NotePath = vault.Relative(h.root, abs)
	}
	actions, err := h.index.ListActions(f)
	if err != nil {
		h.writeError(w, "list actions", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionsResponse{Actions: actions})
}

// GetSetting handles GET /api/settings/{key}.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	if !h.requireIndex(w) {
		return
	}
	key := chi.URLParam(r, "key")
	value, err := h.index.GetSetting(key)
	if err != nil {
		h.writeError(w, "get setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: value})
}

// PutSetting handles PUT /api/settings/{key}.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	if !h.requireIndex(w) {
		return
	}
	var req SettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.index.PutSetting(key, req.Value); err != nil {
		h.writeError(w, "put setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: req.Value})
}
