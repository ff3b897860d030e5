package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/aegis/internal/index"
	"github.com/starford/aegis/internal/vault"
)

// Prober checks outbound connectivity.
type Prober interface {
	Check(ctx context.Context) (string, error)
}

// Launcher opens entries and the mail client with the OS handler.
type Launcher interface {
	Open(ctx context.Context, target string) error
	OpenMail(ctx context.Context) error
}

// Notifier receives change notifications for connected GUI clients.
type Notifier interface {
	PublishMove(from, to string)
	PublishLinksRewritten(oldPath, newPath string, filesModified int)
}

// Handler holds API route handlers. Every request path is vault-relative and
// resolved against root.
type Handler struct {
	root   string
	vault  *vault.Service
	index  index.NoteIndex
	probe  Prober
	opener Launcher
	events Notifier
	logger *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithIndex enables search, backlinks, actions and settings, and keeps the index
// keyed correctly across renames and moves.
func WithIndex(idx index.NoteIndex) HandlerOption {
	return func(h *Handler) { h.index = idx }
}

// WithProber sets the connectivity prober.
func WithProber(p Prober) HandlerOption {
	return func(h *Handler) { h.probe = p }
}

// WithLauncher sets the OS opener.
func WithLauncher(l Launcher) HandlerOption {
	return func(h *Handler) { h.opener = l }
}

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) HandlerOption {
	return func(h *Handler) { h.events = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a new Handler for the vault at root.
func NewHandler(root string, svc *vault.Service, opts ...HandlerOption) *Handler {
	h := &Handler{root: root, vault: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Vault scan.
	r.Get("/vault/tree", h.Tree)
	r.Get("/vault/list", h.List)

	// Notes and folders.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.ReadNote)
	r.Put("/notes/*", h.SaveNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/folders", h.CreateFolder)
	r.Delete("/folders/*", h.DeleteFolder)

	// Reorganisation.
	r.Post("/rename", h.Rename)
	r.Post("/move", h.Move)
	r.Post("/links/rewrite", h.RewriteLinks)
	r.Post("/import", h.Import)

	// Binary files.
	r.Put("/files/*", h.SaveFile)
	r.Get("/files/*", h.ServeFile)
	r.Post("/attachments", h.UploadAttachment)

	// Desktop integration and probes.
	r.Post("/open", h.Open)
	r.Post("/mail/open", h.OpenMail)
	r.Get("/connectivity", h.Connectivity)
	r.Get("/status", h.SystemStatus)

	// Index-backed queries.
	r.Get("/search", h.Search)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/actions", h.Actions)
	r.Get("/settings/{key}", h.GetSetting)
	r.Put("/settings/{key}", h.PutSetting)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// wildcardPath extracts the vault path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
