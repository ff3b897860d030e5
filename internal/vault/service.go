// Package vault implements the file operations behind the note vault: tree scans,
// note and folder CRUD, move/rename with collision naming, wikilink rewriting and
// file import.
//
// A Service carries policy only. It never caches a vault root; every call names
// the paths it touches, and nothing is held open between calls.
package vault

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultProtectedFolders are the system folders that move and rename refuse to touch.
var DefaultProtectedFolders = []string{
	"00_Meta",
	"01_Inbox",
	"10_Projects",
	"20_Areas",
	"30_Resources",
	"40_Archive",
}

// reservedNames are OS and version-control entries that never show up in a scan.
var reservedNames = map[string]struct{}{
	"System Volume Information": {},
	"$RECYCLE.BIN":              {},
	"Thumbs.db":                 {},
	"desktop.ini":               {},
	"CVS":                       {},
	"_darcs":                    {},
}

// Service performs vault file operations.
type Service struct {
	protected []string
	ignore    []string
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProtectedFolders replaces the protected folder list.
func WithProtectedFolders(names ...string) Option {
	return func(s *Service) {
		s.protected = s.protected[:0]
		for _, n := range names {
			n = strings.Trim(strings.ReplaceAll(n, "\\", "/"), "/")
			if n != "" {
				s.protected = append(s.protected, n)
			}
		}
	}
}

// WithIgnore adds doublestar globs, matched against vault-relative slash paths,
// for entries the scanner and link rewriter skip.
func WithIgnore(patterns ...string) Option {
	return func(s *Service) {
		s.ignore = append(s.ignore, patterns...)
	}
}

// WithClock overrides the time source used for collision names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.clock = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service. Invalid ignore globs are rejected.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		protected: append([]string(nil), DefaultProtectedFolders...),
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("vault: invalid ignore pattern %q", p)
		}
	}
	return s, nil
}

// ProtectedFolders returns the configured protected folder names.
func (s *Service) ProtectedFolders() []string {
	return append([]string(nil), s.protected...)
}

// skip reports whether an entry is hidden from scans and link rewrites.
func (s *Service) skip(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := reservedNames[name]; ok {
		return true
	}
	for _, p := range s.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Ignored reports whether a vault-relative path, or any folder above it, is
// hidden from scans.
func (s *Service) Ignored(rel string) bool {
	rel = NormalizeRel(rel)
	if rel == "" || rel == "." {
		return false
	}
	parts := strings.Split(rel, "/")
	for i := range parts {
		if s.skip(parts[i], strings.Join(parts[:i+1], "/")) {
			return true
		}
	}
	return false
}

// isProtected matches p against the protected folders by path suffix.
func (s *Service) isProtected(p string) bool {
	norm := strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/")
	for _, name := range s.protected {
		if norm == name || strings.HasSuffix(norm, "/"+name) {
			return true
		}
	}
	return false
}
