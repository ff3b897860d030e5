package index

import (
	"github.com/starford/aegis/internal/models"
	"github.com/starford/aegis/internal/parser"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, links []string, tasks []parser.Task) error
	DeleteNote(path string) error
	MovePath(oldPath, newPath string) (int, error)
	GetNote(path string) (*NoteRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(notePath string) ([]string, error)
	ListActions(f ActionFilter) ([]models.Action, error)
	GetSetting(key string) (string, error)
	PutSetting(key, value string) error
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
