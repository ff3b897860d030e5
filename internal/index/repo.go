package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/parser"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID       string
	Path     string
	Title    string
	Hash     string
	LastSync time.Time
	Type     string
	Status   string
	Tags     []string
	Content  string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertNote inserts or updates a note together with its links and task items.
// An existing row keeps its id.
func (db *DB) UpsertNote(n NoteRow, links []string, tasks []parser.Task) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.Tags == nil {
		n.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(n.Tags)
	if n.LastSync.IsZero() {
		n.LastSync = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO notes (id, path, title, hash, last_sync, type, status, tags, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title     = excluded.title,
			hash      = excluded.hash,
			last_sync = excluded.last_sync,
			type      = excluded.type,
			status    = excluded.status,
			tags      = excluded.tags,
			content   = excluded.content
	`, uuid.NewString(), n.Path, n.Title, n.Hash, n.LastSync.UTC(), n.Type, n.Status, string(tagsJSON), n.Content)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.Path, n.Title, n.Content, n.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM actions WHERE note_path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear actions: %w", err)
	}
	if len(tasks) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO actions (note_path, line, text, done) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare action insert: %w", err)
		}
		defer stmt.Close()
		for _, task := range tasks {
			if _, err := stmt.Exec(n.Path, task.Line, task.Text, task.Done); err != nil {
				return fmt.Errorf("index: insert action: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note. Its links and actions go with it through the
// foreign-key cascade.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// MovePath re-keys a note, or every note under a folder, from oldPath to newPath
// so ids, links and actions survive a rename or move. Rows already indexed at
// the destination are replaced. It returns the number of notes moved.
func (db *DB) MovePath(oldPath, newPath string) (int, error) {
	if oldPath == "" || newPath == "" || oldPath == newPath {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	newPrefix := newPath + "/"
	newLen := utf8.RuneCountInString(newPrefix)
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ? OR substr(path, 1, ?) = ?`,
		newPath, newLen, newPrefix); err != nil {
		return 0, fmt.Errorf("index: clear move target: %w", err)
	}

	oldPrefix := oldPath + "/"
	oldLen := utf8.RuneCountInString(oldPrefix)
	if err := ftsMove(tx, oldPath, newPath, oldLen); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`
		UPDATE notes SET path = ? || substr(path, ?)
		WHERE path = ? OR substr(path, 1, ?) = ?
	`, newPath, oldLen, oldPath, oldLen, oldPrefix)
	if err != nil {
		return 0, fmt.Errorf("index: move path: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

// GetNote returns one note by vault-relative path.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var (
		n    NoteRow
		tags string
	)
	err := db.conn.QueryRow(`
		SELECT id, path, title, hash, last_sync, type, status, tags, content
		FROM notes WHERE path = ?
	`, path).Scan(&n.ID, &n.Path, &n.Title, &n.Hash, &n.LastSync, &n.Type, &n.Status, &tags, &n.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "get note", path, "note not indexed: "+path)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tags), &n.Tags)
	return &n, nil
}

// GetChecksum returns the stored hash for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT hash FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> hash for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, hash FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns the notes whose wikilinks resolve to notePath, by full path,
// path without extension, or bare name.
func (db *DB) Backlinks(notePath string) ([]string, error) {
	noExt := strings.TrimSuffix(notePath, path.Ext(notePath))
	stem := path.Base(noExt)

	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM links
		WHERE target IN (?, ?, ?) AND source <> ?
	`, notePath, noExt, stem, notePath)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, rows.Err()
}
