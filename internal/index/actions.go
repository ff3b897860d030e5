package index

import (
	"fmt"
	"strings"

	"github.com/starford/aegis/internal/models"
)

// ActionFilter narrows ListActions.
type ActionFilter struct {
	NotePath string // only this note when set
	OpenOnly bool   // skip completed items
	Limit    int
}

// ListActions returns task items ordered by note path and line.
func (db *DB) ListActions(f ActionFilter) ([]models.Action, error) {
	var (
		where []string
		args  []any
	)
	if f.NotePath != "" {
		where = append(where, "a.note_path = ?")
		args = append(args, f.NotePath)
	}
	if f.OpenOnly {
		where = append(where, "a.done = 0")
	}
	q := `SELECT a.id, a.note_path, a.line, a.text, a.done, n.last_sync
		FROM actions a JOIN notes n ON n.path = a.note_path`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.note_path, a.line"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list actions: %w", err)
	}
	defer rows.Close()

	out := []models.Action{}
	for rows.Next() {
		var a models.Action
		if err := rows.Scan(&a.ID, &a.NotePath, &a.Line, &a.Text, &a.Done, &a.SyncedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
