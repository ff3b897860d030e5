package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/aegis/internal/apperr"
)

// GetSetting returns the stored value for key.
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.New(apperr.KindNotFound, "get setting", key, "setting not found: "+key)
	}
	if err != nil {
		return "", fmt.Errorf("index: get setting: %w", err)
	}
	return v, nil
}

// PutSetting stores value under key, replacing any previous value.
func (db *DB) PutSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: put setting: %w", err)
	}
	return nil
}
