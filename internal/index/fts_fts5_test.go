//go:build sqlite_fts5

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count)
	require.NoError(t, err, "notes_fts table missing")
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	n := row("fts.md", "f1")
	n.Title = "FTS Note"
	n.Tags = []string{"search"}
	n.Content = "Aegis provides powerful full-text search capabilities."
	require.NoError(t, db.UpsertNote(n, nil, nil))

	results, err := db.Search("powerful", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fts.md", results[0].Path)
	assert.NotEmpty(t, results[0].Snippet)
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	n := row("gone.md", "g")
	n.Content = "vanishing content"
	require.NoError(t, db.UpsertNote(n, nil, nil))
	require.NoError(t, db.DeleteNote("gone.md"))

	results, err := db.Search("vanishing", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "gone.md", r.Path, "deleted note still in FTS index")
	}
}

func TestFTS5_MoveFollowsPath(t *testing.T) {
	db := testDB(t)
	n := row("dir/m.md", "m")
	n.Content = "relocated words"
	require.NoError(t, db.UpsertNote(n, nil, nil))

	_, err := db.MovePath("dir", "moved")
	require.NoError(t, err)

	results, err := db.Search("relocated", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "moved/m.md", results[0].Path)
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	n := row("evo.md", "1")
	n.Title, n.Content = "Old", "original text"
	require.NoError(t, db.UpsertNote(n, nil, nil))
	n.Title, n.Content, n.Hash = "New", "replacement text", "2"
	require.NoError(t, db.UpsertNote(n, nil, nil))

	results, err := db.Search("original", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "old FTS content should be gone")

	results, err = db.Search("replacement", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "New", results[0].Title)
}
