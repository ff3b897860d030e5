package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/aegis/internal/apperr"
)

func TestImportCollisionKeepsOriginal(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"10_Projects/report.xlsx": "original"})

	src := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("incoming"), 0o644))

	rel, err := svc.Import(root, "10_Projects", src)
	require.NoError(t, err)
	assert.Equal(t, "10_Projects/report_1700000000.xlsx", rel)
	assert.Equal(t, "incoming", readFile(t, filepath.Join(root, "10_Projects", "report_1700000000.xlsx")))
	assert.Equal(t, "original", readFile(t, filepath.Join(root, "10_Projects", "report.xlsx")))
	assert.Equal(t, "incoming", readFile(t, src), "source untouched")
}

func TestImportCreatesTargetFolder(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o600))

	rel, err := svc.Import(root, "30_Resources/papers", src)
	require.NoError(t, err)
	assert.Equal(t, "30_Resources/papers/scan.pdf", rel)
	assert.Equal(t, "%PDF", readFile(t, filepath.Join(root, "30_Resources", "papers", "scan.pdf")))
}

func TestImportRejections(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()

	_, err := svc.Import(root, "in", filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Import(root, "in", t.TempDir())
	require.ErrorIs(t, err, apperr.ErrValidation)

	src := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	_, err = svc.Import(root, "../escape", src)
	require.ErrorIs(t, err, apperr.ErrValidation)
}
