package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/aegis/internal/apperr"
)

func TestRewriteLinksAfterRenameScenario(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"01_Inbox/a.md": "See [[a]]"})

	rel, err := svc.Rename(root, "01_Inbox/a.md", "b.md")
	require.NoError(t, err)
	require.Equal(t, "01_Inbox/b.md", rel)

	report, err := svc.RewriteLinks(root, "01_Inbox/a.md", rel)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "See [[01_Inbox/b]]", readFile(t, filepath.Join(root, "01_Inbox", "b.md")))
}

func TestRewriteLinksAllForms(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"old/path.md":      "self",
		"ref/full.md":      "x [[old/path.md]] y",
		"ref/noext.md":     "x [[old/path]] y",
		"ref/stem.md":      "x [[path]] y",
		"ref/mixed.md":     "[[old/path.md]] [[old/path]] [[path]] [[other]]",
		"ref/untouched.md": "no links to [[other/path2]] here",
		"ref/notes.txt":    "[[old/path]] in a text file",
	})
	before, err := os.Stat(filepath.Join(root, "ref", "untouched.md"))
	require.NoError(t, err)

	report, err := svc.RewriteLinks(root, "old/path.md", "new/place.md")
	require.NoError(t, err)
	assert.Equal(t, 4, report.FilesModified)

	assert.Equal(t, "x [[new/place.md]] y", readFile(t, filepath.Join(root, "ref", "full.md")))
	assert.Equal(t, "x [[new/place]] y", readFile(t, filepath.Join(root, "ref", "noext.md")))
	assert.Equal(t, "x [[new/place]] y", readFile(t, filepath.Join(root, "ref", "stem.md")))
	assert.Equal(t, "[[new/place.md]] [[new/place]] [[new/place]] [[other]]",
		readFile(t, filepath.Join(root, "ref", "mixed.md")))

	assert.Equal(t, "no links to [[other/path2]] here", readFile(t, filepath.Join(root, "ref", "untouched.md")))
	after, err := os.Stat(filepath.Join(root, "ref", "untouched.md"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "unreferenced note must not be rewritten")

	assert.Equal(t, "[[old/path]] in a text file", readFile(t, filepath.Join(root, "ref", "notes.txt")))
}

func TestRewriteLinksSkipsHiddenAndIgnored(t *testing.T) {
	svc := testService(t, WithIgnore("templates/**"))
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".trash/t.md":    "[[a]]",
		"templates/x.md": "[[a]]",
		"live.md":        "[[a]]",
	})

	report, err := svc.RewriteLinks(root, "a.md", "b.md")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "[[b]]", readFile(t, filepath.Join(root, "live.md")))
	assert.Equal(t, "[[a]]", readFile(t, filepath.Join(root, ".trash", "t.md")))
	assert.Equal(t, "[[a]]", readFile(t, filepath.Join(root, "templates", "x.md")))
}

func TestRewriteLinksNoChange(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "[[a]]"})

	report, err := svc.RewriteLinks(root, "a.md", "a.md")
	require.NoError(t, err)
	assert.Zero(t, report.FilesModified)

	_, err = svc.RewriteLinks(root, "", "b.md")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRewriteLinksNormalizesSeparators(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"n.md": "[[dir/a]]"})

	report, err := svc.RewriteLinks(root, `\dir\a.md`, `dir\b.md`)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "[[dir/b]]", readFile(t, filepath.Join(root, "n.md")))
}

func TestRewriteLinksStopsOnWriteError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"locked/n.md": "[[a]]"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := svc.RewriteLinks(root, "a.md", "b.md")
	require.ErrorIs(t, err, apperr.ErrPermission)
}

func TestRewriteLinksKeepsDottedNames(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"n.md": "[[v1]] [[docs/v1.2]] [[v1.2]]"})

	report, err := svc.RewriteLinks(root, "docs/v1.2", "docs/v2.0")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "[[v1]] [[docs/v2.0]] [[docs/v2.0]]", readFile(t, filepath.Join(root, "n.md")))
}

func TestRewriteMovedLinksFolder(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"projects/alpha/a.md":     "inside",
		"projects/alpha/sub/b.md": "deeper",
		"projects/alpha/img.png":  "png",
		"other/alpha.md":          "unrelated note",
		"archive/":                "",
		"ref.md":                  "[[projects/alpha/a]] [[projects/alpha/sub/b.md]] [[alpha]] [[projects/alpha/img.png]]",
	})

	moved, err := svc.Move(filepath.Join(root, "projects", "alpha"), filepath.Join(root, "archive"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "archive", "alpha"), moved)

	report, err := svc.RewriteMovedLinks(root, "projects/alpha", "archive/alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "[[archive/alpha/a]] [[archive/alpha/sub/b.md]] [[alpha]] [[projects/alpha/img.png]]",
		readFile(t, filepath.Join(root, "ref.md")))
	assert.Equal(t, "unrelated note", readFile(t, filepath.Join(root, "other", "alpha.md")))
}

func TestRewriteMovedLinksNote(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"new/n.md": "",
		"ref.md":   "[[old/n]] [[n]]",
	})

	report, err := svc.RewriteMovedLinks(root, "old/n.md", "new/n.md")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesModified)
	assert.Equal(t, "[[new/n]] [[new/n]]", readFile(t, filepath.Join(root, "ref.md")))
}

func TestRewriteMovedLinksIgnoresOtherFiles(t *testing.T) {
	svc := testService(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/v2.0": "data",
		"ref.md":    "[[v1]] [[docs/v1.2]]",
	})

	report, err := svc.RewriteMovedLinks(root, "docs/v1.2", "docs/v2.0")
	require.NoError(t, err)
	assert.Zero(t, report.FilesModified)
	assert.Equal(t, "[[v1]] [[docs/v1.2]]", readFile(t, filepath.Join(root, "ref.md")))

	_, err = svc.RewriteMovedLinks(root, "gone.md", "missing.md")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
