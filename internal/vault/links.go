package vault

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/models"
)

// RewriteLinks points wikilinks at a note's new location after a rename or move.
//
// Three literal forms are replaced in every Markdown file under root:
//
//	[[old/path.md]] -> [[new/path.md]]
//	[[old/path]]    -> [[new/path]]
//	[[path]]        -> [[new/path]]   (bare stem of the old name)
//
// Only a ".md" extension is stripped; any other name is matched whole.
// The first failed write aborts the pass; files already rewritten stay rewritten.
func (s *Service) RewriteLinks(root, oldRel, newRel string) (models.LinkRewriteReport, error) {
	const op = "update links"
	oldRel, newRel = NormalizeRel(oldRel), NormalizeRel(newRel)
	if oldRel == "" || newRel == "" {
		return models.LinkRewriteReport{}, apperr.New(apperr.KindValidation, op, oldRel, "old and new paths are required")
	}
	return s.rewrite(root, linkPairs(oldRel, newRel))
}

// RewriteMovedLinks rewrites links after an entry moved from oldRel to newRel.
// A moved folder rewrites links to every note now under it; a moved note is
// handled like RewriteLinks. Other files leave the vault untouched.
func (s *Service) RewriteMovedLinks(root, oldRel, newRel string) (models.LinkRewriteReport, error) {
	const op = "update links"
	oldRel, newRel = NormalizeRel(oldRel), NormalizeRel(newRel)
	if oldRel == "" || newRel == "" {
		return models.LinkRewriteReport{}, apperr.New(apperr.KindValidation, op, oldRel, "old and new paths are required")
	}
	abs, err := Resolve(root, newRel)
	if err != nil {
		return models.LinkRewriteReport{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.LinkRewriteReport{}, apperr.Wrap(op, newRel, err)
	}
	if !info.IsDir() {
		if !isNote(newRel) {
			return models.LinkRewriteReport{}, nil
		}
		return s.rewrite(root, linkPairs(oldRel, newRel))
	}

	var pairs []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && p != abs {
				return filepath.SkipDir
			}
			return nil
		}
		if p == abs {
			return nil
		}
		sub := filepath.ToSlash(strings.TrimPrefix(p, abs+string(filepath.Separator)))
		if s.skip(d.Name(), newRel+"/"+sub) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && isNote(d.Name()) {
			pairs = append(pairs, linkPairs(oldRel+"/"+sub, newRel+"/"+sub)...)
		}
		return nil
	})
	if err != nil {
		return models.LinkRewriteReport{}, apperr.Wrap(op, newRel, err)
	}
	return s.rewrite(root, pairs)
}

// rewrite applies old/new pairs to every Markdown file under root in one pass.
func (s *Service) rewrite(root string, pairs []string) (models.LinkRewriteReport, error) {
	const op = "update links"
	var report models.LinkRewriteReport
	if len(pairs) == 0 {
		return report, nil
	}
	replacer := strings.NewReplacer(pairs...)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return report, apperr.Wrap(op, root, err)
	}
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == absRoot {
				return apperr.Wrap(op, root, walkErr)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == absRoot {
			return nil
		}
		if s.skip(d.Name(), Relative(absRoot, p)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isNote(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			s.logger.Warn("links: read failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		text := string(data)
		updated := replacer.Replace(text)
		if updated == text {
			return nil
		}
		if err := writeAtomic(p, []byte(updated)); err != nil {
			return apperr.Wrap(op, p, err)
		}
		report.FilesModified++
		s.logger.Debug("links: rewritten", slog.String("path", Relative(absRoot, p)))
		return nil
	})
	return report, err
}

func isNote(name string) bool {
	return extOf(name) == "md"
}

// linkPairs returns the replacer pairs for the three link forms of one entry,
// skipping forms that would not change.
func linkPairs(oldRel, newRel string) []string {
	oldBase, newBase := oldRel, newRel
	if isNote(oldRel) {
		oldBase = strings.TrimSuffix(oldRel, path.Ext(oldRel))
	}
	if isNote(newRel) {
		newBase = strings.TrimSuffix(newRel, path.Ext(newRel))
	}
	forms := [][2]string{
		{"[[" + oldRel + "]]", "[[" + newRel + "]]"},
		{"[[" + oldBase + "]]", "[[" + newBase + "]]"},
		{"[[" + path.Base(oldBase) + "]]", "[[" + newBase + "]]"},
	}
	var pairs []string
	seen := make(map[string]bool, len(forms))
	for _, f := range forms {
		if f[0] == f[1] || seen[f[0]] {
			continue
		}
		seen[f[0]] = true
		pairs = append(pairs, f[0], f[1])
	}
	return pairs
}
