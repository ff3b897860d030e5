package vault

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/aegis/internal/apperr"
)

// Import copies the file at source into targetFolder (vault-relative, created when
// missing) and returns the copy's vault-relative path. The source is left as is.
func (s *Service) Import(root, targetFolder, source string) (string, error) {
	const op = "import"

	info, err := os.Stat(source)
	if err != nil {
		return "", apperr.Wrap(op, source, err)
	}
	if !info.Mode().IsRegular() {
		return "", apperr.New(apperr.KindValidation, op, source, "only regular files can be imported: "+source)
	}
	dir, err := Resolve(root, targetFolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(op, dir, err)
	}

	target := filepath.Join(dir, filepath.Base(source))
	if exists(target) {
		target = s.uniquePath(target)
	}
	if err := copyExclusive(source, target, info.Mode().Perm()); err != nil {
		return "", apperr.Wrap(op, target, err)
	}
	rel := Relative(root, target)
	s.logger.Debug("vault: imported",
		slog.String("source", source),
		slog.String("path", rel))
	return rel, nil
}
