package vault

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/aegis/internal/apperr"
)

// Move moves source (file or folder) into destination and returns the final path.
// An existing entry with the same name is never overwritten: the moved entry gets
// a timestamped name instead.
func (s *Service) Move(source, destination string) (string, error) {
	const op = "move"

	if s.isProtected(source) {
		return "", apperr.New(apperr.KindProtected, op, source,
			"cannot move a protected system folder: "+filepath.Base(source))
	}
	srcAbs, err := filepath.Abs(source)
	if err != nil {
		return "", apperr.Wrap(op, source, err)
	}
	name := filepath.Base(srcAbs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", apperr.New(apperr.KindValidation, op, source, "invalid source name")
	}
	if _, err := os.Lstat(srcAbs); err != nil {
		return "", apperr.Wrap(op, source, err)
	}

	dstInfo, err := os.Stat(destination)
	if err != nil || !dstInfo.IsDir() {
		return "", apperr.New(apperr.KindValidation, op, destination,
			"destination is not an existing directory: "+destination)
	}
	dstAbs, err := filepath.Abs(destination)
	if err != nil {
		return "", apperr.Wrap(op, destination, err)
	}

	srcParent, err := canonical(filepath.Dir(srcAbs))
	if err != nil {
		return "", apperr.Wrap(op, source, err)
	}
	srcCanon := filepath.Join(srcParent, name)
	dstCanon, err := canonical(dstAbs)
	if err != nil {
		return "", apperr.Wrap(op, destination, err)
	}
	if within(srcCanon, dstCanon) {
		return "", apperr.New(apperr.KindRecursive, op, source,
			"cannot move a folder into itself or one of its subfolders")
	}
	if filepath.Join(dstCanon, name) == srcCanon {
		return srcAbs, nil
	}

	target := filepath.Join(dstAbs, name)
	if exists(target) {
		target = s.uniquePath(target)
	}
	if err := os.Rename(srcAbs, target); err != nil {
		return "", apperr.Wrap(op, source, err)
	}
	s.logger.Debug("vault: moved",
		slog.String("from", srcAbs),
		slog.String("to", target))
	return target, nil
}

// Rename renames the entry at oldPath (vault-relative, or absolute under root) to
// newName inside the same folder and returns its new vault-relative path.
func (s *Service) Rename(root, oldPath, newName string) (string, error) {
	const op = "rename"

	if err := validateName(newName); err != nil {
		return "", err
	}
	oldFull, err := locate(root, oldPath)
	if err != nil {
		return "", err
	}
	rel := Relative(root, oldFull)
	if rel == "" {
		return "", apperr.New(apperr.KindValidation, op, oldPath, "cannot rename the vault root")
	}
	if s.isProtected(rel) {
		return "", apperr.New(apperr.KindProtected, op, oldPath,
			"cannot rename a protected system folder: "+filepath.Base(oldFull))
	}
	oldInfo, err := os.Lstat(oldFull)
	if err != nil {
		return "", apperr.Wrap(op, oldPath, err)
	}

	newFull := filepath.Join(filepath.Dir(oldFull), newName)
	if newFull == oldFull {
		return rel, nil
	}
	// A case-only rename on a case-insensitive filesystem finds the same file.
	if newInfo, err := os.Lstat(newFull); err == nil && !os.SameFile(oldInfo, newInfo) {
		return "", apperr.New(apperr.KindConflict, op, newName,
			fmt.Sprintf("an item named %q already exists", newName))
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return "", apperr.Wrap(op, oldPath, err)
	}
	s.logger.Debug("vault: renamed",
		slog.String("from", rel),
		slog.String("to", newName))
	return Relative(root, newFull), nil
}

// UniqueName returns a name derived from name that does not exist in dir.
func (s *Service) UniqueName(dir, name string) string {
	target := filepath.Join(dir, name)
	if !exists(target) {
		return name
	}
	return filepath.Base(s.uniquePath(target))
}

// uniquePath appends the Unix time before the extension, then a counter if that
// name is taken too.
func (s *Service) uniquePath(target string) string {
	dir, name := filepath.Split(target)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	ts := s.clock().Unix()
	candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, ts, ext))
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d-%d%s", stem, ts, n, ext))
	}
	return candidate
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(name, `/\`) {
		return apperr.New(apperr.KindValidation, "rename", name, fmt.Sprintf("invalid name: %q", name))
	}
	return nil
}
