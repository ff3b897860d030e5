package vault

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/aegis/internal/apperr"
)

// Resolve joins a vault-relative path onto root and rejects any result that
// escapes it (directory traversal). An empty rel resolves to root itself.
func Resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apperr.Wrap("resolve", root, err)
	}
	if rel == "" {
		return absRoot, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", apperr.New(apperr.KindValidation, "resolve", rel, "absolute paths not allowed: "+rel)
	}
	abs := filepath.Join(absRoot, cleaned)
	if !within(absRoot, abs) {
		return "", apperr.New(apperr.KindValidation, "resolve", rel, "path escapes vault root: "+rel)
	}
	return abs, nil
}

// Relative returns p relative to root with forward slashes.
func Relative(root, p string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	rel, err := filepath.Rel(absRoot, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// NormalizeRel converts a vault-relative path to the forward-slash form used in links.
func NormalizeRel(p string) string {
	p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// within reports whether p is root or lies beneath it.
func within(root, p string) bool {
	return p == root || strings.HasPrefix(p, strings.TrimRight(root, string(os.PathSeparator))+string(os.PathSeparator))
}

// canonical returns the absolute, symlink-free form of an existing path.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// locate accepts either a path already under root or a vault-relative one.
func locate(root, p string) (string, error) {
	if filepath.IsAbs(p) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", apperr.Wrap("resolve", root, err)
		}
		if cleaned := filepath.Clean(p); within(absRoot, cleaned) {
			return cleaned, nil
		}
	}
	return Resolve(root, p)
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// extOf returns the lower-cased extension without the dot.
func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
