package vault

import (
	"os"
	"path/filepath"

	"github.com/starford/aegis/internal/apperr"
)

// ReadNote returns the note text, replacing invalid UTF-8.
func (s *Service) ReadNote(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.Wrap("read note", path, err)
	}
	return lossy(data), nil
}

// CreateNote writes content to path, creating missing parent directories.
func (s *Service) CreateNote(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap("create note", path, err)
	}
	return apperr.Wrap("create note", path, writeAtomic(path, []byte(content)))
}

// SaveNote overwrites an existing note (or creates one in an existing folder).
func (s *Service) SaveNote(path, content string) error {
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return apperr.Wrap("save note", path, err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperr.New(apperr.KindValidation, "save note", path, "is a directory: "+path)
	}
	return apperr.Wrap("save note", path, writeAtomic(path, []byte(content)))
}

// DeleteNote removes a single file.
func (s *Service) DeleteNote(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return apperr.Wrap("delete note", path, err)
	}
	if info.IsDir() {
		return apperr.New(apperr.KindValidation, "delete note", path, "is a directory: "+path)
	}
	return apperr.Wrap("delete note", path, os.Remove(path))
}

// CreateFolder creates path and any missing parents.
func (s *Service) CreateFolder(path string) error {
	return apperr.Wrap("create folder", path, os.MkdirAll(path, 0o755))
}

// DeleteFolder removes a folder recursively. A failure part-way leaves whatever
// the OS left behind.
func (s *Service) DeleteFolder(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return apperr.Wrap("delete folder", path, err)
	}
	if !info.IsDir() {
		return apperr.New(apperr.KindValidation, "delete folder", path, "not a directory: "+path)
	}
	return apperr.Wrap("delete folder", path, os.RemoveAll(path))
}

// SaveBinary writes raw bytes to path, creating missing parent directories.
func (s *Service) SaveBinary(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap("save binary", path, err)
	}
	return apperr.Wrap("save binary", path, writeAtomic(path, data))
}
