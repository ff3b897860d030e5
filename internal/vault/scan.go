package vault

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/aegis/internal/apperr"
	"github.com/starford/aegis/internal/models"
)

// Scan returns the entries under root as a tree.
//
// Sub-directories that cannot be read are kept without children and unreadable
// Markdown files get empty content; only an unreadable root fails the scan.
func (s *Service) Scan(root string) ([]models.VaultNode, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Wrap("scan", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.Wrap("scan", root, err)
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.KindValidation, "scan", root, "vault root is not a directory: "+root)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, apperr.Wrap("scan", root, err)
	}
	return s.visit(abs, "", entries), nil
}

// ScanFlat returns the same entries as Scan, depth-first, without nesting.
func (s *Service) ScanFlat(root string) ([]models.VaultNode, error) {
	tree, err := s.Scan(root)
	if err != nil {
		return nil, err
	}
	var out []models.VaultNode
	var walk func(nodes []models.VaultNode)
	walk = func(nodes []models.VaultNode) {
		for _, n := range nodes {
			children := n.Children
			n.Children = []models.VaultNode{}
			out = append(out, n)
			walk(children)
		}
	}
	walk(tree)
	return out, nil
}

func (s *Service) visit(dir, rel string, entries []os.DirEntry) []models.VaultNode {
	nodes := make([]models.VaultNode, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		childRel := path.Join(rel, name)
		if s.skip(name, childRel) {
			continue
		}
		full := filepath.Join(dir, name)
		isDir, descend := entryKind(full, e)

		node := models.VaultNode{
			Name:         name,
			RelativePath: childRel,
			IsDirectory:  isDir,
			Children:     []models.VaultNode{},
		}
		switch {
		case isDir && descend:
			sub, err := os.ReadDir(full)
			if err != nil {
				s.logger.Debug("scan: skipping unreadable dir",
					slog.String("path", childRel),
					slog.String("error", err.Error()))
				break
			}
			node.Children = s.visit(full, childRel, sub)
		case !isDir:
			node.Extension = extOf(name)
			if node.Extension == "md" {
				if data, err := os.ReadFile(full); err == nil {
					node.Content = lossy(data)
				}
			}
		}
		nodes = append(nodes, node)
	}
	sortNodes(nodes)
	return nodes
}

// entryKind follows symlinks to classify an entry but never descends into a
// symlinked directory.
func entryKind(full string, e os.DirEntry) (isDir, descend bool) {
	if e.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(full)
		if err != nil {
			return false, false
		}
		return info.IsDir(), false
	}
	return e.IsDir(), e.IsDir()
}

func sortNodes(nodes []models.VaultNode) {
	slices.SortStableFunc(nodes, func(a, b models.VaultNode) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
