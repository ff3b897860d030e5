package index

import (
	"log/slog"
	"time"

	"github.com/starford/aegis/internal/checksum"
	"github.com/starford/aegis/internal/parser"
	"github.com/starford/aegis/internal/vault"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// SyncReport lists the paths a Sync pass changed.
type SyncReport struct {
	Created []string
	Updated []string
	Removed []string
}

// Sync scans the vault and brings the index up to date:
//   - new/changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
func Sync(db *DB, svc *vault.Service, root string, logger *slog.Logger) (SyncReport, error) {
	var report SyncReport

	nodes, err := svc.ScanFlat(root)
	if err != nil {
		return report, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return report, err
	}

	now := time.Now()
	disk := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if !n.IsMarkdown() {
			continue
		}
		disk[n.RelativePath] = struct{}{}

		prev, known := checksums[n.RelativePath]
		if known && prev == checksum.String(n.Content) {
			continue
		}
		if err := IndexNote(db, n.RelativePath, n.Content, now); err != nil {
			logger.Warn("sync: index failed", slog.String("path", n.RelativePath), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", n.RelativePath))
		if known {
			report.Updated = append(report.Updated, n.RelativePath)
		} else {
			report.Created = append(report.Created, n.RelativePath)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		report.Removed = append(report.Removed, p)
	}

	return report, nil
}

// IndexNote parses content and upserts it under rel.
func IndexNote(idx NoteIndex, rel, content string, now time.Time) error {
	res, err := parser.Parse([]byte(content))
	if err != nil {
		return err
	}
	row := NoteRow{
		Path:     rel,
		Title:    res.Title,
		Hash:     checksum.String(content),
		LastSync: now,
		Type:     res.Type,
		Status:   res.Status,
		Tags:     res.Tags,
		Content:  content,
	}
	return idx.UpsertNote(row, res.Links, res.Tasks)
}
