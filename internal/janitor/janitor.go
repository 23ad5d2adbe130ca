package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/metrics"
)

// orphanGraceAge is how old an unreferenced file must be before the
// sweep removes it. Blobs appear on disk before their database row
// commits, so young files may belong to an upload still in flight.
const orphanGraceAge = 24 * time.Hour

// Janitor periodically removes orphaned files and expired sessions.
type Janitor struct {
	db       *database.Database
	mediaDir string
	thumbDir string
	interval time.Duration
}

// New creates a janitor for the given directories.
func New(db *database.Database, mediaDir, thumbDir string, interval time.Duration) *Janitor {
	return &Janitor{
		db:       db,
		mediaDir: mediaDir,
		thumbDir: thumbDir,
		interval: interval,
	}
}

// Run sweeps on the configured interval until the context is canceled.
// One sweep runs immediately on startup.
func (j *Janitor) Run(ctx context.Context) {
	logging.Info("Janitor running every %v", j.interval)

	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			logging.Info("Janitor stopped")
			return
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	metrics.JanitorRunsTotal.Inc()

	j.db.CleanExpiredSessions(ctx)

	blobs, thumbs, err := j.db.ListStoredNames(ctx)
	if err != nil {
		logging.Error("Janitor could not list stored names: %v", err)
		return
	}

	removed := j.sweepDir(j.mediaDir, blobs)
	removed += j.sweepDir(j.thumbDir, thumbs)

	if removed > 0 {
		logging.Info("Janitor removed %d orphaned files", removed)
	}
}

// sweepDir removes regular files that no asset references, once they
// have been unreferenced long enough to rule out an in-flight upload.
func (j *Janitor) sweepDir(dir string, known map[string]bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Error("Janitor could not read %s: %v", dir, err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if known[name] {
			continue
		}

		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < orphanGraceAge {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logging.Warn("Janitor could not remove %s: %v", path, err)
			continue
		}
		metrics.JanitorOrphansRemoved.Inc()
		logging.Debug("Janitor removed orphan %s", path)
		removed++
	}
	return removed
}
