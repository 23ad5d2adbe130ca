package janitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asock/catio-cam/internal/database"
)

func setupJanitor(t *testing.T) (*Janitor, *database.Database, string, string) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mediaDir := t.TempDir()
	thumbDir := t.TempDir()
	j := New(db, mediaDir, thumbDir, time.Hour)
	return j, db, mediaDir, thumbDir
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func age(t *testing.T, path string, by time.Duration) {
	t.Helper()
	old := time.Now().Add(-by)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Failed to age %s: %v", path, err)
	}
}

func TestSweepRemovesOrphans(t *testing.T) {
	j, db, mediaDir, thumbDir := setupJanitor(t)
	ctx := context.Background()

	u, err := db.UpsertUser(ctx, "owner@example.com", "Owner", "", "google", "sub-1")
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if _, err := db.InsertAsset(ctx, &database.Asset{
		UserID: u.ID, Title: "kept", StoredName: "kept.mp4",
		OriginalName: "kept.mp4", ContentType: "video/mp4",
		ThumbName: "kept.jpg", ThumbType: "image/jpeg",
		Status: database.StatusPublished,
	}); err != nil {
		t.Fatalf("InsertAsset failed: %v", err)
	}

	touch(t, filepath.Join(mediaDir, "kept.mp4"))
	touch(t, filepath.Join(mediaDir, "orphan.mp4"))
	touch(t, filepath.Join(thumbDir, "kept.jpg"))
	touch(t, filepath.Join(thumbDir, "orphan.jpg"))
	age(t, filepath.Join(mediaDir, "kept.mp4"), 48*time.Hour)
	age(t, filepath.Join(mediaDir, "orphan.mp4"), 48*time.Hour)
	age(t, filepath.Join(thumbDir, "kept.jpg"), 48*time.Hour)
	age(t, filepath.Join(thumbDir, "orphan.jpg"), 48*time.Hour)

	j.sweep(ctx)

	if _, err := os.Stat(filepath.Join(mediaDir, "kept.mp4")); err != nil {
		t.Error("referenced blob should survive the sweep")
	}
	if _, err := os.Stat(filepath.Join(mediaDir, "orphan.mp4")); !os.IsNotExist(err) {
		t.Error("orphaned blob should be removed")
	}
	if _, err := os.Stat(filepath.Join(thumbDir, "kept.jpg")); err != nil {
		t.Error("referenced thumbnail should survive the sweep")
	}
	if _, err := os.Stat(filepath.Join(thumbDir, "orphan.jpg")); !os.IsNotExist(err) {
		t.Error("orphaned thumbnail should be removed")
	}
}

func TestSweepKeepsFreshUnreferencedFiles(t *testing.T) {
	j, _, mediaDir, _ := setupJanitor(t)

	blob := filepath.Join(mediaDir, "abc123.mp4")
	touch(t, blob)

	j.sweep(context.Background())

	// A blob written moments ago may belong to an upload whose database
	// row has not committed yet.
	if _, err := os.Stat(blob); err != nil {
		t.Error("fresh unreferenced blob should survive the sweep")
	}
}

func TestSweepRemovesStaleUnreferencedFiles(t *testing.T) {
	j, _, mediaDir, _ := setupJanitor(t)

	blob := filepath.Join(mediaDir, "stale.mp4")
	touch(t, blob)
	age(t, blob, 48*time.Hour)

	j.sweep(context.Background())

	if _, err := os.Stat(blob); !os.IsNotExist(err) {
		t.Error("stale unreferenced blob should be removed")
	}
}
