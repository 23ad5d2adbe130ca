package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/hub"
	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/media"
	"github.com/asock/catio-cam/internal/metrics"
	"github.com/asock/catio-cam/internal/startup"
	"github.com/asock/catio-cam/internal/workers"
)

// copyChunkSize bounds each read while draining an upload, so the size
// ceiling is enforced without buffering the whole body.
const copyChunkSize = 1 << 20

// storedNameBytes is how much of the hash survives into the filename.
// 16 bytes (32 hex characters) is plenty against collisions.
const storedNameBytes = 16

// Errors the handler maps onto response codes.
var (
	// ErrUnsupportedType rejects files whose extension is not on the
	// video allow-list. Checked before any byte is written.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrTooLarge rejects uploads exceeding the configured ceiling. The
	// partial file is removed before this is returned.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// Broadcaster pushes site events to connected viewers.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// Pipeline turns an upload stream into a stored, probed, thumbnailed,
// persisted asset.
type Pipeline struct {
	db        *database.Database
	inspector media.Inspector
	renderer  media.Renderer
	events    Broadcaster

	mediaDir string
	thumbDir string
	maxBytes int64
	policy   startup.PublishPolicy
	toolSlot chan struct{}
}

// Request carries the user-supplied fields accompanying an upload.
type Request struct {
	UserID       int64
	OriginalName string
	Title        string
	Description  string
	Tags         string
}

// New builds a pipeline. Probing and frame rendering share an I/O-sized
// worker pool so a burst of uploads cannot fork unbounded ffprobe or
// ffmpeg processes.
func New(db *database.Database, inspector media.Inspector, renderer media.Renderer, events Broadcaster, cfg *startup.Config) *Pipeline {
	slots := workers.ForIO(8)
	logging.Debug("Ingest pipeline: %d media tool slots", slots)

	return &Pipeline{
		db:        db,
		inspector: inspector,
		renderer:  renderer,
		events:    events,
		mediaDir:  cfg.MediaDir,
		thumbDir:  cfg.ThumbnailDir,
		maxBytes:  cfg.MaxUploadBytes,
		policy:    cfg.PublishPolicy,
		toolSlot:  make(chan struct{}, slots),
	}
}

// storedName derives the on-disk filename for an upload. The client
// filename never touches a storage path; it only seeds the hash.
func storedName(userID int64, originalName string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d", userID, originalName, time.Now().UnixNano())))
	return hex.EncodeToString(sum[:storedNameBytes]) + media.Ext(originalName)
}

// Ingest runs the full pipeline on an upload stream. On any error no
// partial file is left behind.
func (p *Pipeline) Ingest(ctx context.Context, body io.Reader, req Request) (*database.Asset, error) {
	start := time.Now()

	if !media.IsAllowedVideo(req.OriginalName) {
		metrics.IngestsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, media.Ext(req.OriginalName))
	}

	name := storedName(req.UserID, req.OriginalName)
	blobPath := filepath.Join(p.mediaDir, name)

	size, err := p.receive(ctx, body, blobPath)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			metrics.IngestsTotal.WithLabelValues("too_large").Inc()
		default:
			metrics.IngestsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	info := p.probe(ctx, blobPath)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.OriginalName
	}

	thumbName, thumbType, err := p.thumbnail(ctx, blobPath, name, title, info.Duration)
	if err != nil {
		p.cleanup(blobPath)
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	status := database.StatusProcessing
	if p.policy == startup.PolicyPublished {
		status = database.StatusPublished
	}

	asset, err := p.db.InsertAsset(ctx, &database.Asset{
		UserID:       req.UserID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		StoredName:   name,
		OriginalName: req.OriginalName,
		Size:         size,
		Duration:     info.Duration,
		Width:        info.Width,
		Height:       info.Height,
		ContentType:  media.ContentTypeFor(req.OriginalName),
		ThumbName:    thumbName,
		ThumbType:    thumbType,
		Tags:         normalizeTags(req.Tags),
		Status:       status,
	})
	if err != nil {
		p.cleanup(blobPath, filepath.Join(p.thumbDir, thumbName))
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist asset: %w", err)
	}

	metrics.IngestsTotal.WithLabelValues("success").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	metrics.IngestBytesTotal.Add(float64(size))
	logging.Info("Ingested %q as %s (%d bytes, %.1fs, status %s)",
		req.OriginalName, name, size, info.Duration, status)

	p.events.Broadcast(hub.EventNewAsset, asset)

	return asset, nil
}

// receive drains the upload into the blob file in fixed-size chunks,
// enforcing the size ceiling as bytes arrive. Ceiling hits, read errors,
// and client disconnects all remove the partial file.
func (p *Pipeline) receive(ctx context.Context, body io.Reader, blobPath string) (int64, error) {
	f, err := os.OpenFile(blobPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}

	var written int64
	buf := make([]byte, copyChunkSize)

	abort := func(cause error) (int64, error) {
		f.Close()
		if rmErr := os.Remove(blobPath); rmErr != nil {
			logging.Warn("Failed to remove partial upload %s: %v", blobPath, rmErr)
		}
		return 0, cause
	}

	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if written+int64(n) > p.maxBytes {
				return abort(fmt.Errorf("%w: limit %d bytes", ErrTooLarge, p.maxBytes))
			}
			if _, err := f.Write(buf[:n]); err != nil {
				return abort(fmt.Errorf("failed to write upload: %w", err))
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return abort(fmt.Errorf("failed to read upload: %w", readErr))
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(blobPath)
		return 0, fmt.Errorf("failed to close upload file: %w", err)
	}
	if written == 0 {
		os.Remove(blobPath)
		return 0, fmt.Errorf("%w: empty upload", ErrUnsupportedType)
	}

	return written, nil
}

// probe extracts metadata under the tool-slot semaphore.
func (p *Pipeline) probe(ctx context.Context, blobPath string) media.Info {
	select {
	case p.toolSlot <- struct{}{}:
		defer func() { <-p.toolSlot }()
	case <-ctx.Done():
		return media.Info{}
	}
	return p.inspector.Inspect(ctx, blobPath)
}

// renderFrame runs the renderer under the same semaphore that bounds
// probes, so concurrent uploads cannot fork unbounded ffmpeg processes.
func (p *Pipeline) renderFrame(ctx context.Context, blobPath, destPath string, duration float64) error {
	select {
	case p.toolSlot <- struct{}{}:
		defer func() { <-p.toolSlot }()
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.renderer.RenderFrame(ctx, blobPath, destPath, duration)
}

// thumbnail renders a frame, falling back to the SVG placeholder. An
// asset always ends up with a thumbnail; if even the placeholder cannot
// be written the ingest fails.
func (p *Pipeline) thumbnail(ctx context.Context, blobPath, name, title string, duration float64) (string, string, error) {
	base := strings.TrimSuffix(name, media.Ext(name))

	frameName := base + ".jpg"
	err := p.renderFrame(ctx, blobPath, filepath.Join(p.thumbDir, frameName), duration)
	if err == nil {
		return frameName, "image/jpeg", nil
	}
	logging.Warn("Frame extraction failed for %s: %v", name, err)

	placeholderName := base + ".svg"
	if err := p.renderer.Placeholder(filepath.Join(p.thumbDir, placeholderName), title); err != nil {
		return "", "", fmt.Errorf("failed to write placeholder thumbnail: %w", err)
	}
	return placeholderName, "image/svg+xml", nil
}

func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if path == p.mediaDir || path == p.thumbDir {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Cleanup failed for %s: %v", path, err)
		}
	}
}

// normalizeTags lowercases and deduplicates a comma-separated tag list.
func normalizeTags(raw string) string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return strings.Join(tags, ",")
}
