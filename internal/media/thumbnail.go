package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/metrics"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// thumbWidth bounds the longest edge of a rendered thumbnail.
	thumbWidth  = 480
	thumbHeight = 270

	jpegQuality = 80

	// minSeekDuration is the shortest video we bother seeking into.
	// Anything shorter gets its first frame.
	minSeekDuration = 2.0
)

// Renderer produces thumbnails for ingested assets.
type Renderer interface {
	// RenderFrame extracts a frame from the video at path and writes a
	// JPEG thumbnail to destPath. duration picks the seek point.
	RenderFrame(ctx context.Context, path, destPath string, duration float64) error

	// Placeholder writes an SVG placeholder to destPath for assets whose
	// frame extraction failed.
	Placeholder(destPath, title string) error
}

// FFMpegRenderer extracts frames by shelling out to ffmpeg.
type FFMpegRenderer struct {
	timeout time.Duration
}

// NewFFMpegRenderer returns a Renderer with the given per-file timeout.
func NewFFMpegRenderer(timeout time.Duration) *FFMpegRenderer {
	return &FFMpegRenderer{timeout: timeout}
}

// seekPoint picks the frame timestamp: a quarter of the way in, or the
// very first frame when the duration is unknown or the clip is too short
// to seek safely.
func seekPoint(duration float64) float64 {
	if duration <= minSeekDuration {
		return 0
	}
	return duration * 0.25
}

// RenderFrame pulls one frame out of the video over an image2pipe,
// decodes it, fits it into the thumbnail bounds, and writes a JPEG.
func (r *FFMpegRenderer) RenderFrame(ctx context.Context, path, destPath string, duration float64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	seek := seekPoint(duration)

	// -ss before -i makes ffmpeg seek on the demuxer, which is fast even
	// on large files.
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.2f", seek),
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w - %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return fmt.Errorf("ffmpeg produced no frame for %s", path)
	}

	img, _, err := image.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	if err := writeJPEG(destPath, thumb); err != nil {
		return err
	}

	metrics.ThumbnailsTotal.WithLabelValues("frame").Inc()
	logging.Debug("Rendered thumbnail for %s at %.2fs", path, seek)
	return nil
}

func writeJPEG(destPath string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return os.Rename(tmp, destPath)
}

// placeholderSVG is the stand-in thumbnail for assets that never got a
// frame. Deterministic output so repeated renders are byte-identical.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="480" height="270" viewBox="0 0 480 270">
  <rect width="480" height="270" fill="#1a1a2e"/>
  <text x="240" y="120" text-anchor="middle" font-family="sans-serif" font-size="28" fill="#e0e0e0">%s</text>
  <text x="240" y="170" text-anchor="middle" font-family="sans-serif" font-size="16" fill="#8888aa">catio.cam</text>
</svg>
`

// Placeholder writes the SVG stand-in. The title is XML-escaped and
// truncated so arbitrary upload names cannot break the markup.
func (r *FFMpegRenderer) Placeholder(destPath, title string) error {
	svg := fmt.Sprintf(placeholderSVG, escapeXML(truncate(title, 32)))
	if err := os.WriteFile(destPath, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write placeholder: %w", err)
	}
	metrics.ThumbnailsTotal.WithLabelValues("placeholder").Inc()
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// DecodePoster validates and normalizes a user-supplied poster image.
// Any format the image registry knows (JPEG, PNG, GIF, WebP) is accepted;
// the result is always a JPEG fitted to the thumbnail bounds at destPath.
func DecodePoster(data []byte, destPath string) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode poster image: %w", err)
	}

	poster := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)
	if err := writeJPEG(destPath, poster); err != nil {
		return err
	}
	logging.Debug("Decoded poster to %s", filepath.Base(destPath))
	return nil
}
