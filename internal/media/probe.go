package media

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/metrics"
)

// Info holds the technical metadata extracted from a video file. Zero
// values mean the fields could not be determined.
type Info struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

// Inspector extracts technical metadata from a stored video file.
// Implementations must not fail the ingest: when the file cannot be
// analyzed they return a zero Info.
type Inspector interface {
	Inspect(ctx context.Context, path string) Info
}

// FFProbe inspects files by shelling out to ffprobe.
type FFProbe struct {
	timeout time.Duration
}

// NewFFProbe returns an Inspector bounded by the given per-file timeout.
func NewFFProbe(timeout time.Duration) *FFProbe {
	return &FFProbe{timeout: timeout}
}

// ffprobe's -print_format json layout, reduced to the fields we read.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Inspect runs ffprobe against the file. A missing binary, timeout, or
// unparseable output all degrade to a zero Info; the asset is still
// ingested, just without dimensions or duration.
func (p *FFProbe) Inspect(ctx context.Context, path string) Info {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Warn("ffprobe failed for %s: %v - %s", path, err, stderr.String())
		metrics.ProbeTotal.WithLabelValues("failed").Inc()
		return Info{}
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		logging.Warn("ffprobe output unparseable for %s: %v", path, err)
		metrics.ProbeTotal.WithLabelValues("failed").Inc()
		return Info{}
	}

	var info Info
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			break
		}
	}

	metrics.ProbeTotal.WithLabelValues("success").Inc()
	logging.Debug("Probed %s: %.1fs %dx%d %s", path, info.Duration, info.Width, info.Height, info.Codec)
	return info
}
