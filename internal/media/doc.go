// Package media handles the video side of ingestion: the upload
// allow-list, ffprobe metadata extraction, and thumbnail rendering
// through ffmpeg with an SVG placeholder fallback.
//
// Probing is best-effort. External tools can be missing or hang on
// corrupt files, so the Inspector degrades to zero metadata rather than
// failing the ingest, and every shell-out carries a timeout.
package media
