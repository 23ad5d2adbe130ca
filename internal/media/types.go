package media

import (
	"path/filepath"
	"strings"
)

// videoTypes maps the accepted upload extensions to their MIME types.
// Anything not in this table is rejected before a byte is written.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".m4v":  "video/x-m4v",
}

// IsAllowedVideo reports whether the filename carries an accepted video
// extension. Matching is case-insensitive.
func IsAllowedVideo(filename string) bool {
	_, ok := videoTypes[normalizeExt(filename)]
	return ok
}

// ContentTypeFor returns the MIME type for an accepted video filename,
// or "application/octet-stream" when the extension is unknown.
func ContentTypeFor(filename string) string {
	if ct, ok := videoTypes[normalizeExt(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Ext returns the lowercased extension of filename, including the dot.
func Ext(filename string) string {
	return normalizeExt(filename)
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
