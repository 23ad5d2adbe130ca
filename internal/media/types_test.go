package media

import "testing"

func TestIsAllowedVideo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"mp4", "clip.mp4", true},
		{"webm", "clip.webm", true},
		{"mov", "clip.mov", true},
		{"mkv", "clip.mkv", true},
		{"avi", "clip.avi", true},
		{"m4v", "clip.m4v", true},
		{"uppercase extension", "CLIP.MP4", true},
		{"mixed case", "Clip.Mp4", true},
		{"image", "photo.jpg", false},
		{"executable", "malware.exe", false},
		{"no extension", "clip", false},
		{"empty", "", false},
		{"double extension", "clip.mp4.exe", false},
		{"dotfile", ".mp4", false},
		{"path with directories", "a/b/clip.webm", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsAllowedVideo(tt.filename); got != tt.want {
				t.Errorf("IsAllowedVideo(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"clip.mp4", "video/mp4"},
		{"clip.webm", "video/webm"},
		{"clip.mov", "video/quicktime"},
		{"clip.mkv", "video/x-matroska"},
		{"CLIP.M4V", "video/x-m4v"},
		{"unknown.bin", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := ContentTypeFor(tt.filename); got != tt.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
