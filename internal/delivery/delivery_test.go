package delivery

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	const size = 1000

	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{"first hundred", "bytes=0-99", 0, 99, false},
		{"middle span", "bytes=200-299", 200, 299, false},
		{"single byte", "bytes=5-5", 5, 5, false},
		{"open end clamps to size", "bytes=900-", 900, 999, false},
		{"open end within window", "bytes=0-", 0, 999, false},
		{"end beyond size clamps", "bytes=0-5000", 0, 999, false},
		{"last byte", "bytes=999-999", 999, 999, false},
		{"start at size", "bytes=1000-", 0, 0, true},
		{"start beyond size", "bytes=5000-", 0, 0, true},
		{"end before start", "bytes=300-200", 0, 0, true},
		{"negative start", "bytes=-100-200", 0, 0, true},
		{"suffix range", "bytes=-500", 0, 0, true},
		{"missing prefix", "0-99", 0, 0, true},
		{"wrong unit", "items=0-99", 0, 0, true},
		{"multipart", "bytes=0-99,200-299", 0, 0, true},
		{"garbage start", "bytes=abc-99", 0, 0, true},
		{"garbage end", "bytes=0-xyz", 0, 0, true},
		{"empty spec", "bytes=", 0, 0, true},
		{"bare dash", "bytes=-", 0, 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			br, err := parseRange(tt.header, size)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("parseRange(%q) error = %v, want ErrInvalidRange", tt.header, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRange(%q) failed: %v", tt.header, err)
			}
			if br.start != tt.wantStart || br.end != tt.wantEnd {
				t.Errorf("parseRange(%q) = [%d, %d], want [%d, %d]",
					tt.header, br.start, br.end, tt.wantStart, tt.wantEnd)
			}
			if br.length != br.end-br.start+1 {
				t.Errorf("length %d inconsistent with span [%d, %d]", br.length, br.start, br.end)
			}
		})
	}
}

func TestParseRangeDefaultWindow(t *testing.T) {
	t.Parallel()

	// On a file larger than the window, an open-ended range gets exactly
	// the default window, not the rest of the file.
	size := DefaultWindow * 3
	br, err := parseRange("bytes=0-", size)
	if err != nil {
		t.Fatalf("parseRange failed: %v", err)
	}
	if br.length != DefaultWindow {
		t.Errorf("open-ended range length = %d, want %d", br.length, DefaultWindow)
	}
	if br.end != DefaultWindow-1 {
		t.Errorf("open-ended range end = %d, want %d", br.end, DefaultWindow-1)
	}

	// Starting mid-file still gets a full window when one fits.
	br, err = parseRange("bytes=100-", size)
	if err != nil {
		t.Fatalf("parseRange failed: %v", err)
	}
	if br.start != 100 || br.length != DefaultWindow {
		t.Errorf("got [%d, %d] length %d, want window of %d from 100", br.start, br.end, br.length, DefaultWindow)
	}
}

func writeTestBlob(t *testing.T, size int) string {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "blob.mp4")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test blob: %v", err)
	}
	return path
}

func TestServeFileFull(t *testing.T) {
	t.Parallel()

	path := writeTestBlob(t, 1000)

	req := httptest.NewRequest(http.MethodGet, "/media/blob.mp4", nil)
	rec := httptest.NewRecorder()

	ServeFile(rec, req, path, "video/mp4")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Errorf("Content-Length = %q, want 1000", got)
	}
	if !bytes.Contains([]byte(rec.Header().Get("Cache-Control")), []byte("immutable")) {
		t.Errorf("Cache-Control = %q, want immutable", rec.Header().Get("Cache-Control"))
	}
	if rec.Body.Len() != 1000 {
		t.Errorf("body length = %d, want 1000", rec.Body.Len())
	}
}

func TestServeFilePartial(t *testing.T) {
	t.Parallel()

	path := writeTestBlob(t, 1000)

	req := httptest.NewRequest(http.MethodGet, "/media/blob.mp4", nil)
	req.Header.Set("Range", "bytes=0-99")
	rec := httptest.NewRecorder()

	ServeFile(rec, req, path, "video/mp4")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Errorf("Content-Range = %q, want bytes 0-99/1000", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Errorf("Content-Length = %q, want 100", got)
	}
	if rec.Body.Len() != 100 {
		t.Fatalf("body length = %d, want 100", rec.Body.Len())
	}
	// Spot-check the window holds the right bytes.
	if rec.Body.Bytes()[0] != 0 || rec.Body.Bytes()[99] != 99 {
		t.Error("partial body does not match the requested span")
	}
}

func TestServeFileTail(t *testing.T) {
	t.Parallel()

	path := writeTestBlob(t, 1000)

	req := httptest.NewRequest(http.MethodGet, "/media/blob.mp4", nil)
	req.Header.Set("Range", "bytes=900-")
	rec := httptest.NewRecorder()

	ServeFile(rec, req, path, "video/mp4")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 900-999/1000" {
		t.Errorf("Content-Range = %q, want bytes 900-999/1000", got)
	}
	if rec.Body.Len() != 100 {
		t.Errorf("body length = %d, want 100", rec.Body.Len())
	}
}

func TestServeFileUnsatisfiableRange(t *testing.T) {
	t.Parallel()

	path := writeTestBlob(t, 1000)

	for _, header := range []string{"bytes=5000-", "bytes=300-200", "bytes=abc-def", "bytes=-500"} {
		req := httptest.NewRequest(http.MethodGet, "/media/blob.mp4", nil)
		req.Header.Set("Range", header)
		rec := httptest.NewRecorder()

		ServeFile(rec, req, path, "video/mp4")

		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Errorf("Range %q: status = %d, want 416", header, rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
			t.Errorf("Range %q: Content-Range = %q, want bytes */1000", header, got)
		}
	}
}

func TestServeFileMissing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/media/gone.mp4", nil)
	rec := httptest.NewRecorder()

	ServeFile(rec, req, filepath.Join(t.TempDir(), "gone.mp4"), "video/mp4")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
