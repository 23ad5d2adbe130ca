package delivery

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/metrics"
	"github.com/asock/catio-cam/internal/streaming"
)

// DefaultWindow is how much is served when a Range request leaves the end
// open. Browsers issue "bytes=0-" for the first probe; answering with a
// bounded window keeps seeks cheap and lets the player request exactly
// what it needs next.
const DefaultWindow int64 = 5 << 20

// ErrInvalidRange reports a Range header that cannot be satisfied.
var ErrInvalidRange = errors.New("invalid range")

// byteRange is a resolved, inclusive byte span within a file.
type byteRange struct {
	start  int64
	end    int64
	length int64
}

// parseRange resolves a Range header against the file size. Only single
// "bytes=start-end" ranges are supported; multipart ranges and suffix
// ranges get ErrInvalidRange, which the caller turns into a 416.
func parseRange(header string, size int64) (byteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return byteRange{}, ErrInvalidRange
	}
	if strings.Contains(spec, ",") {
		return byteRange{}, ErrInvalidRange
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" {
		return byteRange{}, ErrInvalidRange
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, ErrInvalidRange
	}
	if start >= size {
		return byteRange{}, ErrInvalidRange
	}

	var end int64
	if endStr == "" {
		end = start + DefaultWindow - 1
	} else {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return byteRange{}, ErrInvalidRange
		}
	}
	if end > size-1 {
		end = size - 1
	}

	return byteRange{start: start, end: end, length: end - start + 1}, nil
}

// ServeFile streams a media blob, honoring single-part Range requests.
// Stored blobs are content-addressed and never change, so responses are
// marked immutable.
func ServeFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("not_found").Inc()
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	size := fi.Size()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		serveFull(w, r, f, size)
		return
	}

	br, err := parseRange(rangeHeader, size)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("invalid_range").Inc()
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := f.Seek(br.start, io.SeekStart); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.start, br.end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(br.length, 10))
	w.WriteHeader(http.StatusPartialContent)

	n, err := streaming.Copy(r.Context(), w, io.LimitReader(f, br.length), streaming.DefaultConfig())
	metrics.DeliveryBytesTotal.Add(float64(n))
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Partial delivery aborted for %s: %v", path, err)
		return
	}
	metrics.DeliveriesTotal.WithLabelValues("partial").Inc()
}

func serveFull(w http.ResponseWriter, r *http.Request, f *os.File, size int64) {
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	n, err := streaming.Copy(r.Context(), w, f, streaming.DefaultConfig())
	metrics.DeliveryBytesTotal.Add(float64(n))
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Full delivery aborted: %v", err)
		return
	}
	metrics.DeliveriesTotal.WithLabelValues("full").Inc()
}
