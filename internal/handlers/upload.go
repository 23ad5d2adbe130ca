package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/asock/catio-cam/internal/ingest"
	"github.com/asock/catio-cam/internal/logging"
)

// maxFieldBytes bounds each metadata form field.
const maxFieldBytes = 4096

// Upload accepts a multipart video upload and runs it through the ingest
// pipeline. The file part must be named "file". Title, description, and
// tags ride alongside as form fields and must precede the file part: the
// file streams to disk as it arrives, so by the time a trailing field
// could be read the asset is already stored. Fields after the file part
// are ignored.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	// Parse only the form metadata into memory; the file part streams.
	reader, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Expected multipart upload", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			writeJSONError(w, "Missing file part", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeJSONError(w, "Malformed multipart body", http.StatusBadRequest)
			return
		}

		if part.FormName() != "file" {
			data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			part.Close()
			if err != nil {
				writeJSONError(w, "Malformed multipart body", http.StatusBadRequest)
				return
			}
			fields[part.FormName()] = string(data)
			continue
		}

		// The file part must come last so its metadata is available.
		asset, err := h.pipeline.Ingest(r.Context(), part, ingest.Request{
			UserID:       user.ID,
			OriginalName: part.FileName(),
			Title:        fields["title"],
			Description:  fields["description"],
			Tags:         fields["tags"],
		})
		part.Close()

		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, asset)
		case errors.Is(err, ingest.ErrUnsupportedType):
			writeJSONError(w, "Unsupported media type", http.StatusBadRequest)
		case errors.Is(err, ingest.ErrTooLarge):
			writeJSONError(w, "Upload exceeds size limit", http.StatusRequestEntityTooLarge)
		default:
			logging.Error("Ingest failed: %v", err)
			writeJSONError(w, "Upload failed", http.StatusInternalServerError)
		}
		return
	}
}
