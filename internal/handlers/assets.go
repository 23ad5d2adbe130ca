package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/media"
)

// defaultListLimit caps the asset listing when the client does not ask
// for a specific page size.
const defaultListLimit = 60

// maxPosterBytes bounds poster image uploads.
const maxPosterBytes = 10 << 20

// ListAssets returns published assets, optionally filtered by tag or
// search text, most viewed first.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	assets, err := h.db.ListPublished(r.Context(), database.ListOptions{
		Tag:    strings.TrimSpace(q.Get("tag")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  limit,
	})
	if err != nil {
		logging.Error("Asset listing failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if assets == nil {
		assets = []database.Asset{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, assets)
}

// Featured returns the currently featured asset, if any.
func (h *Handlers) Featured(w http.ResponseWriter, r *http.Request) {
	asset, err := h.db.GetFeatured(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "No featured asset", http.StatusNotFound)
			return
		}
		logging.Error("Featured lookup failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, asset)
}

// GetAsset returns one asset's detail and counts the view. The liked
// flag is filled in for authenticated viewers.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Asset lookup failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !h.canView(r, asset) {
		writeJSONError(w, "Asset not found", http.StatusNotFound)
		return
	}

	// Watching counts. The counter mutates in SQL so concurrent views
	// all land; the response shows the incremented value.
	if asset.Status == database.StatusPublished {
		if err := h.db.IncrementViews(r.Context(), id); err != nil {
			logging.Warn("View count increment failed for %d: %v", id, err)
		} else {
			asset.Views++
		}
	}

	if user := UserFrom(r.Context()); user != nil {
		liked, err := h.db.HasLiked(r.Context(), user.ID, id)
		if err == nil {
			asset.IsLiked = liked
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, asset)
}

// MyAssets lists everything the authenticated user has uploaded,
// including pending and rejected items.
func (h *Handlers) MyAssets(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	assets, err := h.db.ListByOwner(r.Context(), user.ID)
	if err != nil {
		logging.Error("Owner listing failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if assets == nil {
		assets = []database.Asset{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, assets)
}

// LikeResponse reports the outcome of a like toggle.
type LikeResponse struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// ToggleLike flips the caller's like on an asset.
func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	liked, likes, err := h.db.ToggleLike(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Like toggle failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, LikeResponse{Liked: liked, Likes: likes})
}

// CommentRequest is the body for creating a comment.
type CommentRequest struct {
	Body string `json:"body"`
}

// maxCommentLength bounds a single comment.
const maxCommentLength = 2000

// AddComment posts a comment on an asset.
func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxCommentLength {
		writeJSONError(w, "Comment must be between 1 and 2000 characters", http.StatusBadRequest)
		return
	}

	// Commenting requires a viewable asset.
	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil || !h.canView(r, asset) {
		writeJSONError(w, "Asset not found", http.StatusNotFound)
		return
	}

	comment, err := h.db.AddComment(r.Context(), user.ID, id, req.Body)
	if err != nil {
		logging.Error("Comment insert failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, comment)
}

// ListComments returns the latest comments on an asset.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	comments, err := h.db.ListComments(r.Context(), id)
	if err != nil {
		logging.Error("Comment listing failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []database.Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, comments)
}

// DeleteComment removes a comment. Allowed for the author or an admin.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid comment id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	comment, err := h.db.GetComment(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Comment not found", http.StatusNotFound)
			return
		}
		logging.Error("Comment lookup failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if comment.UserID != user.ID && !user.IsAdmin {
		writeJSONError(w, "Not your comment", http.StatusForbidden)
		return
	}

	if err := h.db.DeleteComment(r.Context(), id); err != nil {
		logging.Error("Comment delete failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "deleted")
}

// UploadPoster replaces an asset's generated thumbnail with an uploaded
// image. Owner or admin only.
func (h *Handlers) UploadPoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Asset lookup failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if asset.UserID != user.ID && !user.IsAdmin {
		writeJSONError(w, "Not your asset", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(maxPosterBytes); err != nil {
		writeJSONError(w, "Expected multipart upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("poster")
	if err != nil {
		writeJSONError(w, "Missing poster part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPosterBytes+1))
	if err != nil {
		writeJSONError(w, "Failed to read poster", http.StatusBadRequest)
		return
	}
	if len(data) > maxPosterBytes {
		writeJSONError(w, "Poster too large", http.StatusRequestEntityTooLarge)
		return
	}

	posterName := strings.TrimSuffix(asset.StoredName, media.Ext(asset.StoredName)) + "-poster.jpg"
	if err := media.DecodePoster(data, filepath.Join(h.thumbDir, posterName)); err != nil {
		writeJSONError(w, "Unsupported image format", http.StatusBadRequest)
		return
	}

	if err := h.db.SetThumbnail(r.Context(), id, posterName, "image/jpeg"); err != nil {
		logging.Error("Thumbnail update failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "updated")
}
