package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/delivery"
	"github.com/asock/catio-cam/internal/logging"
)

// StreamMedia serves an asset's blob with Range support. Unpublished
// assets are visible only to their owner and admins.
func (h *Handlers) StreamMedia(w http.ResponseWriter, r *http.Request) {
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

	delivery.ServeFile(w, r, filepath.Join(h.mediaDir, asset.StoredName), asset.ContentType)
}

// Thumbnail serves an asset's thumbnail image.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
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

	if asset.ThumbName == "" || !h.canView(r, asset) {
		writeJSONError(w, "Thumbnail not found", http.StatusNotFound)
		return
	}

	delivery.ServeFile(w, r, filepath.Join(h.thumbDir, asset.ThumbName), asset.ThumbType)
}

// canView reports whether the request may see an asset: published assets
// are public, everything else is owner-or-admin only.
func (h *Handlers) canView(r *http.Request, asset *database.Asset) bool {
	if asset.Status == database.StatusPublished {
		return true
	}
	user := UserFrom(r.Context())
	if user == nil {
		return false
	}
	return user.ID == asset.UserID || user.IsAdmin
}
