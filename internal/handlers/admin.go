package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/hub"
	"github.com/asock/catio-cam/internal/logging"
)

// PendingAssets lists uploads awaiting moderation.
func (h *Handlers) PendingAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.db.ListByStatus(r.Context(), database.StatusProcessing)
	if err != nil {
		logging.Error("Pending listing failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if assets == nil {
		assets = []database.Asset{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, assets)
}

// ApproveAsset publishes a pending asset and broadcasts the decision.
func (h *Handlers) ApproveAsset(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, database.StatusPublished, hub.EventPublished)
}

// RejectAsset refuses a pending asset.
func (h *Handlers) RejectAsset(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, database.StatusRejected, hub.EventRejected)
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request, status database.AssetStatus, event string) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	if err := h.db.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Status update failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	asset, err := h.db.GetAsset(r.Context(), id)
	if err == nil {
		h.hub.Broadcast(event, asset)
	}

	logging.Info("Asset %d moderated to %s", id, status)
	writeJSONStatus(w, string(status))
}

// FeatureAsset makes an asset the single featured one and broadcasts the
// change.
func (h *Handlers) FeatureAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	if err := h.db.SetFeatured(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Feature swap failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	asset, err := h.db.GetAsset(r.Context(), id)
	if err == nil {
		h.hub.Broadcast(hub.EventFeaturedChanged, asset)
	}

	logging.Info("Asset %d is now featured", id)
	writeJSONStatus(w, "featured")
}

// DeleteAsset removes an asset's metadata and both backing files, then
// broadcasts the removal.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid asset id", http.StatusBadRequest)
		return
	}

	storedName, thumbName, err := h.db.DeleteAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		logging.Error("Asset delete failed: %v", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// The row is gone; file removal is best-effort and the janitor picks
	// up anything left behind.
	h.removeFile(filepath.Join(h.mediaDir, storedName))
	if thumbName != "" {
		h.removeFile(filepath.Join(h.thumbDir, thumbName))
	}

	h.hub.Broadcast(hub.EventAssetDeleted, map[string]int64{"id": id})

	logging.Info("Asset %d deleted", id)
	writeJSONStatus(w, "deleted")
}

func (h *Handlers) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove %s: %v", path, err)
	}
}
