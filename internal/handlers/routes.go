package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the full route table. Middleware (logging, metrics,
// compression, session resolution) is layered on by the caller.
func (h *Handlers) Router(ws http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()

	// Probes and build info.
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/livez", h.Livez).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")

	// Session endpoints. /api/auth/session trusts verified claims and
	// must only be reachable from the auth proxy.
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/session", h.CreateSession).Methods("POST")
	auth.HandleFunc("/me", h.Me).Methods("GET")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", h.ListAssets).Methods("GET")
	api.HandleFunc("/assets/featured", h.Featured).Methods("GET")
	api.HandleFunc("/assets/mine", h.RequireUser(h.MyAssets)).Methods("GET")
	api.HandleFunc("/assets/{id:[0-9]+}", h.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id:[0-9]+}/like", h.RequireUser(h.ToggleLike)).Methods("POST")
	api.HandleFunc("/assets/{id:[0-9]+}/comments", h.ListComments).Methods("GET")
	api.HandleFunc("/assets/{id:[0-9]+}/comments", h.RequireUser(h.AddComment)).Methods("POST")
	api.HandleFunc("/assets/{id:[0-9]+}/poster", h.RequireUser(h.UploadPoster)).Methods("POST")
	api.HandleFunc("/comments/{id:[0-9]+}", h.RequireUser(h.DeleteComment)).Methods("DELETE")
	api.HandleFunc("/upload", h.RequireUser(h.Upload)).Methods("POST")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.HandleFunc("/pending", h.RequireAdmin(h.PendingAssets)).Methods("GET")
	admin.HandleFunc("/assets/{id:[0-9]+}/approve", h.RequireAdmin(h.ApproveAsset)).Methods("POST")
	admin.HandleFunc("/assets/{id:[0-9]+}/reject", h.RequireAdmin(h.RejectAsset)).Methods("POST")
	admin.HandleFunc("/assets/{id:[0-9]+}/feature", h.RequireAdmin(h.FeatureAsset)).Methods("POST")
	admin.HandleFunc("/assets/{id:[0-9]+}", h.RequireAdmin(h.DeleteAsset)).Methods("DELETE")

	// Byte delivery.
	r.HandleFunc("/media/{id:[0-9]+}", h.StreamMedia).Methods("GET", "HEAD")
	r.HandleFunc("/thumbnails/{id:[0-9]+}", h.Thumbnail).Methods("GET", "HEAD")

	if ws != nil {
		r.HandleFunc("/ws", ws).Methods("GET")
	}

	return r
}
