package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vigialabs/vigia/internal/fleet"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(f *fleet.Fleet, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(f)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Folder registry.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.AddFolder)
	r.Delete("/folders", h.RemoveFolder)

	// Change tracking.
	r.Get("/changes", h.ListChanges)
	r.Post("/changes/clear", h.ClearChanges)

	// Checkpoint lifecycle.
	r.Post("/checkpoint", h.CreateCheckpoint)
	r.Delete("/checkpoint", h.CancelCheckpoint)

	// Rollback.
	r.Post("/rollback", h.Rollback)
	r.Post("/rollback/file", h.RollbackFile)

	// Diff against the checkpoint copy.
	r.Get("/diff", h.Diff)

	// Ignore patterns.
	r.Post("/ignore/reload", h.ReloadIgnore)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
