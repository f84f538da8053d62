package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vigialabs/vigia/internal/apperr"
	"github.com/vigialabs/vigia/internal/checksum"
	"github.com/vigialabs/vigia/internal/diff"
	"github.com/vigialabs/vigia/internal/fleet"
	"github.com/vigialabs/vigia/internal/monitor"
)

// Handler holds API route handlers.
type Handler struct {
	fleet *fleet.Fleet
}

// NewHandler creates a new Handler.
func NewHandler(f *fleet.Fleet) *Handler {
	return &Handler{fleet: f}
}

// folderMonitor resolves the "folder" query parameter to a running
// monitor, writing the error response itself when that fails.
func (h *Handler) folderMonitor(w http.ResponseWriter, r *http.Request) (*monitor.Monitor, bool) {
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'folder' is required"))
		return nil, false
	}
	m, ok := h.fleet.Get(folder)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("folder is not monitored"))
		return nil, false
	}
	return m, true
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: h.fleet.List()})
}

// AddFolder handles POST /api/folders.
func (h *Handler) AddFolder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	added, err := h.fleet.Add(req.Path)
	if err != nil {
		slog.Error("add folder failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"path": req.Path, "added": added})
}

// RemoveFolder handles DELETE /api/folders.
func (h *Handler) RemoveFolder(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'folder' is required"))
		return
	}
	if err := h.fleet.Remove(folder); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("folder is not monitored"))
		} else {
			slog.Error("remove folder failed", slog.String("path", folder), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChanges handles GET /api/changes.
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ChangesResponse{
		Folder:        m.Root(),
		HasCheckpoint: m.HasCheckpoint(),
		Changes:       m.Changes(),
	})
}

// ClearChanges handles POST /api/changes/clear.
func (h *Handler) ClearChanges(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	if err := m.ClearChanges(); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("cannot clear changes while a checkpoint is active"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCheckpoint handles POST /api/checkpoint.
func (h *Handler) CreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	warnings, err := m.CreateCheckpoint()
	if err != nil {
		slog.Error("create checkpoint failed", slog.String("folder", m.Root()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, BatchResult{Ok: len(warnings) == 0, Warnings: warnings})
}

// CancelCheckpoint handles DELETE /api/checkpoint.
func (h *Handler) CancelCheckpoint(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	if err := m.CancelCheckpoint(); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("no active checkpoint"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rollback handles POST /api/rollback.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	warnings, err := m.Rollback()
	if err != nil {
		writeJSON(w, http.StatusConflict, errorBody("no active checkpoint"))
		return
	}
	writeJSON(w, http.StatusOK, BatchResult{Ok: len(warnings) == 0, Warnings: warnings})
}

// RollbackFile handles POST /api/rollback/file.
func (h *Handler) RollbackFile(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	rel := r.URL.Query().Get("path")
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	if err := m.RollbackFile(rel); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoCheckpoint):
			writeJSON(w, http.StatusConflict, errorBody("no active checkpoint"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("path is not tracked"))
		default:
			slog.Error("rollback file failed",
				slog.String("folder", m.Root()), slog.String("path", rel), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Diff handles GET /api/diff.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	rel := r.URL.Query().Get("path")
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}

	// Manifest fast path: identical content needs no line diff.
	if sum, ok := m.CheckpointSum(rel); ok {
		if cur, sumErr := checksum.SumFile(m.LivePath(rel)); sumErr == nil && cur == sum {
			writeJSON(w, http.StatusOK, &diff.Result{Identical: true})
			return
		}
	}

	checkpointPath, _ := m.CheckpointPath(rel)
	res, err := diff.File(rel, m.LivePath(rel), checkpointPath)
	if err != nil {
		slog.Error("diff failed",
			slog.String("folder", m.Root()), slog.String("path", rel), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ReloadIgnore handles POST /api/ignore/reload.
func (h *Handler) ReloadIgnore(w http.ResponseWriter, r *http.Request) {
	m, ok := h.folderMonitor(w, r)
	if !ok {
		return
	}
	m.ReloadIgnorePatterns()
	writeJSON(w, http.StatusOK, map[string]any{"patterns": m.IgnorePatterns()})
}
