package api

import (
	"github.com/vigialabs/vigia/internal/diff"
	"github.com/vigialabs/vigia/internal/fleet"
	"github.com/vigialabs/vigia/internal/ledger"
)

// AddFolderRequest is the request body for registering a folder.
type AddFolderRequest struct {
	Path string `json:"path"`
}

// FolderStatus is one monitored folder (aliased from the domain layer).
type FolderStatus = fleet.Status

// FolderListResponse wraps the folder listing.
type FolderListResponse struct {
	Folders []FolderStatus `json:"folders"`
}

// ChangesResponse maps relative paths to their recorded change.
type ChangesResponse struct {
	Folder        string                   `json:"folder"`
	HasCheckpoint bool                     `json:"has_checkpoint"`
	Changes       map[string]ledger.Change `json:"changes"`
}

// BatchResult reports a checkpoint or rollback outcome. Ok is true when
// no per-file warnings were collected.
type BatchResult struct {
	Ok       bool     `json:"ok"`
	Warnings []string `json:"warnings,omitempty"`
}

// DiffResponse is the unified diff payload (aliased from the domain layer).
type DiffResponse = diff.Result
