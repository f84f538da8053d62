// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the folder monitor's operations via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vigialabs/vigia/internal/diff"
	"github.com/vigialabs/vigia/internal/fleet"
	"github.com/vigialabs/vigia/internal/monitor"
)

// Server wraps the MCP server with monitor tools.
type Server struct {
	mcp      *server.MCPServer
	sessions *fleet.Fleet
}

// New creates a new MCP server with all tools registered.
func New(sessions *fleet.Fleet) *Server {
	s := &Server{sessions: sessions}

	s.mcp = server.NewMCPServer(
		"Vigia",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List all monitored folders with their checkpoint and change status."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("add_folder",
		mcp.WithDescription("Start monitoring a folder and persist it across restarts."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the folder to monitor")),
	), s.addFolder)

	s.mcp.AddTool(mcp.NewTool("remove_folder",
		mcp.WithDescription("Stop monitoring a folder and remove it from the registry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
	), s.removeFolder)

	s.mcp.AddTool(mcp.NewTool("list_changes",
		mcp.WithDescription("List recorded file changes for a folder. While a checkpoint is "+
			"active only changes made after it are returned."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
	), s.listChanges)

	s.mcp.AddTool(mcp.NewTool("create_checkpoint",
		mcp.WithDescription("Snapshot the folder's current state so later changes can be reverted."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
	), s.createCheckpoint)

	s.mcp.AddTool(mcp.NewTool("cancel_checkpoint",
		mcp.WithDescription("Discard the active checkpoint without touching any files."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
	), s.cancelCheckpoint)

	s.mcp.AddTool(mcp.NewTool("rollback_all",
		mcp.WithDescription("Restore every file in the folder to its checkpoint state."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
	), s.rollbackAll)

	s.mcp.AddTool(mcp.NewTool("rollback_file",
		mcp.WithDescription("Restore a single file to its checkpoint state."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the folder")),
	), s.rollbackFile)

	s.mcp.AddTool(mcp.NewTool("diff_file",
		mcp.WithDescription("Show a unified diff between a file's checkpoint copy and its current content."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Absolute path of the monitored folder")),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the folder")),
	), s.diffFile)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// folderMonitor resolves the "folder" argument to a running monitor.
func (s *Server) folderMonitor(req mcp.CallToolRequest) (*monitor.Monitor, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return nil, err
	}
	m, ok := s.sessions.Get(folder)
	if !ok {
		return nil, fmt.Errorf("folder is not monitored: %s", folder)
	}
	return m, nil
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.sessions.List(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	added, err := s.sessions.Add(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !added {
		return mcp.NewToolResultText(fmt.Sprintf("already monitored: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("monitoring: %s", path)), nil
}

func (s *Server) removeFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Remove(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", path)), nil
}

func (s *Server) listChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changes := m.Changes()
	if len(changes) == 0 {
		return mcp.NewToolResultText("no changes recorded"), nil
	}
	out, _ := json.MarshalIndent(changes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	warnings, err := m.CreateCheckpoint()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(warnings) > 0 {
		return mcp.NewToolResultText("checkpoint created with warnings:\n" + strings.Join(warnings, "\n")), nil
	}
	return mcp.NewToolResultText("checkpoint created"), nil
}

func (s *Server) cancelCheckpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.CancelCheckpoint(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("checkpoint cancelled, files untouched"), nil
}

func (s *Server) rollbackAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	warnings, err := m.Rollback()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(warnings) > 0 {
		return mcp.NewToolResultText("rollback finished with warnings:\n" + strings.Join(warnings, "\n")), nil
	}
	return mcp.NewToolResultText("rollback finished, all files restored"), nil
}

func (s *Server) rollbackFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := m.RollbackFile(rel); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %s", rel)), nil
}

func (s *Server) diffFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.folderMonitor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	checkpointPath, _ := m.CheckpointPath(rel)
	res, err := diff.File(rel, m.LivePath(rel), checkpointPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch {
	case res.BothMissing:
		return mcp.NewToolResultText("file not found in either version"), nil
	case res.Binary:
		return mcp.NewToolResultText("binary file, diff not available"), nil
	case res.Identical:
		return mcp.NewToolResultText("no differences, content identical to checkpoint"), nil
	}
	return mcp.NewToolResultText(res.Unified), nil
}
