// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes task tools for LLM integration via stdio transport.
//
// Every tool goes through the mutation coordinator, so MCP edits follow the
// same rules as the CLI: optimistic store update, server reconciliation and
// session clearing on 401.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tasknote/internal/coordinator"
	"github.com/starford/tasknote/internal/store"
	"github.com/starford/tasknote/internal/wire"
)

const dateLayout = "2006-01-02"

// Server wraps the MCP server with task tools.
type Server struct {
	mcp   *server.MCPServer
	coord *coordinator.Coordinator
}

// New creates a new MCP server with all task tools registered.
func New(coord *coordinator.Coordinator) *Server {
	s := &Server{coord: coord}

	s.mcp = server.NewMCPServer(
		"TaskNote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the tasks scheduled on a day, in display order, with their notes."),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (empty for today)")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Create a task scheduled now, optionally with a first Markdown note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("note", mcp.Description("Optional Markdown note attached to the new task")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip a task between completed and not completed."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id as returned by list_tasks")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Attach a Markdown note to a task. Read the note format "+
			"via the tasknote://note-format resource first."),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Owning task id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown note content")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Search task titles and note content. Matches are wrapped in <mark>."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTasks)

	s.mcp.AddTool(mcp.NewTool("reorder_tasks",
		mcp.WithDescription("Set the display order of a day's tasks. ids must list every task of that day exactly once."),
		mcp.WithArray("ids", mcp.Required(), mcp.Description("Task ids in the desired order"),
			mcp.Items(map[string]any{"type": "number"})),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (empty for today)")),
	), s.reorderTasks)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Upload an image from an http(s) URL or a base64 data URI. "+
			"Returns a Markdown image reference to paste into a note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name used for the alt text")),
	), s.attachImage)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("How task notes are written: Markdown with embedded images."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

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

// dayWindow loads the window for the optional "date" argument.
func (s *Server) dayWindow(ctx context.Context, req mcp.CallToolRequest) (store.Window, error) {
	date := strings.TrimSpace(req.GetString("date", ""))
	if date == "" {
		return store.WindowToday, s.coord.Load(ctx)
	}
	day, err := time.ParseInLocation(dateLayout, date, s.coord.Location())
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}
	return store.WindowSelected, s.coord.SelectDate(ctx, day)
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := s.dayWindow(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(wire.TasksToDTO(s.coord.Store().Window(w)))
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := s.coord.AddTask(ctx, title, req.GetString("note", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(wire.TaskToDTO(task))
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// The coordinator only mutates loaded tasks.
	if _, ok := s.coord.Store().Find(int64(id)); !ok {
		if err := s.coord.Load(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	task, err := s.coord.ToggleTask(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state := "open"
	if task.Completed {
		state = "completed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("task %d is now %s", task.ID, state)), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireInt("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.coord.AddNote(ctx, int64(taskID), content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(wire.NoteToDTO(note))
}

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.coord.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(wire.TasksToDTO(results))
}

func (s *Server) reorderTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idList(req.GetArguments()["ids"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.dayWindow(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.coord.ReorderTasks(ctx, w, ids); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(wire.TasksToDTO(s.coord.Store().Window(w)))
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}

// idList accepts a JSON array of numbers as decoded from tool arguments.
func idList(v any) ([]int64, error) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("ids must be a non-empty array of task ids")
	}
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		switch n := item.(type) {
		case float64:
			ids = append(ids, int64(n))
		case int:
			ids = append(ids, int64(n))
		case int64:
			ids = append(ids, n)
		default:
			return nil, fmt.Errorf("ids must contain numbers, got %T", item)
		}
	}
	return ids, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
