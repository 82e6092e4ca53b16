// Package mcp exposes the story-editor surface as Model Context Protocol
// tools over stdio, so agent hosts can drive the same suggest/commit loop
// the interactive session uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/storyloom/storyloom/editor"
	"github.com/storyloom/storyloom/store"
)

const serverVersion = "0.3.0"

type Server struct {
	editor    *editor.Client
	store     *store.Client
	projectID int
	mcpServer *server.MCPServer
}

func NewServer(serverURL string, projectID int) *Server {
	s := &Server{
		editor:    editor.New(serverURL, projectID),
		store:     store.New(serverURL),
		projectID: projectID,
		mcpServer: server.NewMCPServer("storyloom", serverVersion),
	}
	s.registerTools()
	return s
}

// Serve blocks on stdio until the host closes the stream.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	suggestTool := mcp.NewTool("storyloom_suggest",
		mcp.WithDescription("Request candidate continuations for a chapter's current text"),
		mcp.WithNumber("chapter_id",
			mcp.Required(),
			mcp.Description("Chapter to continue"),
		),
		mcp.WithNumber("num_suggestions",
			mcp.Description("How many candidates to request (1-5, default 3)"),
		),
		mcp.WithString("context_hint",
			mcp.Description("Optional steering hint forwarded to the generator"),
		),
	)
	s.mcpServer.AddTool(suggestTool, s.handleSuggest)

	saveTool := mcp.NewTool("storyloom_save_line",
		mcp.WithDescription("Append one line of prose to a chapter"),
		mcp.WithNumber("chapter_id",
			mcp.Required(),
			mcp.Description("Chapter to append to"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The line to commit"),
		),
	)
	s.mcpServer.AddTool(saveTool, s.handleSaveLine)

	contentTool := mcp.NewTool("storyloom_chapter_content",
		mcp.WithDescription("Fetch the committed line sequence for a chapter"),
		mcp.WithNumber("chapter_id",
			mcp.Required(),
			mcp.Description("Chapter to read"),
		),
	)
	s.mcpServer.AddTool(contentTool, s.handleChapterContent)

	chaptersTool := mcp.NewTool("storyloom_chapters",
		mcp.WithDescription("List the project's chapters in order"),
	)
	s.mcpServer.AddTool(chaptersTool, s.handleChapters)

	createTool := mcp.NewTool("storyloom_create_draft_chapter",
		mcp.WithDescription("Create a new empty draft chapter at the end of the project"),
	)
	s.mcpServer.AddTool(createTool, s.handleCreateDraftChapter)

	statusTool := mcp.NewTool("storyloom_generation_status",
		mcp.WithDescription("Report the backend's generation status for the project"),
	)
	s.mcpServer.AddTool(statusTool, s.handleGenerationStatus)
}

func (s *Server) handleSuggest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	chapterID, err := intArg(args, "chapter_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	count := 3
	if n, err := intArg(args, "num_suggestions"); err == nil {
		count = n
	}
	if count < 1 || count > 5 {
		return mcp.NewToolResultError("num_suggestions must be between 1 and 5"), nil
	}

	hint, _ := args["context_hint"].(string)

	content, err := s.editor.ChapterContent(ctx, chapterID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load chapter content: %v", err)), nil
	}

	suggestions, err := s.editor.Suggest(ctx, editor.SuggestRequest{
		CurrentText:    strings.Join(content.Lines, "\n\n"),
		ChapterID:      chapterID,
		NumSuggestions: count,
		ContextHint:    hint,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("suggest: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"chapter_id":  chapterID,
		"suggestions": suggestions,
	})
}

func (s *Server) handleSaveLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	chapterID, err := intArg(args, "chapter_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, _ := args["content"].(string)
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("content must not be empty"), nil
	}

	res, err := s.editor.SaveLine(ctx, chapterID, strings.TrimSpace(content))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save line: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) handleChapterContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chapterID, err := intArg(request.GetArguments(), "chapter_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := s.editor.ChapterContent(ctx, chapterID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load chapter content: %v", err)), nil
	}
	return jsonResult(content)
}

func (s *Server) handleChapters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chapters, err := s.store.ListChapters(ctx, s.projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list chapters: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"project_id": s.projectID,
		"chapters":   chapters,
	})
}

func (s *Server) handleCreateDraftChapter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ch, err := s.editor.CreateDraftChapter(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create draft chapter: %v", err)), nil
	}
	return jsonResult(ch)
}

func (s *Server) handleGenerationStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.editor.GenerationStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation status: %v", err)), nil
	}
	return jsonResult(status)
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
