package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"worklink/src/contracts"
	"worklink/src/logger"
	"worklink/src/pipeline"
	"worklink/src/sanitize"
	"worklink/src/store"
	"worklink/src/tracker"
)

const (
	defaultWaitTimeout  = 60 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Server is the MCP server for worklink.
type Server struct {
	mcpServer    *server.MCPServer
	pipeline     pipeline.Pipeline
	logger       logger.Logger
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithWaitTimeout bounds how long map_work_items waits for a result before
// returning the request ID for a later get_work_items call.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.waitTimeout = d
	}
}

// WithPollInterval sets how often request status is polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		s.pollInterval = d
	}
}

// WithLogger sets the server logger. MCP uses stdout for protocol traffic, so
// this should write to stderr.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.logger = log
	}
}

// NewServer creates a new MCP server backed by p.
func NewServer(p pipeline.Pipeline, version string, opts ...Option) *Server {
	srv := &Server{
		mcpServer: server.NewMCPServer(
			"worklink",
			version,
			server.WithToolCapabilities(true),
		),
		pipeline:     p,
		logger:       logger.NewSilentLogger(),
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	mapTool := mcp.NewTool("map_work_items",
		mcp.WithDescription("Find GitHub issues referenced by commit messages (\"Fixes #12\", \"closes owner/repo#3\", \"GH-7\", issue URLs) and return links with their titles or release notes."),
		mcp.WithString("vcs_root",
			mcp.Required(),
			mcp.Description("Repository URL the commits belong to, e.g. https://github.com/owner/repo"),
		),
		mcp.WithString("commits",
			mcp.Required(),
			mcp.Description(`JSON array of commits: [{"id": "<sha>", "comment": "<message>"}]`),
		),
		mcp.WithString("vcs_type",
			mcp.Description("Version control type (default: Git)"),
		),
	)

	getTool := mcp.NewTool("get_work_items",
		mcp.WithDescription("Get the status and links of an earlier map_work_items request. Use when map_work_items returned before mapping finished."),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Request ID from a map_work_items response"),
		),
	)

	s.mcpServer.AddTool(mapTool, s.handleMapWorkItems)
	s.mcpServer.AddTool(getTool, s.handleGetWorkItems)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleMapWorkItems submits commits for mapping and waits for the result.
func (s *Server) handleMapWorkItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vcsRoot := strings.TrimSpace(request.GetString("vcs_root", ""))
	if vcsRoot == "" {
		return mcp.NewToolResultError("vcs_root parameter is required"), nil
	}

	commits, err := parseCommits(request.GetString("commits", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	build := contracts.BuildInfo{
		VcsRoot: vcsRoot,
		VcsType: request.GetString("vcs_type", "Git"),
		Commits: commits,
	}

	requestID, err := s.pipeline.Submit(ctx, build)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mapping failed: %v", tracker.WrapError(err))), nil
	}
	s.logger.Info("[MCP] Submitted request %s (%d commit(s))", requestID, len(commits))

	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	status, err := pipeline.Wait(waitCtx, s.pipeline, requestID, s.pollInterval)
	if errors.Is(err, pipeline.ErrNotFinished) {
		s.logger.Info("[MCP] Request %s still %s after %s", requestID, status.Status, s.waitTimeout)
		return jsonResult(LinksResponse{
			RequestID: requestID,
			Status:    status.Status,
			Message:   "mapping still running; call get_work_items with this request_id",
			Links:     []contracts.WorkItemLink{},
		})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mapping failed: %v", tracker.WrapError(err))), nil
	}

	return s.respond(ctx, status)
}

// handleGetWorkItems returns the stored outcome of a request.
func (s *Server) handleGetWorkItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := strings.TrimSpace(request.GetString("request_id", ""))
	if requestID == "" {
		return mcp.NewToolResultError("request_id parameter is required"), nil
	}

	status, err := s.pipeline.Status(ctx, requestID)
	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(fmt.Sprintf("request not found: request_id=%s", requestID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get request: %v", err)), nil
	}

	return s.respond(ctx, status)
}

func (s *Server) respond(ctx context.Context, status *contracts.RequestStatus) (*mcp.CallToolResult, error) {
	response := LinksResponse{
		RequestID:       status.RequestID,
		Status:          status.Status,
		Message:         sanitize.Line(status.Message),
		ReferencesTotal: status.ReferencesTotal,
		Links:           []contracts.WorkItemLink{},
	}

	if pipeline.Done(status.Status) {
		links, err := s.pipeline.Links(ctx, status.RequestID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get links: %v", err)), nil
		}
		if len(links) > 0 {
			response.Links = sanitize.Links(links)
		}
	}

	return jsonResult(response)
}

func parseCommits(raw string) ([]contracts.Commit, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("commits parameter is required")
	}

	var inputs []commitInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("commits must be a JSON array of {id, comment} objects: %v", err)
	}

	commits := make([]contracts.Commit, 0, len(inputs))
	for _, in := range inputs {
		commits = append(commits, in.toCommit())
	}
	return commits, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
