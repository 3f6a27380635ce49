package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/src/contracts"
	"worklink/src/store"
)

// fakePipeline completes every request immediately unless hold is set.
type fakePipeline struct {
	mu        sync.Mutex
	hold      bool
	submitted []contracts.BuildInfo
	statuses  map[string]*contracts.RequestStatus
	links     map[string][]contracts.WorkItemLink
	result    []contracts.WorkItemLink
}

func newFakePipeline(result []contracts.WorkItemLink) *fakePipeline {
	return &fakePipeline{
		statuses: make(map[string]*contracts.RequestStatus),
		links:    make(map[string][]contracts.WorkItemLink),
		result:   result,
	}
}

func (p *fakePipeline) Submit(ctx context.Context, build contracts.BuildInfo) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := fmt.Sprintf("req-%d", len(p.submitted)+1)
	p.submitted = append(p.submitted, build)
	status := &contracts.RequestStatus{RequestID: id, VcsRoot: build.VcsRoot, Status: contracts.StatusProcessing}
	if !p.hold {
		status.Status = contracts.StatusCompleted
		status.LinksCount = len(p.result)
		p.links[id] = p.result
	}
	p.statuses[id] = status
	return id, nil
}

func (p *fakePipeline) Status(ctx context.Context, requestID string) (*contracts.RequestStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[requestID]
	if !ok {
		return nil, store.ErrNotFound{RequestID: requestID}
	}
	cp := *status
	return &cp, nil
}

func (p *fakePipeline) Links(ctx context.Context, requestID string) ([]contracts.WorkItemLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.links[requestID], nil
}

func (p *fakePipeline) Close() error { return nil }

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
		return ""
	}
}

func decodeResponse(t *testing.T, result *mcp.CallToolResult) LinksResponse {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var resp LinksResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	return resp
}

func TestMapWorkItems(t *testing.T) {
	links := []contracts.WorkItemLink{
		{ID: "1234", Description: "\x1b[1mWidgets\x1b[0m\nare broken", LinkURL: "https://github.com/UserX/RepoY/issues/1234", Source: "GitHub"},
	}
	p := newFakePipeline(links)
	s := NewServer(p, "test", WithPollInterval(time.Millisecond))

	result, err := s.handleMapWorkItems(context.Background(), callTool("map_work_items", map[string]any{
		"vcs_root": "https://github.com/UserX/RepoY",
		"commits":  `[{"id": "abc", "comment": "Fixes #1234"}, {"sha": "def", "message": "GH-5"}]`,
	}))
	require.NoError(t, err)

	resp := decodeResponse(t, result)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, contracts.StatusCompleted, resp.Status)
	require.Len(t, resp.Links, 1)
	assert.Equal(t, "Widgets are broken", resp.Links[0].Description)

	require.Len(t, p.submitted, 1)
	assert.Equal(t, "Git", p.submitted[0].VcsType)
	assert.Equal(t, []contracts.Commit{
		{ID: "abc", Comment: "Fixes #1234"},
		{ID: "def", Comment: "GH-5"},
	}, p.submitted[0].Commits)
}

func TestMapWorkItems_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{"missing vcs_root", map[string]any{"commits": `[]`}, "vcs_root parameter is required"},
		{"missing commits", map[string]any{"vcs_root": "https://github.com/o/r"}, "commits parameter is required"},
		{"commits not JSON", map[string]any{"vcs_root": "https://github.com/o/r", "commits": "Fixes #1"}, "JSON array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePipeline(nil)
			s := NewServer(p, "test")

			result, err := s.handleMapWorkItems(context.Background(), callTool("map_work_items", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantMsg)
			assert.Empty(t, p.submitted)
		})
	}
}

func TestMapWorkItems_StillRunning(t *testing.T) {
	p := newFakePipeline(nil)
	p.hold = true
	s := NewServer(p, "test", WithWaitTimeout(20*time.Millisecond), WithPollInterval(time.Millisecond))

	result, err := s.handleMapWorkItems(context.Background(), callTool("map_work_items", map[string]any{
		"vcs_root": "https://github.com/o/r",
		"commits":  `[{"id": "a", "comment": "fixes #1"}]`,
	}))
	require.NoError(t, err)

	resp := decodeResponse(t, result)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, contracts.StatusProcessing, resp.Status)
	assert.Contains(t, resp.Message, "get_work_items")
	assert.Empty(t, resp.Links)
}

func TestGetWorkItems(t *testing.T) {
	links := []contracts.WorkItemLink{
		{ID: "7", Description: "Seven", LinkURL: "https://github.com/o/r/issues/7", Source: "GitHub"},
	}
	p := newFakePipeline(links)
	s := NewServer(p, "test")

	id, err := p.Submit(context.Background(), contracts.BuildInfo{VcsRoot: "https://github.com/o/r"})
	require.NoError(t, err)

	result, err := s.handleGetWorkItems(context.Background(), callTool("get_work_items", map[string]any{"request_id": id}))
	require.NoError(t, err)

	resp := decodeResponse(t, result)
	assert.Equal(t, links, resp.Links)
}

func TestGetWorkItems_Errors(t *testing.T) {
	s := NewServer(newFakePipeline(nil), "test")

	result, err := s.handleGetWorkItems(context.Background(), callTool("get_work_items", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleGetWorkItems(context.Background(), callTool("get_work_items", map[string]any{"request_id": "req-404"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "request not found")
}
