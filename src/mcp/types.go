// Package mcp exposes work-item mapping as MCP tools.
package mcp

import "worklink/src/contracts"

// LinksResponse is the JSON body returned by both tools.
type LinksResponse struct {
	RequestID       string                   `json:"request_id"`
	Status          string                   `json:"status"`
	Message         string                   `json:"message,omitempty"`
	ReferencesTotal int                      `json:"references_total"`
	Links           []contracts.WorkItemLink `json:"links"`
}

// commitInput accepts both the BuildInfo field names and the short forms
// agents tend to produce.
type commitInput struct {
	ID      string `json:"id"`
	SHA     string `json:"sha"`
	Comment string `json:"comment"`
	Message string `json:"message"`
}

func (c commitInput) toCommit() contracts.Commit {
	commit := contracts.Commit{ID: c.ID, Comment: c.Comment}
	if commit.ID == "" {
		commit.ID = c.SHA
	}
	if commit.Comment == "" {
		commit.Comment = c.Message
	}
	return commit
}
