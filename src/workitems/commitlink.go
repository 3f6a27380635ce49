package workitems

import (
	"context"
	"fmt"
	"strings"
)

// VcsTypeGit is the VCS type CommitLinkMapper handles.
const VcsTypeGit = "Git"

// CommitLinkMapper builds browsable links to individual commits.
type CommitLinkMapper struct {
	settings Settings
}

func NewCommitLinkMapper(settings Settings) *CommitLinkMapper {
	return &CommitLinkMapper{settings: settings}
}

func (c *CommitLinkMapper) VcsType() string { return VcsTypeGit }

// Map returns the commit URL under vcsRoot, or "" when the integration is disabled
// or there is nothing to link.
func (c *CommitLinkMapper) Map(ctx context.Context, vcsRoot, commitID string) (string, error) {
	enabled, err := c.settings.IsEnabled(ctx)
	if err != nil {
		return "", fmt.Errorf("read enabled setting: %w", err)
	}
	if !enabled {
		return "", nil
	}
	root := normalizeRemote(vcsRoot)
	commitID = strings.TrimSpace(commitID)
	if root == "" || commitID == "" {
		return "", nil
	}
	return root + "/commit/" + commitID, nil
}
