package workitems

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"worklink/src/logger"
	"worklink/src/tracker"
)

// ReleaseNoteResolver picks the human-readable description for a linked issue.
//
// A comment starting with the release-note prefix wins over the issue title; when
// several comments match, the most recent one is used. Any lookup failure falls
// back to the bare issue number so a build is never blocked on the tracker.
type ReleaseNoteResolver struct {
	logger logger.Logger
}

func NewReleaseNoteResolver(log logger.Logger) *ReleaseNoteResolver {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &ReleaseNoteResolver{logger: log}
}

// Resolve returns the description for issueNumber. It never returns an empty string
// unless the issue title itself is empty.
func (r *ReleaseNoteResolver) Resolve(ctx context.Context, client tracker.IssueClient, vcsRoot, issueNumber, linkData, prefix string) string {
	number, err := strconv.Atoi(issueNumber)
	if err != nil {
		return issueNumber
	}

	ownerRepo, err := ParseOwnerRepo(vcsRoot, linkData)
	if err != nil {
		r.logger.Debug("[ReleaseNote] %s: %v", linkData, err)
		return issueNumber
	}

	issue, err := client.GetIssue(ctx, ownerRepo.Owner, ownerRepo.Repo, number)
	if err != nil {
		r.logger.Warn("[ReleaseNote] Could not fetch issue %s#%d: %v", ownerRepo, number, err)
		return issueNumber
	}

	if issue.CommentCount == 0 || strings.TrimSpace(prefix) == "" {
		return issue.Title
	}

	comments, err := client.GetIssueComments(ctx, ownerRepo.Owner, ownerRepo.Repo, number)
	if err != nil {
		r.logger.Warn("[ReleaseNote] Could not fetch comments for %s#%d: %v", ownerRepo, number, err)
		return issueNumber
	}

	if note, ok := lastReleaseNote(comments, prefix); ok {
		return note
	}
	return issue.Title
}

// lastReleaseNote finds the newest comment that starts with prefix and returns its
// body with the prefix removed.
func lastReleaseNote(comments []tracker.Comment, prefix string) (string, bool) {
	pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix))
	for i := len(comments) - 1; i >= 0; i-- {
		body := comments[i].Body
		loc := pattern.FindStringIndex(body)
		if loc == nil {
			continue
		}
		return strings.TrimSpace(body[loc[1]:]), true
	}
	return "", false
}
