// Package workitems links commit messages to issue-tracker work items.
//
// The pipeline is: ParseReferences pulls closing-keyword references out of commit
// comments, ParseOwnerRepo and NormalizeLinkData turn each reference into a repository
// and an absolute issue URL, a ReleaseNoteResolver looks up a description, and Mapper
// ties these together for a whole build.
package workitems

import (
	"regexp"

	"worklink/src/contracts"
)

// referencePattern matches a closing keyword followed by an issue reference.
// Group 1 is the reference token, group 2 the issue number.
var referencePattern = regexp.MustCompile(
	`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?):?\s+` +
		`((?:[a-z0-9/_.-]*#|gh-|https?://[a-z0-9/:._~%-]*/issues/)(\d+))`)

// WorkItemReference is an issue mention found in a commit comment.
type WorkItemReference struct {
	// IssueNumber is the trailing digit group of the reference.
	IssueNumber string
	// LinkData is the matched token, e.g. "#12", "org/repo#12", "GH-12" or a URL.
	LinkData string
}

// ParseReferences returns every reference in comment, left to right.
func ParseReferences(comment string) []WorkItemReference {
	matches := referencePattern.FindAllStringSubmatch(comment, -1)
	refs := make([]WorkItemReference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, WorkItemReference{
			IssueNumber: m[2],
			LinkData:    m[1],
		})
	}
	return refs
}

// ExtractReferences returns the references of every commit in build, in commit order.
// Duplicates are kept.
func ExtractReferences(build contracts.BuildInfo) []WorkItemReference {
	var refs []WorkItemReference
	for _, commit := range build.Commits {
		refs = append(refs, ParseReferences(commit.Comment)...)
	}
	return refs
}
