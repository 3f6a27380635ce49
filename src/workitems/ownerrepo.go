package workitems

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrOwnerRepoParts is returned when no owner/repo pair can be derived.
var ErrOwnerRepoParts = errors.New("incorrect number of owner/repo parts")

var (
	// repoPathPattern strips an optional scheme and the host, leaving the path.
	repoPathPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:[^?/\s]+[?/])(.*)`)

	// scpRemotePattern matches scp-style remotes such as git@github.com:owner/repo.
	scpRemotePattern = regexp.MustCompile(`^[\w.-]+@([^:/\s]+):(.+)$`)
)

// OwnerRepo identifies a repository in the tracker.
type OwnerRepo struct {
	Owner string
	Repo  string
}

func (o OwnerRepo) String() string {
	return o.Owner + "/" + o.Repo
}

// ParseOwnerRepo works out which repository an issue reference points at.
//
// An explicit owner/repo prefix or absolute URL in linkData wins; otherwise the
// repository comes from the build's VCS root.
func ParseOwnerRepo(vcsRoot, linkData string) (OwnerRepo, error) {
	linkData = strings.TrimSpace(linkData)

	if linkData == "" {
		return ownerRepoFromURL(vcsRoot)
	}
	if strings.HasPrefix(linkData, "http") {
		return ownerRepoFromURL(linkData)
	}

	prefix, _, _ := strings.Cut(linkData, "#")
	parts := strings.Split(prefix, "/")
	if len(parts) == 2 && validSegment(parts[0]) && validSegment(parts[1]) {
		return OwnerRepo{Owner: parts[0], Repo: parts[1]}, nil
	}

	return ownerRepoFromURL(vcsRoot)
}

func ownerRepoFromURL(rawURL string) (OwnerRepo, error) {
	m := repoPathPattern.FindStringSubmatch(normalizeRemote(rawURL))
	if m == nil {
		return OwnerRepo{}, ErrOwnerRepoParts
	}

	parts := strings.FieldsFunc(m[1], func(r rune) bool { return r == '/' || r == '#' })
	if len(parts) < 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return OwnerRepo{}, ErrOwnerRepoParts
	}
	return OwnerRepo{Owner: parts[0], Repo: parts[1]}, nil
}

// validSegment rejects empty and dot segments, which would walk the API path.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".."
}

// normalizeRemote rewrites SSH remotes to https and drops a trailing ".git" and "/".
// An ssh:// port belongs to the transport and is not kept.
func normalizeRemote(remote string) string {
	remote = strings.TrimSpace(remote)
	if len(remote) >= 6 && strings.EqualFold(remote[:6], "ssh://") {
		if u, err := url.Parse(remote); err == nil && u.Hostname() != "" {
			remote = "https://" + u.Hostname() + u.Path
		}
	} else if m := scpRemotePattern.FindStringSubmatch(remote); m != nil {
		remote = "https://" + m[1] + "/" + m[2]
	}
	remote = strings.TrimSuffix(remote, "/")
	remote = strings.TrimSuffix(remote, ".git")
	return strings.TrimSuffix(remote, "/")
}
