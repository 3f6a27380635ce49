package workitems

import (
	"regexp"
	"strings"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NormalizeLinkData turns a reference token into an absolute issue URL.
//
// Absolute URLs pass through unchanged. References naming their own repository
// ("owner/repo#12") resolve against baseURL; bare references ("#12", "GH-12")
// resolve against the VCS root, or baseURL when there is no VCS root.
// Empty link data yields an empty string.
func NormalizeLinkData(baseURL, vcsRoot, linkData string) string {
	linkData = strings.TrimSpace(linkData)
	if linkData == "" {
		return ""
	}
	if strings.HasPrefix(linkData, "http") {
		return linkData
	}

	baseURL = normalizeRemote(baseURL)
	vcsRoot = normalizeRemote(vcsRoot)

	prefix, issue, found := strings.Cut(linkData, "#")
	if !found {
		// GH-1234
		issue = linkData
		if m := trailingDigits.FindStringSubmatch(linkData); m != nil {
			issue = m[1]
		}
		prefix = ""
	}

	if prefix != "" {
		return baseURL + "/" + strings.Trim(prefix, "/") + "/issues/" + issue
	}

	base := baseURL
	if vcsRoot != "" {
		base = vcsRoot
	}
	return base + "/issues/" + issue
}
