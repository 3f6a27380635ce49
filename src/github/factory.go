package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"worklink/src/tracker"
)

// TrackerName is the registry key for this integration.
const TrackerName = "github"

func init() {
	tracker.RegisterFactory(TrackerName, NewFactory(DefaultAPIURL))
}

// Factory builds Clients against a fixed API root.
type Factory struct {
	APIURL     string
	HTTPClient *http.Client
	// MaxRetryElapsed overrides the client's retry budget when non-zero.
	MaxRetryElapsed time.Duration
}

func NewFactory(apiURL string) *Factory {
	return &Factory{APIURL: apiURL}
}

// NewClient implements tracker.ClientFactory.
func (f *Factory) NewClient(ctx context.Context, creds tracker.Credentials) (tracker.Client, error) {
	opts := []ClientOption{WithBaseURL(f.APIURL), WithHTTPClient(f.HTTPClient)}
	if f.MaxRetryElapsed != 0 {
		opts = append(opts, WithMaxRetryElapsed(f.MaxRetryElapsed))
	}
	return NewClient(creds, opts...), nil
}

// APIBaseURL derives the REST API root from the web base URL users configure.
// github.com maps to api.github.com; any other host is treated as GitHub
// Enterprise Server, which serves the API under /api/v3.
func APIBaseURL(webBaseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(webBaseURL), "/")
	if base == "" {
		return DefaultAPIURL
	}

	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return DefaultAPIURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "github.com" || host == "www.github.com" || host == "api.github.com" {
		return DefaultAPIURL
	}
	if strings.HasSuffix(u.Path, "/api/v3") {
		return u.Scheme + "://" + u.Host + u.Path
	}
	return u.Scheme + "://" + u.Host + "/api/v3"
}
