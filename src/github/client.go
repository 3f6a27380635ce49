// Package github implements the tracker contract against the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"worklink/src/tracker"
)

const (
	// DefaultAPIURL is the public GitHub API endpoint.
	DefaultAPIURL = "https://api.github.com"

	// UserAgent identifies worklink to GitHub.
	UserAgent = "worklink-github-issue-tracker"

	perPage         = 100
	maxRetryElapsed = 30 * time.Second
)

// Client is a GitHub issues and commit-status API client. It is safe for concurrent use.
type Client struct {
	creds      tracker.Credentials
	httpClient *http.Client
	baseURL    string
	maxElapsed time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at an API root, e.g. a GitHub Enterprise "/api/v3" URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetryElapsed bounds how long transient failures are retried. Zero disables retries.
func WithMaxRetryElapsed(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxElapsed = d
	}
}

// NewClient creates a client for creds. Username and secret together use basic
// auth, a secret alone is sent as a token, and no secret means anonymous access.
func NewClient(creds tracker.Credentials, opts ...ClientOption) *Client {
	c := &Client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    DefaultAPIURL,
		maxElapsed: maxRetryElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ tracker.Client = (*Client)(nil)

// repoURL escapes owner and repo so commit text cannot reshape the API path.
func (c *Client) repoURL(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, neturl.PathEscape(owner), neturl.PathEscape(repo))
}

// GetIssue fetches issue metadata.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*tracker.Issue, error) {
	url := fmt.Sprintf("%s/issues/%d", c.repoURL(owner, repo), number)

	var issue issueResponse
	if err := c.do(ctx, http.MethodGet, url, nil, http.StatusOK, &issue); err != nil {
		return nil, err
	}

	return &tracker.Issue{
		Number:       issue.Number,
		Title:        issue.Title,
		CommentCount: issue.Comments,
		HTMLURL:      issue.HTMLURL,
	}, nil
}

// GetIssueComments fetches every comment on an issue (handles pagination).
func (c *Client) GetIssueComments(ctx context.Context, owner, repo string, number int) ([]tracker.Comment, error) {
	var all []tracker.Comment
	page := 1

	for {
		url := fmt.Sprintf("%s/issues/%d/comments?per_page=%d&page=%d",
			c.repoURL(owner, repo), number, perPage, page)

		var comments []commentResponse
		if err := c.do(ctx, http.MethodGet, url, nil, http.StatusOK, &comments); err != nil {
			return nil, err
		}

		for _, comment := range comments {
			all = append(all, tracker.Comment{Body: comment.Body})
		}

		if len(comments) < perPage {
			break
		}
		page++
	}

	return all, nil
}

// CreateCommitStatus attaches a status to the commit ref.
func (c *Client) CreateCommitStatus(ctx context.Context, owner, repo, ref string, status tracker.CommitStatus) error {
	url := fmt.Sprintf("%s/statuses/%s", c.repoURL(owner, repo), neturl.PathEscape(ref))

	body, err := json.Marshal(statusRequest{
		State:       string(status.State),
		TargetURL:   status.TargetURL,
		Description: status.Description,
		Context:     status.Context,
	})
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodPost, url, body, http.StatusCreated, nil)
}

// do sends a request, retrying rate limits, server errors and timeouts with
// exponential backoff. out may be nil.
func (c *Client) do(ctx context.Context, method, url string, body []byte, wantStatus int, out interface{}) error {
	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("%w: %v", tracker.ErrNetworkTimeout, err)
			}
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != wantStatus {
			return statusError(resp)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode GitHub response: %w", err))
		}
		return nil
	}

	if c.maxElapsed <= 0 {
		return unwrapPermanent(op())
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", UserAgent)

	switch {
	case c.creds.Username != "" && c.creds.Secret != "":
		req.SetBasicAuth(c.creds.Username, c.creds.Secret)
	case c.creds.Secret != "":
		req.Header.Set("Authorization", "Bearer "+c.creds.Secret)
	}
}

// statusError maps an unexpected response to an error. Retryable responses are
// returned as plain errors, everything else is wrapped in backoff.Permanent.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", tracker.ErrRateLimited, apiErr)
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("%w: %v", tracker.ErrRateLimited, apiErr)
	case resp.StatusCode >= http.StatusInternalServerError:
		return apiErr
	case resp.StatusCode == http.StatusUnauthorized:
		return backoff.Permanent(fmt.Errorf("%w: %v", tracker.ErrAuthFailed, apiErr))
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("%w: %v", tracker.ErrIssueNotFound, apiErr))
	default:
		return backoff.Permanent(apiErr)
	}
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

