package tracker

import (
	"errors"
	"strings"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrIssueNotFound  = errors.New("issue not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetworkTimeout = errors.New("network timeout")
	ErrTrackerUnknown = errors.New("unknown issue tracker")
)

// UserError pairs a failure with a hint the operator can act on.
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Hint != "" {
		sb.WriteString("\n\nHint: ")
		sb.WriteString(e.Hint)
	}
	if e.Err != nil {
		sb.WriteString("\n\nDetails: ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// hints is checked in order; the first sentinel found in the chain wins.
var hints = []struct {
	sentinel error
	message  string
	hint     string
}{
	{
		sentinel: ErrAuthFailed,
		message:  "Authentication failed",
		hint:     "Check the tracker credentials.\n  - Token only: set WORKLINK_TRACKER_PASSWORD (or GITHUB_TOKEN)\n  - Basic auth: set WORKLINK_TRACKER_USERNAME and WORKLINK_TRACKER_PASSWORD",
	},
	{
		sentinel: ErrRateLimited,
		message:  "Rate limited by the issue tracker",
		hint:     "Authenticated requests get a much higher rate limit; configure a token.",
	},
	{
		sentinel: ErrIssueNotFound,
		message:  "Issue not found",
		hint:     "Check that the issue exists and the credentials can read the repository.",
	},
	{
		sentinel: ErrNetworkTimeout,
		message:  "The issue tracker did not respond in time",
		hint:     "Check network access to the API host, or WORKLINK_TRACKER_API_URL for GitHub Enterprise.",
	},
	{
		sentinel: ErrTrackerUnknown,
		message:  "Unknown issue tracker",
		hint:     "Supported trackers: github",
	},
}

// WrapError turns tracker failures into a UserError with a hint. Errors that
// carry no tracker sentinel are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	for _, h := range hints {
		if errors.Is(err, h.sentinel) {
			return &UserError{Message: h.message, Hint: h.hint, Err: err}
		}
	}
	return err
}
