package workitems

import (
	"context"
	"fmt"
	"sync"

	"worklink/src/tracker"
)

// fakeTracker serves issues keyed by "owner/repo#number".
type fakeTracker struct {
	mu          sync.Mutex
	issues      map[string]*tracker.Issue
	comments    map[string][]tracker.Comment
	issueErr    error
	commentErr  error
	issueCalls  int
	statusCalls []tracker.CommitStatus
	block       chan struct{}
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issues:   make(map[string]*tracker.Issue),
		comments: make(map[string][]tracker.Comment),
	}
}

func issueKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

func (f *fakeTracker) addIssue(owner, repo string, number int, title string, comments ...string) {
	key := issueKey(owner, repo, number)
	f.issues[key] = &tracker.Issue{Number: number, Title: title, CommentCount: len(comments)}
	for _, c := range comments {
		f.comments[key] = append(f.comments[key], tracker.Comment{Body: c})
	}
}

func (f *fakeTracker) GetIssue(ctx context.Context, owner, repo string, number int) (*tracker.Issue, error) {
	f.mu.Lock()
	f.issueCalls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	issue, ok := f.issues[issueKey(owner, repo, number)]
	if !ok {
		return nil, tracker.ErrIssueNotFound
	}
	return issue, nil
}

func (f *fakeTracker) GetIssueComments(ctx context.Context, owner, repo string, number int) ([]tracker.Comment, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return f.comments[issueKey(owner, repo, number)], nil
}

func (f *fakeTracker) CreateCommitStatus(ctx context.Context, owner, repo, ref string, status tracker.CommitStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

func (f *fakeTracker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueCalls
}

// recordingLogger keeps warnings so tests can count them.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Info(msg string, args ...interface{})  {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {}
func (l *recordingLogger) Debug(msg string, args ...interface{}) {}

func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}
