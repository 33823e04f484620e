// Package session manages the server-tracked attempt lifecycle:
// NotStarted -> Active -> Ended, idempotent on both edges.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
)

type State string

const (
	NotStarted State = "not_started"
	Active     State = "active"
	Ended      State = "ended"
)

// ErrNoUser is returned by Start when the user identity is unknown;
// quiz-taking continues locally without a tracked session.
var ErrNoUser = errors.New("session: user identity unknown")

// API is the backend collaborator for session tracking.
type API interface {
	StartSession(ctx context.Context, userID, subtopicID string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Lifecycle owns one server-tracked session per quiz run. Start and End
// are both guarded so repeated triggers (explicit submission plus
// teardown) collapse to at most one network effect each.
type Lifecycle struct {
	mu         sync.Mutex
	state      State
	sessionID  string
	userID     string
	subtopicID string
	api        API
}

func NewLifecycle(api API, userID, subtopicID string) *Lifecycle {
	return &Lifecycle{state: NotStarted, api: api, userID: userID, subtopicID: subtopicID}
}

// Start posts session start and transitions to Active. No-op when
// already Active or Ended. On failure the state stays NotStarted and the
// error is surfaced; the caller may retry or proceed sessionless.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != NotStarted {
		l.mu.Unlock()
		return nil
	}
	if l.userID == "" {
		l.mu.Unlock()
		return ErrNoUser
	}
	l.mu.Unlock()

	id, err := l.api.StartSession(ctx, l.userID, l.subtopicID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		return err
	}
	if l.state != NotStarted {
		// A concurrent Start won; the duplicate server session is the
		// backend's to reconcile.
		return nil
	}
	l.sessionID = id
	l.state = Active
	return nil
}

// End posts session end. No-op unless Active. The state moves to Ended
// before the request settles, so a second End never produces a second
// network effect, and a failed end is surfaced but not retried here.
func (l *Lifecycle) End(ctx context.Context) error {
	l.mu.Lock()
	if l.state != Active {
		l.mu.Unlock()
		return nil
	}
	l.state = Ended
	id := l.sessionID
	l.mu.Unlock()

	if err := l.api.EndSession(ctx, id); err != nil {
		log.Printf("session %s: end failed: %v", id, err)
		return err
	}
	return nil
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}
