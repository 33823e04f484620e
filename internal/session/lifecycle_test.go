package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/voxquiz/voxquiz/internal/session"
)

type fakeAPI struct {
	startCalls int
	endCalls   int
	startErr   error
	endErr     error
}

func (f *fakeAPI) StartSession(_ context.Context, userID, subtopicID string) (string, error) {
	f.startCalls++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "sess-1", nil
}

func (f *fakeAPI) EndSession(_ context.Context, sessionID string) error {
	f.endCalls++
	return f.endErr
}

func TestStartIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	l := session.NewLifecycle(api, "u1", "sub1")

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.State() != session.Active || l.SessionID() != "sess-1" {
		t.Fatalf("state = %s id = %s", l.State(), l.SessionID())
	}
	// Already active: zero further network effects.
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.startCalls != 1 {
		t.Fatalf("start calls = %d, want 1", api.startCalls)
	}
}

func TestStartFailureStaysNotStarted(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("backend down")}
	l := session.NewLifecycle(api, "u1", "sub1")

	if err := l.Start(context.Background()); err == nil {
		t.Fatalf("want surfaced error")
	}
	if l.State() != session.NotStarted {
		t.Fatalf("state = %s, want not_started", l.State())
	}
	// A later retry is allowed.
	api.startErr = nil
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.State() != session.Active || api.startCalls != 2 {
		t.Fatalf("state = %s calls = %d", l.State(), api.startCalls)
	}
}

func TestStartWithoutUserIsNoop(t *testing.T) {
	api := &fakeAPI{}
	l := session.NewLifecycle(api, "", "sub1")
	if err := l.Start(context.Background()); !errors.Is(err, session.ErrNoUser) {
		t.Fatalf("err = %v", err)
	}
	if api.startCalls != 0 {
		t.Fatalf("network effect without user identity")
	}
}

func TestEndExactlyOnce(t *testing.T) {
	api := &fakeAPI{}
	l := session.NewLifecycle(api, "u1", "sub1")
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := l.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.endCalls != 1 {
		t.Fatalf("end calls = %d, want exactly 1", api.endCalls)
	}
	if l.State() != session.Ended {
		t.Fatalf("state = %s", l.State())
	}
}

func TestEndBeforeStartIsNoop(t *testing.T) {
	api := &fakeAPI{}
	l := session.NewLifecycle(api, "u1", "sub1")
	if err := l.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.endCalls != 0 {
		t.Fatalf("end calls = %d, want 0", api.endCalls)
	}
}

func TestEndFailureStillEnds(t *testing.T) {
	api := &fakeAPI{endErr: errors.New("flaky")}
	l := session.NewLifecycle(api, "u1", "sub1")
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := l.End(context.Background()); err == nil {
		t.Fatalf("want surfaced error")
	}
	// No endless retries: the second call is a no-op.
	if err := l.End(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.endCalls != 1 {
		t.Fatalf("end calls = %d, want 1", api.endCalls)
	}
}
