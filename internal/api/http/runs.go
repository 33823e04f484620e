package http

import (
	"context"
	"sync"

	"github.com/voxquiz/voxquiz/internal/engine"
)

// Loader builds a new run for a (user, subtopic) pair.
type Loader func(ctx context.Context, userID, subtopicID string) (*engine.Run, error)

// Runs keeps the live quiz runs, one per (user, subtopic). A run stays
// registered until it is closed so that page reloads re-attach instead
// of re-grading.
type Runs struct {
	mu   sync.Mutex
	m    map[string]*engine.Run
	load Loader
}

func NewRuns(load Loader) *Runs {
	return &Runs{m: map[string]*engine.Run{}, load: load}
}

func runKey(userID, subtopicID string) string { return userID + "|" + subtopicID }

// Acquire returns the existing run or loads a fresh one.
func (r *Runs) Acquire(ctx context.Context, userID, subtopicID string) (*engine.Run, error) {
	r.mu.Lock()
	if run, ok := r.m[runKey(userID, subtopicID)]; ok {
		r.mu.Unlock()
		return run, nil
	}
	r.mu.Unlock()

	run, err := r.load(ctx, userID, subtopicID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[runKey(userID, subtopicID)]; ok {
		// Lost the race; the concurrent loader's run wins.
		run.Close(ctx)
		return existing, nil
	}
	r.m[runKey(userID, subtopicID)] = run
	return run, nil
}

// Get returns a registered run without loading.
func (r *Runs) Get(userID, subtopicID string) (*engine.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.m[runKey(userID, subtopicID)]
	return run, ok
}

// Release closes and drops a run (submission, termination, unmount).
func (r *Runs) Release(ctx context.Context, userID, subtopicID string) {
	r.mu.Lock()
	run, ok := r.m[runKey(userID, subtopicID)]
	delete(r.m, runKey(userID, subtopicID))
	r.mu.Unlock()
	if ok {
		run.Close(ctx)
	}
}
