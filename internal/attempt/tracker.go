// Package attempt tracks per-question retries and the reveal policy:
// two graded attempts per question, then the answer key is exposed and
// the question becomes terminal.
package attempt

import (
	"errors"
	"sync"

	"github.com/voxquiz/voxquiz/internal/quiz"
)

// MaxAttempts is the per-question grading ceiling.
const MaxAttempts = 2

var (
	ErrUnknownQuestion = errors.New("attempt: unknown question")
	// ErrTerminal is returned when a question is re-graded after it was
	// answered correctly or revealed. Terminal states are never
	// re-enterable.
	ErrTerminal = errors.New("attempt: question already resolved")
)

// Tracker holds the attempt state for every question of one quiz run.
// States are created once at load and never reset within a session.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*quiz.AttemptState
}

func NewTracker(questionIDs []string) *Tracker {
	t := &Tracker{states: make(map[string]*quiz.AttemptState, len(questionIDs))}
	for _, id := range questionIDs {
		t.states[id] = &quiz.AttemptState{LastResult: quiz.ResultPending}
	}
	return t
}

// Record applies one graded transcript. Correct marks the question
// terminal and reveals the key; a second incorrect grading reveals the
// key and marks the question terminally incorrect.
func (t *Tracker) Record(questionID string, correct bool, transcript string) (quiz.AttemptState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[questionID]
	if !ok {
		return quiz.AttemptState{}, ErrUnknownQuestion
	}
	if t.terminal(st) {
		return *st, ErrTerminal
	}
	st.AttemptsUsed++
	st.Transcript = transcript
	if correct {
		st.LastResult = quiz.ResultCorrect
		st.Revealed = true
	} else {
		st.LastResult = quiz.ResultIncorrect
		if st.AttemptsUsed >= MaxAttempts {
			st.Revealed = true
		}
	}
	return *st, nil
}

// CanAdvance reports whether forward navigation past the question is
// unlocked. Only terminal states qualify.
func (t *Tracker) CanAdvance(questionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[questionID]
	return ok && t.terminal(st)
}

// AttemptsLeft reports the remaining gradings for retry messaging.
func (t *Tracker) AttemptsLeft(questionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[questionID]
	if !ok || t.terminal(st) {
		return 0
	}
	return MaxAttempts - st.AttemptsUsed
}

func (t *Tracker) State(questionID string) (quiz.AttemptState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[questionID]
	if !ok {
		return quiz.AttemptState{}, false
	}
	return *st, true
}

// Snapshot copies all states, for scoring and status endpoints.
func (t *Tracker) Snapshot() map[string]quiz.AttemptState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]quiz.AttemptState, len(t.states))
	for id, st := range t.states {
		out[id] = *st
	}
	return out
}

func (t *Tracker) terminal(st *quiz.AttemptState) bool {
	return st.LastResult == quiz.ResultCorrect || st.Revealed
}
