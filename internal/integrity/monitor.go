// Package integrity is the proctoring state machine. Heterogeneous
// browser signals arrive as a small closed set of events; the machine
// escalates Clear -> Warned -> Terminated and never transitions out of
// Terminated. It is a deterrent, not a security boundary.
package integrity

import (
	"context"
	"sync"
)

// EventType is the normalized trigger vocabulary. The host maps raw
// focus/visibility/fullscreen/clipboard signals onto these before the
// state machine sees them.
type EventType string

const (
	EventFocusLost      EventType = "focus_lost"      // window blur
	EventHidden         EventType = "hidden"          // document visibility lost
	EventRefocus        EventType = "refocus"         // focus or visibility regained
	EventFullscreenExit EventType = "fullscreen_exit" // hard violation
	EventPoll           EventType = "poll"            // periodic check while away
	EventShortcut       EventType = "shortcut"        // clipboard/context-menu/print/devtools
)

type Event struct {
	Type   EventType `json:"type"`
	Detail string    `json:"detail,omitempty"`
}

// MaxWarnings is the focus-loss budget; the second warning terminates.
const MaxWarnings = 2

// Action tells the host UI what to show after an event. Zero value
// means no visible change.
type Action struct {
	ShowOverlay  bool   `json:"show_overlay,omitempty"`
	ClearOverlay bool   `json:"clear_overlay,omitempty"`
	Warn         int    `json:"warn,omitempty"` // warning count to display, 0 = none
	Terminate    bool   `json:"terminate,omitempty"`
	Blocked      string `json:"blocked,omitempty"` // reported-but-uncounted shortcut
}

// Monitor is the per-run machine. warnings never decreases; suppressed
// guards against a blur and a visibility change double-counting one
// physical exit. Reset only by building a new Monitor for a new run.
type Monitor struct {
	mu         sync.Mutex
	warnings   int
	suppressed bool
	terminated bool
	shortcuts  int
}

func NewMonitor() *Monitor { return &Monitor{} }

// Handle consumes one event and returns the UI consequence.
func (m *Monitor) Handle(ev Event) Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminated {
		return Action{ShowOverlay: true, Terminate: true}
	}

	switch ev.Type {
	case EventFocusLost, EventHidden:
		if m.suppressed {
			// Second signal for the same physical exit.
			return Action{ShowOverlay: true}
		}
		m.suppressed = true
		m.warnings++
		if m.warnings >= MaxWarnings {
			m.terminated = true
			return Action{ShowOverlay: true, Warn: m.warnings, Terminate: true}
		}
		return Action{ShowOverlay: true, Warn: m.warnings}

	case EventRefocus:
		m.suppressed = false
		return Action{ClearOverlay: true}

	case EventFullscreenExit:
		if m.suppressed {
			// The exit that just cost a warning also dropped
			// fullscreen; don't punish it twice.
			return Action{ShowOverlay: true}
		}
		// Fullscreen is a hard requirement: immediate termination,
		// independent of the warning counter.
		m.terminated = true
		return Action{ShowOverlay: true, Terminate: true}

	case EventPoll:
		if m.suppressed {
			return Action{ShowOverlay: true}
		}
		return Action{}

	case EventShortcut:
		m.shortcuts++
		return Action{Blocked: ev.Detail}
	}
	return Action{}
}

// Terminated reports whether the run has been irrevocably ended.
func (m *Monitor) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

// Warnings returns the current count for status reporting.
func (m *Monitor) Warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}

// BlockedShortcuts returns the reported-but-uncounted violation tally.
func (m *Monitor) BlockedShortcuts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shortcuts
}

// Run drains events until ctx is done or the channel closes, forwarding
// each resulting Action to sink. It keeps the state machine itself free
// of any event-source plumbing.
func (m *Monitor) Run(ctx context.Context, events <-chan Event, sink func(Action)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			act := m.Handle(ev)
			if sink != nil {
				sink(act)
			}
		}
	}
}
