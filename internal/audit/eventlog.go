// Package audit records proctoring and lifecycle events in an
// append-only log, keyed by quiz run, for after-the-fact review.
package audit

import (
	"context"
	"database/sql"
	"time"
)

type Event struct {
	Seq       int64  `json:"seq"`
	RunKey    string `json:"run_key"` // user|subtopic
	Type      string `json:"type"`    // e.g. IntegrityWarning, SessionEnded
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (run_key, typ, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.RunKey, e.Type, e.DataJSON, time.Now().Unix())
	return err
}

// ListByRun returns the events for one run in append order.
func (r *EventRepo) ListByRun(ctx context.Context, runKey string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, run_key, typ, data, created_at FROM event_log
		 WHERE run_key=$1 ORDER BY seq ASC`, runKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.RunKey, &e.Type, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
