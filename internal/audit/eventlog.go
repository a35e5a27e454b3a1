// Package audit appends workflow transitions to the event_log table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/meritscore/internal/db"
)

// Event types.
const (
	ApplicationSubmitted = "application.submitted"
	ApplicationEdited    = "application.edited"
	ApplicationWithdrawn = "application.withdrawn"
	ApplicationReviewed  = "application.reviewed"
	GroupSubmitted       = "group.submitted"
	GroupEdited          = "group.edited"
	GroupWithdrawn       = "group.withdrawn"
	GroupReviewed        = "group.reviewed"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Actor     string          `json:"actor"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Append writes one event through q; pass the workflow's transaction so the
// event commits or rolls back with the change it describes.
func Append(ctx context.Context, q db.Querier, typ, key, actor string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("audit: encode %s: %w", typ, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, actor, data, created_at) VALUES ($1,$2,$3,$4,$5)`,
		typ, key, actor, string(b), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("audit: append %s: %w", typ, err)
	}
	return nil
}

// List returns events for key, oldest first. An empty key lists the most
// recent events across all keys, newest first.
func (r *EventRepo) List(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq,typ,key,actor,data,created_at FROM event_log ORDER BY seq DESC LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq,typ,key,actor,data,created_at FROM event_log WHERE key=$1 ORDER BY seq LIMIT $2`, key, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &e.Actor, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
