// Package outbox keeps the append-only event log that downstream workers
// (the narrative report generator) pull completed attempts from.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-psych/internal/db"
	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

const TypeAttemptCompleted = "AttemptCompleted"

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

// ReportRequest is the payload of an AttemptCompleted event.
type ReportRequest struct {
	AttemptID      string                            `json:"attempt_id"`
	TestID         string                            `json:"test_id"`
	FactorScores   map[string]int                    `json:"factor_scores"`
	Interpretation map[string]scoring.Interpretation `json:"interpretation"`
	Percentage     float64                           `json:"percentage"`
	Passed         bool                              `json:"passed"`
}

type EventRepo struct {
	db     *sql.DB
	driver db.Driver
	site   string
}

func NewEventRepo(conn *sql.DB, driver db.Driver, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: conn, driver: driver, site: siteID}
}

func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	_, err = r.db.ExecContext(ctx, db.Rebind(r.driver,
		`INSERT INTO event_log (site_id, event_type, event_key, data, created_at) VALUES (?,?,?,?,?)`),
		r.site, typ, key, string(b), time.Now().UnixMilli())
	return err
}

// List returns events with seq > after in log order.
func (r *EventRepo) List(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, db.Rebind(r.driver,
		`SELECT seq, site_id, event_type, event_key, data, created_at FROM event_log
		 WHERE seq > ? ORDER BY seq LIMIT ?`), after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AttemptCompleted makes EventRepo a psytest.Publisher.
func (r *EventRepo) AttemptCompleted(ctx context.Context, a psytest.Attempt) error {
	return r.Append(ctx, TypeAttemptCompleted, a.ID, ReportRequest{
		AttemptID:      a.ID,
		TestID:         a.TestID,
		FactorScores:   a.FactorScores,
		Interpretation: a.Interpretation,
		Percentage:     a.Percentage,
		Passed:         a.Passed,
	})
}
