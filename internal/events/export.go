package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// Record is the externally serializable form of an event, used for offline
// analysis tooling. Format stability across versions is not guaranteed.
type Record struct {
	Seq       uint64         `json:"seq"`
	Type      string         `json:"type"`
	Subject   string         `json:"subject"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// Records returns the full event sequence as export records, in order.
func (l *Log) Records() []Record {
	evs := l.All()
	out := make([]Record, len(evs))
	for i, ev := range evs {
		out[i] = Record{
			Seq:       ev.seq,
			Type:      string(ev.eventType),
			Subject:   ev.subject,
			Timestamp: ev.timestamp,
			Context:   ev.Context(),
		}
	}
	return out
}

// ExportJSON writes the full event sequence to path as an ordered JSON
// array. A failed export leaves the in-memory log untouched.
func (l *Log) ExportJSON(path string) error {
	records := l.Records()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		l.logger.Error("failed to encode event export", "error", err)
		return fmt.Errorf("encode event export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		l.logger.Error("failed to write event export", "error", err, "path", path)
		return fmt.Errorf("write event export: %w", err)
	}

	l.logger.Info("event log exported", "path", path, "events", len(records))
	return nil
}

// ExportSQLite writes the full event sequence to a SQLite database at path,
// replacing any previous export. The in-memory log is never affected by a
// failed export.
func (l *Log) ExportSQLite(ctx context.Context, path string) error {
	records := l.Records()

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		l.logger.Error("failed to open export database", "error", err, "path", path)
		return fmt.Errorf("open export database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			l.logger.Error("failed to close export database", "error", cerr)
		}
	}()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY,
	type TEXT NOT NULL,
	subject TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	context TEXT
)`); err != nil {
		l.logger.Error("failed to prepare export schema", "error", err)
		return fmt.Errorf("prepare export schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		l.logger.Error("failed to clear previous export", "error", err)
		return fmt.Errorf("clear previous export: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events(seq, type, subject, timestamp, context) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare export insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range records {
		ctxJSON, err := json.Marshal(rec.Context)
		if err != nil {
			l.logger.Error("failed to encode event context", "error", err, "seq", rec.Seq)
			return fmt.Errorf("encode event context: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Seq, rec.Type, rec.Subject,
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			string(ctxJSON)); err != nil {
			l.logger.Error("failed to insert event", "error", err, "seq", rec.Seq)
			return fmt.Errorf("insert event %d: %w", rec.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		l.logger.Error("failed to commit event export", "error", err)
		return fmt.Errorf("commit event export: %w", err)
	}

	l.logger.Info("event log exported", "path", path, "events", len(records))
	return nil
}
