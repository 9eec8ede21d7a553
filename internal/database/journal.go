package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentdapp/internal/store"
)

// JournalEntry is one persisted envelope.
type JournalEntry struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Append implements store.Journal.
func (db *DB) Append(ctx context.Context, env store.Envelope) error {
	payload, err := json.Marshal(env.Action)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Action.Type(), err)
	}

	query := `INSERT INTO action_log (id, seq, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := db.db.ExecContext(ctx, query, env.ID.String(), env.Seq, env.Action.Type(), string(payload), env.At.UTC()); err != nil {
		return fmt.Errorf("insert action %d: %w", env.Seq, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, seq, type, payload, created_at
        FROM action_log
        ORDER BY rowid_ DESC
        LIMIT ?
    `
	rows, err := db.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent actions: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByType groups the journal by action type.
func (db *DB) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM action_log GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}
