package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/window"
	"github.com/okian/aforo/pkg/metrics"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id TEXT NOT NULL,
	direction TEXT NOT NULL CHECK (direction IN ('entrada', 'salida')),
	ts        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events (ts);
CREATE INDEX IF NOT EXISTS idx_events_entity_ts ON events (entity_id, ts, id);
CREATE TABLE IF NOT EXISTS entities (
	id    TEXT PRIMARY KEY,
	kind  TEXT NOT NULL CHECK (kind IN ('escolar', 'universitario')),
	name  TEXT,
	grade TEXT,
	code  TEXT
);
`

// SQLiteStore is the durable ledger. A single writer process owns the file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open ledger: path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append durably records one event. The insert is acknowledged by SQLite
// before the id is returned, so an accepted event survives a crash.
func (s *SQLiteStore) Append(ctx context.Context, entityID string, dir model.Direction, ts int64) (int64, error) {
	if !dir.Valid() {
		return 0, fmt.Errorf("append %q: %w", dir, ErrBadDirection)
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (entity_id, direction, ts) VALUES (?, ?, ?)`,
		entityID, string(dir), ts,
	)
	metrics.RecordLedgerAppendLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("append event: %w: %w", ErrUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event id: %w", err)
	}
	return id, nil
}

// LastDirection returns the most recent direction for an entity.
func (s *SQLiteStore) LastDirection(ctx context.Context, entityID string) (model.Direction, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT direction FROM events WHERE entity_id = ? ORDER BY ts DESC, id DESC LIMIT 1`,
		entityID,
	)
	var dir string
	if err := row.Scan(&dir); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("last direction for %q: %w: %w", entityID, ErrUnavailable, err)
	}
	return model.Direction(dir), true, nil
}

// Range returns events inside the window, newest first.
func (s *SQLiteStore) Range(ctx context.Context, w window.Window) ([]model.Event, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entity_id, direction, ts FROM events
		 WHERE ts >= ? AND ts <= ?
		 ORDER BY ts DESC, id DESC`,
		w.Start.UnixMilli(), w.End.UnixMilli(),
	)
	metrics.RecordLedgerQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("range events: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e   model.Event
			dir string
			ts  int64
		)
		if err := rows.Scan(&e.ID, &e.EntityID, &dir, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Direction = model.Direction(dir)
		e.Timestamp = time.UnixMilli(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range events: %w: %w", ErrUnavailable, err)
	}
	return out, nil
}

// RangeJoined returns events with registered entity metadata attached.
func (s *SQLiteStore) RangeJoined(ctx context.Context, w window.Window) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.entity_id, e.direction, e.ts, n.kind, n.name, n.grade, n.code
		 FROM events e LEFT JOIN entities n ON n.id = e.entity_id
		 WHERE e.ts >= ? AND e.ts <= ?
		 ORDER BY e.ts DESC, e.id DESC`,
		w.Start.UnixMilli(), w.End.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("range joined events: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.LogEntry
	for rows.Next() {
		var (
			entry       model.LogEntry
			dir         string
			ts          int64
			kind, name  sql.NullString
			grade, code sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.EntityID, &dir, &ts, &kind, &name, &grade, &code); err != nil {
			return nil, fmt.Errorf("scan joined event: %w", err)
		}
		entry.Direction = model.Direction(dir)
		entry.Timestamp = time.UnixMilli(ts)
		if kind.Valid {
			entry.Entity = &model.Entity{
				ID:    entry.EntityID,
				Kind:  kind.String,
				Name:  name.String,
				Grade: grade.String,
				Code:  code.String,
			}
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range joined events: %w: %w", ErrUnavailable, err)
	}
	return out, nil
}

// Clear removes all events. The AUTOINCREMENT sequence is left alone so ids
// are never reused after a reset.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// UpsertEntity inserts or replaces registry metadata.
func (s *SQLiteStore) UpsertEntity(ctx context.Context, e model.Entity) error {
	if err := validateEntity(e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, kind, name, grade, code) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			grade = excluded.grade,
			code = excluded.code`,
		e.ID, e.Kind, e.Name, e.Grade, e.Code,
	)
	if err != nil {
		return fmt.Errorf("upsert entity %q: %w: %w", e.ID, ErrUnavailable, err)
	}
	return nil
}

// GetEntity returns registry metadata for an id.
func (s *SQLiteStore) GetEntity(ctx context.Context, id string) (model.Entity, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, COALESCE(name, ''), COALESCE(grade, ''), COALESCE(code, '')
		 FROM entities WHERE id = ?`,
		id,
	)
	var e model.Entity
	if err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.Grade, &e.Code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Entity{}, false, nil
		}
		return model.Entity{}, false, fmt.Errorf("get entity %q: %w: %w", id, ErrUnavailable, err)
	}
	return e, true, nil
}

func validateEntity(e model.Entity) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEntity)
	}
	switch e.Kind {
	case model.KindSchool:
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Grade) == "" {
			return fmt.Errorf("%w: escolar requires name and grade", ErrInvalidEntity)
		}
	case model.KindUniversity:
		if strings.TrimSpace(e.Code) == "" {
			return fmt.Errorf("%w: universitario requires code", ErrInvalidEntity)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, e.Kind)
	}
	return nil
}
