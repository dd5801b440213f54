package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot replaces the stored state in one transaction, so readers
// never observe a half-written schedule.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return err
	}
	for i, t := range snap.Tracks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks(id, display_name, hidden, position) VALUES(?,?,?,?)`,
			t.ID, t.DisplayName, boolInt(t.Hidden), i,
		); err != nil {
			return err
		}
	}
	for i, ev := range snap.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events(id, title, track_id, start_at, end_at, origin, position) VALUES(?,?,?,?,?,?,?)`,
			ev.ID, ev.Title, ev.TrackID,
			ev.Start.Format(time.RFC3339Nano), ev.End.Format(time.RFC3339Nano),
			string(ev.Origin), i,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta(id, saved_at) VALUES(1, ?)
		 ON CONFLICT(id) DO UPDATE SET saved_at=excluded.saved_at`,
		snap.SavedAt.Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, false, ErrClosed
	}

	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT saved_at FROM meta WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if snap.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Snapshot{}, false, fmt.Errorf("corrupt saved_at %q: %w", savedAt, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, display_name, hidden FROM tracks ORDER BY position`)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var t timeline.Track
		var hidden int
		if err := rows.Scan(&t.ID, &t.DisplayName, &hidden); err != nil {
			return Snapshot{}, false, err
		}
		t.Hidden = hidden != 0
		snap.Tracks = append(snap.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, err
	}

	evRows, err := s.db.QueryContext(ctx, `SELECT id, title, track_id, start_at, end_at, origin FROM events ORDER BY position`)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer evRows.Close()
	for evRows.Next() {
		var ev timeline.Event
		var start, end, origin string
		if err := evRows.Scan(&ev.ID, &ev.Title, &ev.TrackID, &start, &end, &origin); err != nil {
			return Snapshot{}, false, err
		}
		if ev.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return Snapshot{}, false, fmt.Errorf("corrupt start_at %q: %w", start, err)
		}
		if ev.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return Snapshot{}, false, fmt.Errorf("corrupt end_at %q: %w", end, err)
		}
		ev.Origin = timeline.Origin(origin)
		snap.Events = append(snap.Events, ev)
	}
	if err := evRows.Err(); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
