package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite keeps results in a single local file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := migrate(ctx, db, "sqlite3", "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO battles (room, format, my_side, winner, won, tie, turns, opponents_left, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (room) DO NOTHING`,
		r.Room, r.Format, r.MySide, r.Winner, r.Won, r.Tie, r.Turns, r.OpponentsLeft, r.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording battle %q: %w", r.Room, err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room, format, my_side, winner, won, tie, turns, opponents_left, finished_at
		 FROM battles ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent battles: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r  Result
			ms int64
		)
		if err := rows.Scan(&r.Room, &r.Format, &r.MySide, &r.Winner, &r.Won, &r.Tie,
			&r.Turns, &r.OpponentsLeft, &ms); err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		r.FinishedAt = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
