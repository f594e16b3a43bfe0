// Package store persists finished battle results.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// Result is the outcome of one battle as seen from our side.
type Result struct {
	Room          string    `json:"room"`
	Format        string    `json:"format"`
	MySide        string    `json:"my_side"`
	Winner        string    `json:"winner"`
	Won           bool      `json:"won"`
	Tie           bool      `json:"tie"`
	Turns         int       `json:"turns"`
	OpponentsLeft int       `json:"opponents_left"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Repository stores results. Recording the same room twice keeps the first row.
type Repository interface {
	Record(ctx context.Context, r Result) error
	Recent(ctx context.Context, limit int) ([]Result, error)
	Close() error
}

// Open connects to the database named by dsn and applies migrations.
// postgres:// and postgresql:// go to PostgreSQL; sqlite:// and file: go to SQLite.
func Open(ctx context.Context, dsn string) (Repository, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if err := RunMigrations(ctx, dsn); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
}
