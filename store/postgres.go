package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"showdown-agent/store/migrations"
)

// Postgres wraps a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to PostgreSQL and returns a handle.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// RunMigrations runs goose migrations on the given DSN.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()
	return migrate(ctx, sqlDB, "postgres", "postgres")
}

func migrate(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, r Result) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO battles (room, format, my_side, winner, won, tie, turns, opponents_left, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (room) DO NOTHING`,
		r.Room, r.Format, r.MySide, r.Winner, r.Won, r.Tie, r.Turns, r.OpponentsLeft, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("recording battle %q: %w", r.Room, err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Result, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT room, format, my_side, winner, won, tie, turns, opponents_left, finished_at
		 FROM battles ORDER BY finished_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent battles: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Room, &r.Format, &r.MySide, &r.Winner, &r.Won, &r.Tie,
			&r.Turns, &r.OpponentsLeft, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
