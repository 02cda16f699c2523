package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Postgres is a UserRepository backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and creates the users table if absent.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	const schema = `
create table if not exists users (
	id bigserial primary key,
	full_name text not null,
	email text not null unique,
	password_hash text not null,
	created_at timestamptz not null default now()
)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create tables: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Create(ctx context.Context, u *User) error {
	const q = `insert into users (full_name, email, password_hash)
	           values ($1, $2, $3)
	           returning id, created_at`
	err := p.pool.QueryRow(ctx, q, u.FullName, normalizeEmail(u.Email), u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*User, error) {
	const q = `select id, full_name, email, password_hash, created_at
	           from users
	           where email = $1`
	var u User
	err := p.pool.QueryRow(ctx, q, normalizeEmail(email)).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
