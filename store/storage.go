package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		role VARCHAR(50) NOT NULL,
		mentor VARCHAR(100),
		lvl TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_users_mentor ON users(mentor);

	CREATE TABLE IF NOT EXISTS tests (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		module_id INT NOT NULL,
		corrects INT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tests_user_id ON tests(user_id);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

// Init создаёт таблицы пользователей и тестов.
func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createTables(ctx)
}

// Close закрывает пул подключений
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool is closed")
	}
	return nil
}
