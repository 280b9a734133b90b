package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bezbot/types"
)

type TestStorer interface {
	CreateTest(ctx context.Context, params types.CreateTestParams) (int, error)
}

// CreateTest записывает попытку и пересчитывает уровень пользователя
// в одной транзакции. Строка пользователя блокируется до коммита.
func (p *PostgresStore) CreateTest(ctx context.Context, params types.CreateTestParams) (id int, err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var userID int
	err = tx.QueryRow(ctx, "SELECT id FROM users WHERE id = $1 FOR UPDATE", params.UserID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user %d: %w", params.UserID, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}

	err = tx.QueryRow(ctx,
		"INSERT INTO tests (user_id, module_id, corrects) VALUES ($1, $2, $3) RETURNING id",
		params.UserID, params.ModuleID, params.Corrects,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	var fullyCorrect int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM tests WHERE user_id = $1 AND corrects = $2",
		params.UserID, types.MaxCorrect,
	).Scan(&fullyCorrect)
	if err != nil {
		return 0, err
	}

	if _, err = tx.Exec(ctx, "UPDATE users SET lvl = $1 WHERE id = $2", types.LevelFor(fullyCorrect), params.UserID); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}
