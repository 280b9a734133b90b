package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bezbot/types"
)

type UserStorer interface {
	CreateUser(ctx context.Context, params types.CreateUserParams) (int, error)
	GetUserByID(ctx context.Context, id int) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	UpdateUserLevel(ctx context.Context, id int, lvl string) error
	DeleteUser(ctx context.Context, id int) error
}

const userColumns = "id, name, role, mentor, lvl"

func scanUser(row pgx.Row) (*types.User, error) {
	u := &types.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Mentor, &u.Lvl); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, params types.CreateUserParams) (int, error) {
	var id int
	err := p.pool.QueryRow(ctx,
		"INSERT INTO users (name, role, mentor, lvl) VALUES ($1, $2, $3, $4) RETURNING id",
		params.Name, params.Role, params.Mentor, params.Lvl,
	).Scan(&id)
	return id, err
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id int) (*types.User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (p *PostgresStore) UpdateUserLevel(ctx context.Context, id int, lvl string) error {
	tag, err := p.pool.Exec(ctx, "UPDATE users SET lvl = $1 WHERE id = $2", lvl, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser удаляет пользователя, его попытки удаляются каскадно.
func (p *PostgresStore) DeleteUser(ctx context.Context, id int) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
