package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bezbot/types"
)

type StatsStorer interface {
	GeneralStatistics(ctx context.Context) (*types.GeneralStats, error)
	UserStatistics(ctx context.Context, userID int) (*types.UserStats, error)
	MentorStatistics(ctx context.Context, mentor string) (*types.MentorStats, error)
}

// querier покрывает и пул, и транзакцию.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var snapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// readSnapshot runs fn inside a read-only repeatable-read transaction so that
// multi-query statistics see one consistent state.
func (p *PostgresStore) readSnapshot(ctx context.Context, fn func(q querier) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, snapshot, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

func (p *PostgresStore) GeneralStatistics(ctx context.Context) (*types.GeneralStats, error) {
	stats := &types.GeneralStats{ModuleStatistics: []types.ModuleSuccess{}}
	err := p.readSnapshot(ctx, func(q querier) error {
		rows, err := q.Query(ctx, `
			SELECT module_id, COUNT(DISTINCT user_id)
			FROM tests
			WHERE corrects = $1
			GROUP BY module_id
			ORDER BY module_id`, types.MaxCorrect)
		if err != nil {
			return err
		}
		stats.ModuleStatistics, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ModuleSuccess, error) {
			var m types.ModuleSuccess
			err := row.Scan(&m.ModuleID, &m.SuccessfulUsers)
			return m, err
		})
		if err != nil {
			return err
		}

		return q.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM users),
				(SELECT COUNT(*) FROM tests),
				(SELECT COUNT(*) FROM tests WHERE corrects = $1)`, types.MaxCorrect,
		).Scan(&stats.TotalUsers, &stats.TotalTests, &stats.SuccessfulTests)
	})
	if err != nil {
		return nil, err
	}
	stats.SuccessRate = types.SuccessRate(stats.SuccessfulTests, stats.TotalTests)
	return stats, nil
}

func (p *PostgresStore) UserStatistics(ctx context.Context, userID int) (*types.UserStats, error) {
	var stats *types.UserStats
	err := p.readSnapshot(ctx, func(q querier) error {
		var err error
		stats, err = userStatistics(ctx, q, userID)
		return err
	})
	return stats, err
}

func userStatistics(ctx context.Context, q querier, userID int) (*types.UserStats, error) {
	user, err := scanUser(q.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT module_id, COUNT(*), MIN(corrects), MAX(corrects)
		FROM tests
		WHERE user_id = $1
		GROUP BY module_id
		ORDER BY module_id`, userID)
	if err != nil {
		return nil, err
	}
	progress, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ModuleProgress, error) {
		var m types.ModuleProgress
		err := row.Scan(&m.ModuleID, &m.TotalAttempts, &m.WorstScore, &m.BestScore)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	stats := &types.UserStats{
		UserInfo:          *user,
		SuccessfulModules: types.SuccessfulModules(progress),
		ModuleProgress:    progress,
	}
	if stats.ModuleProgress == nil {
		stats.ModuleProgress = []types.ModuleProgress{}
	}

	// без попыток AVG/MIN/MAX дают NULL, COALESCE сводит их к нулю
	err = q.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(corrects), 0)::float8, COALESCE(MAX(corrects), 0), COALESCE(MIN(corrects), 0)
		FROM tests
		WHERE user_id = $1`, userID,
	).Scan(&stats.TotalTests, &stats.AverageScore, &stats.MaxScore, &stats.MinScore)
	if err != nil {
		return nil, err
	}
	stats.AverageScore = types.Round2(stats.AverageScore)
	return stats, nil
}

func (p *PostgresStore) MentorStatistics(ctx context.Context, mentor string) (*types.MentorStats, error) {
	var stats types.MentorStats
	err := p.readSnapshot(ctx, func(q querier) error {
		rows, err := q.Query(ctx, "SELECT id FROM users WHERE mentor = $1 ORDER BY id", mentor)
		if err != nil {
			return err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("mentor %q: %w", mentor, ErrNotFound)
		}

		users := make([]types.UserStats, 0, len(ids))
		for _, id := range ids {
			s, err := userStatistics(ctx, q, id)
			if err != nil {
				return err
			}
			users = append(users, *s)
		}
		stats = types.NewMentorStats(mentor, len(ids), users)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
