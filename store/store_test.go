package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bezbot/types"
)

// newTestStore подключается к TEST_DATABASE_URL и очищает таблицы.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Init(ctx))
	_, err = s.pool.Exec(ctx, "TRUNCATE tests, users RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return s
}

func ptr(s string) *string { return &s }

func TestUsersCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, types.CreateUserParams{Name: "Анна", Role: "специалист"})
	require.NoError(t, err)

	u, err := s.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Анна", u.Name)
	assert.Nil(t, u.Mentor)
	assert.Nil(t, u.Lvl)

	require.NoError(t, s.UpdateUserLevel(ctx, id, types.LevelExpert))
	u, err = s.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.LevelExpert, *u.Lvl)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, id))
	assert.ErrorIs(t, s.DeleteUser(ctx, id), ErrNotFound)
	assert.ErrorIs(t, s.UpdateUserLevel(ctx, id, "x"), ErrNotFound)
	_, err = s.GetUserByID(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTestRecomputesLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, types.CreateUserParams{Name: "Борис", Role: "стажёр"})
	require.NoError(t, err)

	levels := map[int]string{
		1: types.LevelNovice, 2: types.LevelNovice, 3: types.LevelExperienced,
		7: types.LevelProfessional, 10: types.LevelExpert, 11: types.LevelExperienced,
	}
	for n := 1; n <= 11; n++ {
		_, err := s.CreateTest(ctx, types.CreateTestParams{UserID: id, ModuleID: n % 4, Corrects: types.MaxCorrect})
		require.NoError(t, err)
		if want, ok := levels[n]; ok {
			u, err := s.GetUserByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, *u.Lvl, "after %d fully correct attempts", n)
		}
	}
}

func TestCreateTestUnknownUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTest(ctx, types.CreateTestParams{UserID: 999, ModuleID: 1, Corrects: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := s.GeneralStatistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTests)
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateUser(ctx, types.CreateUserParams{Name: "A", Role: "r", Mentor: ptr("Иван")})
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, types.CreateUserParams{Name: "B", Role: "r", Mentor: ptr("Иван")})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, types.CreateUserParams{Name: "C", Role: "r", Mentor: ptr("Иван")})
	require.NoError(t, err)

	for _, tc := range []types.CreateTestParams{
		{UserID: a, ModuleID: 1, Corrects: 5},
		{UserID: a, ModuleID: 1, Corrects: 3},
		{UserID: a, ModuleID: 2, Corrects: 4},
		{UserID: b, ModuleID: 1, Corrects: 5},
	} {
		_, err := s.CreateTest(ctx, tc)
		require.NoError(t, err)
	}

	general, err := s.GeneralStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, general.TotalUsers)
	assert.Equal(t, 4, general.TotalTests)
	assert.Equal(t, 2, general.SuccessfulTests)
	assert.Equal(t, 50.0, general.SuccessRate)
	assert.Equal(t, []types.ModuleSuccess{{ModuleID: 1, SuccessfulUsers: 2}}, general.ModuleStatistics)

	user, err := s.UserStatistics(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 3, user.TotalTests)
	assert.Equal(t, 4.0, user.AverageScore)
	assert.Equal(t, 5, user.MaxScore)
	assert.Equal(t, 3, user.MinScore)
	assert.Equal(t, []int{1}, user.SuccessfulModules)
	assert.Len(t, user.ModuleProgress, 2)

	mentor, err := s.MentorStatistics(ctx, "Иван")
	require.NoError(t, err)
	assert.Equal(t, 3, mentor.TotalUsers)
	assert.Equal(t, 2, mentor.TotalSuccessfulModules)
	assert.Equal(t, 4.5, mentor.AverageSuccessRate)
	assert.Len(t, mentor.Users, 3)

	_, err = s.MentorStatistics(ctx, "Никто")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UserStatistics(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStatisticsWithoutTests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, types.CreateUserParams{Name: "D", Role: "r"})
	require.NoError(t, err)

	stats, err := s.UserStatistics(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTests)
	assert.Zero(t, stats.AverageScore)
	assert.Empty(t, stats.SuccessfulModules)
	assert.NotNil(t, stats.ModuleProgress)
}

func TestChunkStoreSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cs := NewChunkStore(s)
	if err := cs.Init(ctx); err != nil {
		t.Skipf("pgvector extension unavailable: %v", err)
	}

	chunks := []types.Chunk{
		{Text: "a", DocumentName: "Doc A"},
		{Text: "b", DocumentName: "Doc B", ParagraphName: "п.2"},
	}
	require.NoError(t, cs.ReplaceChunks(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, 2, cs.Dim())

	results, err := cs.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].ID)
	assert.Equal(t, "п.2", results[0].ParagraphName)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 2, results[1].Distance, 1e-6)
}
