package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/gymplanner/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "workouts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateAndListRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	created := time.Date(2025, time.March, 1, 10, 0, 0, 123_456_000, time.UTC)
	w := domain.Workout{ID: uuid.NewString(), Name: "Push Day", CreatedAt: created}
	require.NoError(t, repo.Create(ctx, w))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, w, got[0])
}

func TestListOrdersNewestFirstWithTies(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	ts := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

	older := domain.Workout{ID: uuid.NewString(), Name: "older", CreatedAt: ts.Add(-time.Hour)}
	first := domain.Workout{ID: uuid.NewString(), Name: "first", CreatedAt: ts}
	second := domain.Workout{ID: uuid.NewString(), Name: "second", CreatedAt: ts}

	for _, w := range []domain.Workout{older, first, second} {
		require.NoError(t, repo.Create(ctx, w))
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "second", got[0].Name)
	assert.Equal(t, "first", got[1].Name)
	assert.Equal(t, "older", got[2].Name)
}

func TestListEmpty(t *testing.T) {
	got, err := openTestRepo(t).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSchemaRejectsEmptyName(t *testing.T) {
	repo := openTestRepo(t)
	err := repo.Create(context.Background(), domain.Workout{ID: uuid.NewString(), Name: "", CreatedAt: time.Now()})
	require.Error(t, err)
}
