package activity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ulid"
)

var day = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	driver, err := database.NewDriver(database.Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "activity.db"),
		MaxOpenConns:     1,
	})
	require.NoError(t, err)
	require.NoError(t, driver.Connect(ctx))
	t.Cleanup(func() { driver.Close() })

	repo := NewRepository(driver)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

// seed records one log per entry, each an hour after the previous one.
func seed(t *testing.T, repo *Repository, logs ...Log) {
	t.Helper()
	for i, l := range logs {
		at := day.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return at }
		_, err := repo.Record(context.Background(), l)
		require.NoError(t, err)
	}
}

func TestRepository_Record(t *testing.T) {
	repo := newTestRepository(t)
	repo.now = func() time.Time { return day.Add(1500 * time.Millisecond) }

	l, err := repo.Record(context.Background(), Log{Type: TypeConsume, UserID: "alice", Model: " kling-v1 ", Content: "task submitted"})
	require.NoError(t, err)
	assert.NoError(t, ulid.Validate(l.ID))
	assert.Equal(t, "kling-v1", l.Model)
	assert.True(t, l.CreatedAt.Equal(day.Add(time.Second)))

	items, err := repo.List(context.Background(), Filter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, l.ID, items[0].ID)
	assert.Equal(t, TypeConsume, items[0].Type)
	assert.Equal(t, "task submitted", items[0].Content)
	assert.True(t, l.CreatedAt.Equal(items[0].CreatedAt))
}

func TestRepository_RecordRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, l := range []Log{
		{Type: TypeUnknown, UserID: "alice"},
		{Type: TypeError + 1, UserID: "alice"},
		{Type: TypeSystem},
	} {
		_, err := repo.Record(ctx, l)
		assert.ErrorIs(t, err, ErrInvalidLog)
	}
}

func TestRepository_ListFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed(t, repo,
		Log{Type: TypeConsume, UserID: "alice", Model: "gpt-4o"},
		Log{Type: TypeConsume, UserID: "bob", Model: "gpt-4o"},
		Log{Type: TypeSystem, UserID: "alice", Model: "kling-v1"},
		Log{Type: TypeConsume, UserID: "alice", Model: "kling-v1"},
	)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"type", Filter{Type: TypeConsume}, 3},
		{"user", Filter{UserID: "alice"}, 3},
		{"model", Filter{Model: "kling-v1"}, 2},
		{"user and type", Filter{UserID: "alice", Type: TypeConsume}, 2},
		{"start inclusive", Filter{Start: day.Add(2 * time.Hour)}, 2},
		{"end inclusive", Filter{End: day.Add(time.Hour)}, 2},
		{"window", Filter{Start: day.Add(time.Hour), End: day.Add(2 * time.Hour)}, 2},
		{"no match", Filter{UserID: "carol"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			items, err := repo.List(ctx, tt.filter, 0, 10)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed(t, repo,
		Log{Type: TypeConsume, UserID: "alice", Content: "first"},
		Log{Type: TypeConsume, UserID: "alice", Content: "second"},
		Log{Type: TypeConsume, UserID: "alice", Content: "third"},
	)

	page, err := repo.List(ctx, Filter{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Content)
	assert.Equal(t, "second", page[1].Content)

	page, err = repo.List(ctx, Filter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Content)
}

func TestIsType(t *testing.T) {
	assert.False(t, IsType(TypeUnknown))
	for _, typ := range []int{TypeTopup, TypeConsume, TypeManage, TypeSystem, TypeError} {
		assert.True(t, IsType(typ))
	}
	assert.False(t, IsType(6))
}
