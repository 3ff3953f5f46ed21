package ratio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	driver, err := database.NewDriver(database.Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "ratio.db"),
		MaxOpenConns:     1,
	})
	require.NoError(t, err)
	require.NoError(t, driver.Connect(ctx))
	t.Cleanup(func() { driver.Close() })

	repo := NewRepository(driver)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func float(v float64) *float64 { return &v }

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid", Entry{ModelName: "gpt-4o", ModelRatio: 1.25, CompletionRatio: 4}, false},
		{"zero ratios", Entry{ModelName: "free"}, false},
		{"blank name", Entry{ModelName: "  "}, true},
		{"negative ratio", Entry{ModelName: "m", ModelRatio: -1}, true},
		{"negative cache", Entry{ModelName: "m", CacheRatio: float(-0.1)}, true},
		{"negative price", Entry{ModelName: "m", ModelPrice: float(-2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEntry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepository_HasSchema(t *testing.T) {
	ctx := context.Background()
	driver, err := database.NewDriver(database.Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "fresh.db"),
		MaxOpenConns:     1,
	})
	require.NoError(t, err)
	require.NoError(t, driver.Connect(ctx))
	t.Cleanup(func() { driver.Close() })

	repo := NewRepository(driver)
	exists, err := repo.HasSchema(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.EnsureSchema(ctx))
	exists, err = repo.HasSchema(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	stored, err := repo.Upsert(ctx, Entry{ModelName: " gpt-4o ", ModelRatio: 1.25, CompletionRatio: 4, CacheRatio: float(0.5)})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", stored.ModelName)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), stored.UpdatedAt)

	got, err := repo.Get(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, 1.25, got.ModelRatio)
	assert.Equal(t, 4.0, got.CompletionRatio)
	require.NotNil(t, got.CacheRatio)
	assert.Equal(t, 0.5, *got.CacheRatio)
	assert.Nil(t, got.ModelPrice)
	assert.Equal(t, stored.UpdatedAt, got.UpdatedAt)

	_, err = repo.Upsert(ctx, Entry{ModelName: "gpt-4o", ModelRatio: 2, CompletionRatio: 3, ModelPrice: float(0.01)})
	require.NoError(t, err)

	got, err = repo.Get(ctx, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.ModelRatio)
	assert.Nil(t, got.CacheRatio)
	require.NotNil(t, got.ModelPrice)
	assert.Equal(t, 0.01, *got.ModelPrice)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Upsert(context.Background(), Entry{ModelName: ""})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestRepository_GetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "absent"), ErrNotFound)
}

func TestRepository_ListPagesAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, name := range []string{"c", "a", "e", "b", "d"} {
		_, err := repo.Upsert(ctx, Entry{ModelName: name, ModelRatio: 1, CompletionRatio: 1})
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ModelName)
	assert.Equal(t, "b", page[1].ModelName)

	page, err = repo.List(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "e", page[0].ModelName)

	page, err = repo.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	require.NoError(t, repo.Delete(ctx, "c"))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRepository_Exposed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cfg, err := repo.Exposed(ctx)
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)

	_, err = repo.Upsert(ctx, Entry{ModelName: "gpt-4o", ModelRatio: 1.25, CompletionRatio: 4, CacheRatio: float(0.5)})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, Entry{ModelName: "dall-e-3", ModelRatio: 1, CompletionRatio: 1, ModelPrice: float(0.04)})
	require.NoError(t, err)

	cfg, err = repo.Exposed(ctx)
	require.NoError(t, err)
	assert.Equal(t, Config{
		TypeModelRatio:      {"gpt-4o": 1.25, "dall-e-3": 1},
		TypeCompletionRatio: {"gpt-4o": 4, "dall-e-3": 1},
		TypeCacheRatio:      {"gpt-4o": 0.5},
		TypeModelPrice:      {"dall-e-3": 0.04},
	}, cfg)
}
