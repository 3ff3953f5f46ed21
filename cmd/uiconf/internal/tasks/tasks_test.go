package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/database"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ulid"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	driver, err := database.NewDriver(database.Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "tasks.db"),
		MaxOpenConns:     1,
	})
	require.NoError(t, err)
	require.NoError(t, driver.Connect(ctx))
	t.Cleanup(func() { driver.Close() })

	repo := NewRepository(driver)
	repo.now = func() time.Time { return fixedNow }
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	task, err := repo.Create(ctx, Task{
		Action: constants.TaskActionTextGenerate,
		Model:  " kling-v1 ",
		Prompt: "a cat on a skateboard",
		UserID: "user-1",
	})
	require.NoError(t, err)

	assert.NoError(t, ulid.Validate(task.ID))
	assert.Equal(t, "kling-v1", task.Model)
	assert.Equal(t, constants.TaskStatusSubmitted, task.Status)
	assert.Equal(t, fixedNow, task.CreatedAt)

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestRepository_CreateValidation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tests := []struct {
		name string
		task Task
		err  error
	}{
		{"unknown action", Task{Action: "draw", Model: "m", UserID: "u"}, ErrInvalidAction},
		{"empty action", Task{Model: "m", UserID: "u"}, ErrInvalidAction},
		{"wrong case action", Task{Action: "textgenerate", Model: "m", UserID: "u"}, ErrInvalidAction},
		{"no model", Task{Action: constants.TaskActionGenerate, UserID: "u"}, ErrInvalidTask},
		{"no user", Task{Action: constants.TaskActionGenerate, Model: "m"}, ErrInvalidTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.task)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	count, err := repo.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	task, err := repo.Create(ctx, Task{Action: constants.TaskActionGenerate, Model: "m", UserID: "u"})
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	repo.now = func() time.Time { return later }

	updated, err := repo.UpdateStatus(ctx, task.ID, constants.TaskStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusSuccess, updated.Status)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, fixedNow, updated.CreatedAt)

	_, err = repo.UpdateStatus(ctx, task.ID, "done")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = repo.UpdateStatus(ctx, ulid.GenerateWithTime(time.Now()), constants.TaskStatusFailure)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetMissing(t *testing.T) {
	_, err := newTestRepository(t).Get(context.Background(), ulid.GenerateWithTime(time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	var created []Task
	for _, seed := range []struct{ action, user string }{
		{constants.TaskActionGenerate, "alice"},
		{constants.TaskActionTextGenerate, "alice"},
		{constants.TaskActionGenerate, "bob"},
		{constants.TaskActionGenerate, "alice"},
	} {
		task, err := repo.Create(ctx, Task{Action: seed.action, Model: "m", UserID: seed.user})
		require.NoError(t, err)
		created = append(created, task)
	}

	all, err := repo.List(ctx, Filter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, created[3].ID, all[0].ID, "newest first")

	alice, err := repo.List(ctx, Filter{UserID: "alice", Action: constants.TaskActionGenerate}, 0, 10)
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, created[3].ID, alice[0].ID)
	assert.Equal(t, created[0].ID, alice[1].ID)

	page, err := repo.List(ctx, Filter{UserID: "alice"}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, created[1].ID, page[0].ID)

	counts := []struct {
		filter Filter
		want   int
	}{
		{Filter{}, 4},
		{Filter{UserID: "alice"}, 3},
		{Filter{Action: constants.TaskActionTextGenerate}, 1},
		{Filter{Action: constants.TaskActionGenerate, UserID: "bob"}, 1},
		{Filter{UserID: "carol"}, 0},
	}
	for _, c := range counts {
		got, err := repo.Count(ctx, c.filter)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%+v", c.filter)
	}

	empty, err := repo.List(ctx, Filter{UserID: "carol"}, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
