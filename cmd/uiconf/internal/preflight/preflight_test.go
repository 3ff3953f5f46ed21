package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndCreate_ExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	results, err := ValidateAndCreate([]FileCheck{{Path: dir, IsDir: true, FailFatal: true}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Exists)
	assert.False(t, results[0].Created)
}

func TestValidateAndCreate_CreatesMissing(t *testing.T) {
	root := t.TempDir()
	logDir := filepath.Join(root, "var", "log", "uiconf")
	dbFile := filepath.Join(root, "opt", "uiconf", "uiconf.db")

	results, err := ValidateAndCreate([]FileCheck{
		{Path: logDir, IsDir: true, FailFatal: true},
		{Path: dbFile, FailFatal: true},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.False(t, r.Exists)
		assert.True(t, r.Created)
	}
	assert.DirExists(t, logDir)
	assert.FileExists(t, dbFile)
}

func TestValidateAndCreate_DoesNotTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uiconf.db")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	_, err := ValidateAndCreate([]FileCheck{{Path: path, FailFatal: true}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestValidateAndCreate_WrongType(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := ValidateAndCreate([]FileCheck{{Path: dir, IsDir: false, FailFatal: true}})
	assert.ErrorContains(t, err, "is a directory")

	_, err = ValidateAndCreate([]FileCheck{{Path: file, IsDir: true, FailFatal: true}})
	assert.ErrorContains(t, err, "not a directory")
}

func TestValidateAndCreate_NonFatalContinues(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	other := filepath.Join(dir, "other")

	results, err := ValidateAndCreate([]FileCheck{
		{Path: file, IsDir: true, FailFatal: false},
		{Path: other, IsDir: true, FailFatal: true},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Error)
	assert.True(t, results[1].Created)
}

func TestWritable(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, Writable(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, Writable(filepath.Join(dir, "missing")))
}
