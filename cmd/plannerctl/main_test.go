package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"deepfocus/internal/database"
	"deepfocus/internal/database/databasetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDB points the CLI at a fresh SQLite file holding one user
func setupDB(t *testing.T) int64 {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", path)

	db, err := database.Initialize(path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(context.Background()))
	userID := databasetest.CreateUser(t, db, "cli@example.com")
	require.NoError(t, db.Close())
	return userID
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRunUsage(t *testing.T) {
	_, err := runCLI(t)
	assert.True(t, errors.Is(err, errUsage))

	_, err = runCLI(t, "frobnicate")
	assert.True(t, errors.Is(err, errUsage))
}

func TestRunCommands(t *testing.T) {
	userID := setupDB(t)
	user := itoa(userID)

	t.Run("migrate", func(t *testing.T) {
		out, err := runCLI(t, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "sqlite3")
	})

	t.Run("reschedule", func(t *testing.T) {
		out, err := runCLI(t, "reschedule", "-user", user)
		require.NoError(t, err)
		assert.Contains(t, out, "Rescheduled 0 overdue tasks")

		_, err = runCLI(t, "reschedule")
		assert.EqualError(t, err, "-user is required")

		_, err = runCLI(t, "reschedule", "-user", "999")
		assert.EqualError(t, err, "user 999 not found")
	})

	t.Run("recompute streaks", func(t *testing.T) {
		out, err := runCLI(t, "recompute-streaks", "-user", user)
		require.NoError(t, err)
		assert.Contains(t, out, "current streak 0, longest 0")

		out, err = runCLI(t, "recompute-streaks")
		require.NoError(t, err)
		assert.Contains(t, out, "Recomputed streaks for 1 users")
	})

	t.Run("set plan", func(t *testing.T) {
		out, err := runCLI(t, "set-plan", "-user", user, "-plan", "pro", "-until", "2099-12-31")
		require.NoError(t, err)
		assert.Contains(t, out, "now on the pro plan")

		_, err = runCLI(t, "set-plan", "-user", user, "-plan", "platinum")
		assert.Error(t, err)

		_, err = runCLI(t, "set-plan", "-user", user, "-plan", "pro", "-until", "someday")
		assert.Error(t, err)
	})

	t.Run("export to stdout", func(t *testing.T) {
		out, err := runCLI(t, "export", "-user", user, "-output", "-")
		require.NoError(t, err)

		var data map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &data))
		assert.Equal(t, "1.0", data["version"])
	})

	t.Run("export to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "export.json")
		out, err := runCLI(t, "export", "-user", user, "-output", path)
		require.NoError(t, err)
		assert.Contains(t, out, path)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "cli@example.com")
	})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
