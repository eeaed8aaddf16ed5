package service

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportUserData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userID := env.user(t, "export@example.com")

	task := env.createTask(t, userID, "exported", "", strPtr(env.today()))
	_, err := env.tasks.AddSubtask(ctx, userID, task.ID, SubtaskInput{Name: "part", IsDone: true})
	require.NoError(t, err)
	_, err = env.plans.Create(ctx, userID, PlanInput{SleepTime: 8})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.export.Export(ctx, userID, &buf))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "export@example.com", data.User.Email)
	assert.Equal(t, "sqlite3", data.DatabaseType)
	require.Len(t, data.Tasks, 1)
	assert.Len(t, data.Tasks[0].Subtasks, 1)
	assert.Equal(t, 1.0, data.Tasks[0].Progress)
	assert.Len(t, data.Plans, 1)
	assert.Len(t, data.DailyStats, 1)

	t.Run("to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.json")
		require.NoError(t, env.export.ExportToFile(ctx, userID, path))
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"email": "export@example.com"`)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := env.export.Export(ctx, 9999, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
