package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/task"
)

func TestRegistry_DispatchAndFallback(t *testing.T) {
	reg := NewRegistry(NewEchoExecutor())
	reg.Register(task.TypeValidation, NewValidationExecutor())

	out, err := reg.Execute(context.Background(), &task.Task{
		ID:         "t1",
		Title:      "ship it",
		Type:       task.TypeDeployment,
		AssigneeID: "agent-1",
	})
	require.NoError(t, err)
	assert.Contains(t, out["result"], "ship it")

	_, err = reg.Execute(context.Background(), &task.Task{
		ID:   "t2",
		Type: task.TypeValidation,
		InputData: map[string]any{
			"expected": "a\nb\n",
			"actual":   "a\nc\n",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "-b")
	assert.Contains(t, err.Error(), "+c")
}

func TestValidationExecutor_Match(t *testing.T) {
	out, err := NewValidationExecutor().Execute(context.Background(), &task.Task{
		InputData: map[string]any{"expected": "same", "actual": "same"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["match"])
}

func TestScriptExecutor(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"scraped by $CREWD_TASK_ASSIGNEE\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web_scraping.sh"), []byte(script), 0o755))

	e := NewScriptExecutor(&config.ExecutorEnv{
		ScriptDir:     dir,
		ScriptTimeout: 10 * time.Second,
	})

	require.True(t, e.HasScript(task.TypeWebScraping))
	require.False(t, e.HasScript(task.TypeResearch))

	out, err := e.Execute(context.Background(), &task.Task{
		ID:         "t1",
		Type:       task.TypeWebScraping,
		AssigneeID: "scraper",
	})
	require.NoError(t, err)
	assert.Equal(t, "scraped by scraper", out["result"])

	_, err = e.Execute(context.Background(), &task.Task{ID: "t2", Type: task.TypeResearch})
	require.Error(t, err)
}

func TestScriptExecutor_RejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "research.sh"), []byte("if then fi ((("), 0o755))

	e := NewScriptExecutor(&config.ExecutorEnv{ScriptDir: dir, ScriptTimeout: 10 * time.Second})
	_, err := e.Execute(context.Background(), &task.Task{ID: "t1", Type: task.TypeResearch})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not parse")
}
