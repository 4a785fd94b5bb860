package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/pkg/cerr"
	"github.com/crewkit/crewd/pkg/shellformat"
)

// ScriptExecutor runs a per-type shell script from the configured script
// directory. The script receives the task via CREWD_TASK_* environment
// variables and its final stdout line (or full stdout) becomes the result.
type ScriptExecutor struct {
	scriptDir string
	timeout   time.Duration
}

func NewScriptExecutor(env *config.ExecutorEnv) *ScriptExecutor {
	return &ScriptExecutor{
		scriptDir: env.ScriptDir,
		timeout:   env.ScriptTimeout,
	}
}

// ScriptPath returns the script file for a task type.
func (e *ScriptExecutor) ScriptPath(t task.Type) string {
	return filepath.Join(e.scriptDir, string(t)+".sh")
}

// HasScript reports whether a script exists for the task type.
func (e *ScriptExecutor) HasScript(t task.Type) bool {
	_, err := os.Stat(e.ScriptPath(t))
	return err == nil
}

func (e *ScriptExecutor) Execute(ctx context.Context, t *task.Task) (map[string]any, error) {
	content, err := os.ReadFile(e.ScriptPath(t.Type))
	if err != nil {
		return nil, cerr.NewError(cerr.NotFound,
			fmt.Sprintf("no executor script for task type %s", t.Type), err)
	}

	// Reject broken scripts before handing them to the shell.
	if err := shellformat.Validate(string(content)); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("executor script for %s does not parse", t.Type), err)
	}

	tmpDir := filepath.Join(e.scriptDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to create script temp directory", err)
	}
	tmpFile := filepath.Join(tmpDir, fmt.Sprintf("exec_%s_%s.sh", t.ID, t.Type))
	if err := os.WriteFile(tmpFile, content, 0o755); err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to write temp script", err)
	}
	defer os.Remove(tmpFile)

	inputJSON, err := json.Marshal(t.InputData)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to encode task input", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "/bin/sh", tmpFile)
	cmd.Env = append(os.Environ(),
		"CREWD_TASK_ID="+t.ID,
		"CREWD_TASK_TYPE="+string(t.Type),
		"CREWD_TASK_TITLE="+t.Title,
		"CREWD_TASK_ASSIGNEE="+t.AssigneeID,
		"CREWD_TASK_INPUT="+string(inputJSON),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("script for %s timed out after %s", t.Type, e.timeout)
		}
		return nil, fmt.Errorf("script for %s failed: %w: %s",
			t.Type, err, strings.TrimSpace(stderr.String()))
	}

	return map[string]any{
		"result": strings.TrimSpace(stdout.String()),
	}, nil
}
