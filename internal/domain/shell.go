package domain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

// ShellAdapter executes one bash command per call, grounded directly on the
// teacher's internal/tools/shell.go RunShell helper.
type ShellAdapter struct {
	ErrorMode types.ErrorModeFlag
	Docs      []DomainDoc
	Timeout   time.Duration
}

var shellQualityKeywords = regexp.MustCompile(`(?i)\b(bash|pipe|redirect|exit code|stdout|stderr)\b`)

const defaultShellAdapterTimeout = 30 * time.Second

func (a *ShellAdapter) Name() string             { return "shell" }
func (a *ShellAdapter) ExecutorToolName() string { return "run_bash" }

func (a *ShellAdapter) ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec {
	executor := types.ToolSpec{
		Name:        a.ExecutorToolName(),
		Description: "Execute a bash command in the session workspace and return stdout/stderr.",
		Type:        "object",
		Properties:  map[string]types.PropertySpec{"command": {Type: "string"}},
		Required:    []string{"command"},
	}
	return standardToolDefs(a.ExecutorToolName(), executor, fixtureRefs, opaque)
}

func (a *ShellAdapter) BuildAliasMap(opaque bool) map[string]string {
	return standardAliasMap(a.ExecutorToolName(), opaque)
}

func (a *ShellAdapter) PrepareWorkspace(taskDir, workDir string) (Workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("domain/shell: mkdir workdir: %w", err)
	}
	return Workspace{Dir: workDir}, nil
}

func (a *ShellAdapter) Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult {
	command, _ := input["command"].(string)
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultShellAdapterTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, "bash", "-c", command)
	c.Dir = ws.Dir
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf

	if err := c.Run(); err != nil {
		msg := fmt.Sprintf("command failed: %v. stderr: %s", err, errBuf.String())
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), msg, "check command syntax and exit code")}
	}
	return types.ToolResult{Output: outBuf.String()}
}

func (a *ShellAdapter) CaptureFinalState(ws Workspace) string {
	entries, err := os.ReadDir(ws.Dir)
	if err != nil {
		return "(workspace unreadable)"
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return fmt.Sprintf("workspace files: %v", names)
}

func (a *ShellAdapter) SystemPromptFragment() string {
	return "You are operating a bash shell through run_bash, scoped to the session workspace directory."
}

func (a *ShellAdapter) QualityKeywords() *regexp.Regexp { return shellQualityKeywords }
func (a *ShellAdapter) DocsManifest() []DomainDoc       { return a.Docs }
