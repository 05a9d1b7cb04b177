package domain

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/cortexmemory/cortex/internal/types"
)

// GridtoolAdapter wraps gridEngine with the "TALLY ... -> alias=func(col)"
// surface from spec.md's worked examples.
type GridtoolAdapter struct {
	ErrorMode types.ErrorModeFlag
	Docs      []DomainDoc
	engine    gridEngine
}

func NewGridtoolAdapter() *GridtoolAdapter {
	return &GridtoolAdapter{engine: gridEngine{load: "LOAD", agg: "TALLY", filter: "FILTER", sort: "SORT", arrow: "->"}}
}

var gridtoolQualityKeywords = regexp.MustCompile(`(?i)\b(tally|group|aggregate|sum|avg|count)\b`)

func (a *GridtoolAdapter) Name() string             { return "gridtool" }
func (a *GridtoolAdapter) ExecutorToolName() string { return "run_gridtool" }

func (a *GridtoolAdapter) ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec {
	executor := types.ToolSpec{
		Name: a.ExecutorToolName(),
		Description: "Run one gridtool command against the loaded fixture. Verbs: " +
			"LOAD <file>, TALLY region -> total=sum(amount), FILTER col op value (op one of eq,neq,gt,lt,gte,lte), SORT col [asc|desc].",
		Type:       "object",
		Properties: map[string]types.PropertySpec{"command": {Type: "string"}},
		Required:   []string{"command"},
	}
	return standardToolDefs(a.ExecutorToolName(), executor, fixtureRefs, opaque)
}

func (a *GridtoolAdapter) BuildAliasMap(opaque bool) map[string]string {
	return standardAliasMap(a.ExecutorToolName(), opaque)
}

func (a *GridtoolAdapter) PrepareWorkspace(taskDir, workDir string) (Workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("domain/gridtool: mkdir workdir: %w", err)
	}
	dataPath, err := copyFixture(taskDir, workDir, "fixture.csv")
	if err != nil {
		return Workspace{}, fmt.Errorf("domain/gridtool: copy fixture: %w", err)
	}
	return Workspace{Dir: workDir, ExtraPath: map[string]string{"data": dataPath}}, nil
}

func (a *GridtoolAdapter) Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult {
	command, _ := input["command"].(string)
	out, err := a.engine.run(command, ws.ExtraPath["data"], ws.Dir)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), err.Error(), "check LOAD/TALLY/FILTER/SORT syntax")}
	}
	return types.ToolResult{Output: out}
}

func (a *GridtoolAdapter) CaptureFinalState(ws Workspace) string {
	data, err := os.ReadFile(ws.ExtraPath["data"])
	if err != nil {
		return "(no data loaded)"
	}
	return string(data)
}

func (a *GridtoolAdapter) SystemPromptFragment() string {
	return "You are operating gridtool through run_gridtool. Four verbs: " +
		"'LOAD file.csv' to switch the active table, " +
		"'TALLY group_col -> alias=func(agg_col)' where func is one of sum, avg, count, " +
		"'FILTER col op value' where op is one of eq, neq, gt, lt, gte, lte, " +
		"'SORT col [asc|desc]'."
}

func (a *GridtoolAdapter) QualityKeywords() *regexp.Regexp { return gridtoolQualityKeywords }
func (a *GridtoolAdapter) DocsManifest() []DomainDoc       { return a.Docs }
