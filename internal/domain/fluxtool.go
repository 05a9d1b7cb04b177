package domain

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/cortexmemory/cortex/internal/types"
)

// FluxtoolAdapter is gridtool's cross-domain sibling used to exercise the
// retrieval engine's transfer lane: same engine, a remapped keyword table
// and arrow token (INGEST/ROLLUP/SCREEN/ORDER, "=>"), so failures are
// syntactically similar to gridtool's without being identical.
type FluxtoolAdapter struct {
	ErrorMode types.ErrorModeFlag
	Docs      []DomainDoc
	engine    gridEngine
}

func NewFluxtoolAdapter() *FluxtoolAdapter {
	return &FluxtoolAdapter{engine: gridEngine{load: "INGEST", agg: "ROLLUP", filter: "SCREEN", sort: "ORDER", arrow: "=>"}}
}

var fluxtoolQualityKeywords = regexp.MustCompile(`(?i)\b(rollup|ingest|screen|order|group|aggregate|sum|avg|count)\b`)

func (a *FluxtoolAdapter) Name() string             { return "fluxtool" }
func (a *FluxtoolAdapter) ExecutorToolName() string { return "run_fluxtool" }

func (a *FluxtoolAdapter) ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec {
	executor := types.ToolSpec{
		Name: a.ExecutorToolName(),
		Description: "Run one fluxtool command against the loaded fixture. Verbs: " +
			"INGEST <file>, ROLLUP region => total=sum(amount), SCREEN col op value (op one of eq,neq,gt,lt,gte,lte), ORDER col [asc|desc].",
		Type:       "object",
		Properties: map[string]types.PropertySpec{"command": {Type: "string"}},
		Required:   []string{"command"},
	}
	return standardToolDefs(a.ExecutorToolName(), executor, fixtureRefs, opaque)
}

func (a *FluxtoolAdapter) BuildAliasMap(opaque bool) map[string]string {
	return standardAliasMap(a.ExecutorToolName(), opaque)
}

func (a *FluxtoolAdapter) PrepareWorkspace(taskDir, workDir string) (Workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("domain/fluxtool: mkdir workdir: %w", err)
	}
	dataPath, err := copyFixture(taskDir, workDir, "fixture.csv")
	if err != nil {
		return Workspace{}, fmt.Errorf("domain/fluxtool: copy fixture: %w", err)
	}
	return Workspace{Dir: workDir, ExtraPath: map[string]string{"data": dataPath}}, nil
}

func (a *FluxtoolAdapter) Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult {
	command, _ := input["command"].(string)
	out, err := a.engine.run(command, ws.ExtraPath["data"], ws.Dir)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), err.Error(), "check INGEST/ROLLUP/SCREEN/ORDER syntax")}
	}
	return types.ToolResult{Output: out}
}

func (a *FluxtoolAdapter) CaptureFinalState(ws Workspace) string {
	data, err := os.ReadFile(ws.ExtraPath["data"])
	if err != nil {
		return "(no data loaded)"
	}
	return string(data)
}

func (a *FluxtoolAdapter) SystemPromptFragment() string {
	return "You are operating fluxtool through run_fluxtool. Four verbs: " +
		"'INGEST file.csv' to switch the active table, " +
		"'ROLLUP group_col => alias=func(agg_col)' where func is one of sum, avg, count, " +
		"'SCREEN col op value' where op is one of eq, neq, gt, lt, gte, lte, " +
		"'ORDER col [asc|desc]'."
}

func (a *FluxtoolAdapter) QualityKeywords() *regexp.Regexp { return fluxtoolQualityKeywords }
func (a *FluxtoolAdapter) DocsManifest() []DomainDoc       { return a.Docs }
