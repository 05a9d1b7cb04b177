// Package domain hides every executor tool's semantics behind a uniform
// Adapter interface, grounded on the teacher's internal/tools package (one
// tool-implementation file per concern) and internal/roles/executor.go's
// dispatch-by-name loop, generalized into an explicit registry instead of
// the teacher's switch statement.
package domain

import (
	"context"
	"regexp"

	"github.com/cortexmemory/cortex/internal/types"
)

// Workspace is the materialized per-run working directory an adapter reads
// and writes against.
type Workspace struct {
	Dir       string
	DBPath    string
	ExtraPath map[string]string
}

// DomainDoc is one locally-held reference document the knowledge provider
// may chunk and score under learning_mode=strict.
type DomainDoc struct {
	Name string
	Path string
}

// Adapter is the explicit interface every domain implements; see §4.5.
type Adapter interface {
	Name() string
	ExecutorToolName() string
	ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec
	BuildAliasMap(opaque bool) map[string]string
	PrepareWorkspace(taskDir, workDir string) (Workspace, error)
	Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult
	CaptureFinalState(ws Workspace) string
	SystemPromptFragment() string
	QualityKeywords() *regexp.Regexp
	DocsManifest() []DomainDoc
}

// ErrorMode controls how an adapter rewrites its own failure prose; the
// rewriting is essential to the memory experiment (cryptic adapters give the
// fingerprint/tag pipeline less surface to work with than semi-helpful ones).
type ErrorMode = types.ErrorModeFlag

// SkillReaderToolName and FixtureReaderToolName are the canonical (post
// alias-translation) tool names every adapter exposes alongside its
// executor tool, so the agent loop can dispatch on them without knowing
// which domain is active.
const (
	SkillReaderToolName   = "read_skill"
	FixtureReaderToolName = "read_fixture"

	skillReaderToolName   = SkillReaderToolName
	fixtureReaderToolName = FixtureReaderToolName

	opaqueExecutorAlias = "dispatch"
	opaqueSkillAlias    = "probe"
	opaqueFixtureAlias  = "catalog"
)

// standardToolDefs builds the executor tool plus the two standard meta-tools
// shared by every adapter, applying the opaque-mode alias substitution when
// requested.
func standardToolDefs(executorName string, executorSpec types.ToolSpec, fixtureRefs []string, opaque bool) []types.ToolSpec {
	skillTool := types.ToolSpec{
		Name:        skillReaderToolName,
		Description: "Read the full body of a routed skill document by its skill_ref.",
		Type:        "object",
		Properties:  map[string]types.PropertySpec{"skill_ref": {Type: "string"}},
		Required:    []string{"skill_ref"},
	}
	fixtureTool := types.ToolSpec{
		Name:        fixtureReaderToolName,
		Description: "Read the contents of a named input fixture: " + joinRefs(fixtureRefs),
		Type:        "object",
		Properties:  map[string]types.PropertySpec{"fixture_ref": {Type: "string"}},
		Required:    []string{"fixture_ref"},
	}

	defs := []types.ToolSpec{executorSpec, skillTool, fixtureTool}
	if opaque {
		defs[0].Name = opaqueExecutorAlias
		defs[0].Description = "Perform the primary domain action. Consult routed skill docs to learn its exact syntax."
		defs[1].Name = opaqueSkillAlias
		defs[2].Name = opaqueFixtureAlias
	}
	_ = executorName
	return defs
}

func standardAliasMap(executorName string, opaque bool) map[string]string {
	if !opaque {
		return map[string]string{
			executorName:          executorName,
			skillReaderToolName:   skillReaderToolName,
			fixtureReaderToolName: fixtureReaderToolName,
		}
	}
	return map[string]string{
		opaqueExecutorAlias: executorName,
		opaqueSkillAlias:    skillReaderToolName,
		opaqueFixtureAlias:  fixtureReaderToolName,
	}
}

func joinRefs(refs []string) string {
	if len(refs) == 0 {
		return "(none)"
	}
	out := refs[0]
	for _, r := range refs[1:] {
		out += ", " + r
	}
	return out
}
