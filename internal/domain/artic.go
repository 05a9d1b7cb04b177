package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

// ArticAdapter probes a configurable REST endpoint, generalized from the
// teacher's fixed Bocha web-search client (internal/tools/websearch.go) into
// a reusable "hit a JSON API and report back" domain.
type ArticAdapter struct {
	ErrorMode   types.ErrorModeFlag
	Docs        []DomainDoc
	Endpoint    string
	APIKeyEnv   string
	MaxResults  int
	HTTPTimeout time.Duration
}

var articQualityKeywords = regexp.MustCompile(`(?i)\b(endpoint|status|header|json|query param)\b`)

const defaultArticTimeout = 15 * time.Second
const defaultArticMaxResults = 5

func (a *ArticAdapter) Name() string             { return "artic" }
func (a *ArticAdapter) ExecutorToolName() string { return "run_artic" }

func (a *ArticAdapter) ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec {
	executor := types.ToolSpec{
		Name:        a.ExecutorToolName(),
		Description: "Send one query as a JSON POST to the configured REST endpoint and return a formatted summary.",
		Type:        "object",
		Properties:  map[string]types.PropertySpec{"query": {Type: "string"}},
		Required:    []string{"query"},
	}
	return standardToolDefs(a.ExecutorToolName(), executor, fixtureRefs, opaque)
}

func (a *ArticAdapter) BuildAliasMap(opaque bool) map[string]string {
	return standardAliasMap(a.ExecutorToolName(), opaque)
}

func (a *ArticAdapter) PrepareWorkspace(taskDir, workDir string) (Workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("domain/artic: mkdir workdir: %w", err)
	}
	return Workspace{Dir: workDir}, nil
}

func (a *ArticAdapter) Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult {
	query, _ := input["query"].(string)

	apiKey := os.Getenv(a.APIKeyEnv)
	if a.APIKeyEnv != "" && apiKey == "" {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: %s not set", a.APIKeyEnv), "set the API key environment variable")}
	}

	timeout := a.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultArticTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	max := a.MaxResults
	if max <= 0 {
		max = defaultArticMaxResults
	}

	reqBody, err := json.Marshal(map[string]any{"query": query, "count": max})
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: marshal request: %v", err), "")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: create request: %v", err), "")}
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: http request: %v", err), "check network connectivity")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: read response: %v", err), "")}
	}
	if resp.StatusCode != http.StatusOK {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: HTTP %d: %s", resp.StatusCode, string(body)), "check status code and retry policy")}
	}

	var result articResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("artic: parse response: %v", err), "")}
	}
	return types.ToolResult{Output: formatArticResult(query, &result, max)}
}

type articResponse struct {
	Results []articResult `json:"results"`
}

type articResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func formatArticResult(query string, r *articResponse, max int) string {
	if len(r.Results) == 0 {
		return fmt.Sprintf("no results for: %q", query)
	}
	var b strings.Builder
	for i, res := range r.Results {
		if i >= max {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n%s\n", res.Title, res.Snippet, res.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *ArticAdapter) CaptureFinalState(ws Workspace) string {
	return fmt.Sprintf("endpoint=%s", a.Endpoint)
}

func (a *ArticAdapter) SystemPromptFragment() string {
	return fmt.Sprintf("You are operating a REST probe through run_artic against %s.", a.Endpoint)
}

func (a *ArticAdapter) QualityKeywords() *regexp.Regexp { return articQualityKeywords }
func (a *ArticAdapter) DocsManifest() []DomainDoc       { return a.Docs }
