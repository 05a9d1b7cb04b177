package domain

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cortexmemory/cortex/internal/types"
)

// SQLiteAdapter executes arbitrary SQL against a per-run sqlite file via the
// pure-Go modernc.org/sqlite driver, so the repo never needs cgo.
type SQLiteAdapter struct {
	ErrorMode types.ErrorModeFlag
	Docs      []DomainDoc
}

var sqliteQualityKeywords = regexp.MustCompile(`(?i)\b(select|insert|update|delete|create table|group by|join|index|constraint|transaction)\b`)

func (a *SQLiteAdapter) Name() string             { return "sqlite" }
func (a *SQLiteAdapter) ExecutorToolName() string { return "run_sqlite" }

func (a *SQLiteAdapter) ToolDefs(fixtureRefs []string, opaque bool) []types.ToolSpec {
	executor := types.ToolSpec{
		Name:        a.ExecutorToolName(),
		Description: "Execute one SQL statement against the task's sqlite database and return the resulting rows.",
		Type:        "object",
		Properties:  map[string]types.PropertySpec{"sql": {Type: "string"}},
		Required:    []string{"sql"},
	}
	return standardToolDefs(a.ExecutorToolName(), executor, fixtureRefs, opaque)
}

func (a *SQLiteAdapter) BuildAliasMap(opaque bool) map[string]string {
	return standardAliasMap(a.ExecutorToolName(), opaque)
}

func (a *SQLiteAdapter) PrepareWorkspace(taskDir, workDir string) (Workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("domain/sqlite: mkdir workdir: %w", err)
	}
	dbPath := filepath.Join(workDir, "task.db")
	if seed := filepath.Join(taskDir, "seed.db"); fileExists(seed) {
		data, err := os.ReadFile(seed)
		if err != nil {
			return Workspace{}, fmt.Errorf("domain/sqlite: read seed: %w", err)
		}
		if err := os.WriteFile(dbPath, data, 0o644); err != nil {
			return Workspace{}, fmt.Errorf("domain/sqlite: write seed copy: %w", err)
		}
	}
	return Workspace{Dir: workDir, DBPath: dbPath}, nil
}

func (a *SQLiteAdapter) Execute(ctx context.Context, toolName string, input map[string]any, ws Workspace) types.ToolResult {
	stmt, _ := input["sql"].(string)
	db, err := sql.Open("sqlite", ws.DBPath)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), fmt.Sprintf("failed to open database: %v", err), "check DBPath")}
	}
	defer db.Close()

	if isQuery(stmt) {
		rows, err := db.QueryContext(ctx, stmt)
		if err != nil {
			return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), err.Error(), "verify table and column names")}
		}
		defer rows.Close()
		out, err := renderRows(rows)
		if err != nil {
			return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), err.Error(), "")}
		}
		return types.ToolResult{Output: out}
	}

	res, err := db.ExecContext(ctx, stmt)
	if err != nil {
		return types.ToolResult{Error: RewriteError(a.ErrorMode, a.ExecutorToolName(), err.Error(), "check SQL syntax and constraints")}
	}
	affected, _ := res.RowsAffected()
	return types.ToolResult{Output: fmt.Sprintf("ok, rows_affected=%d", affected)}
}

func (a *SQLiteAdapter) CaptureFinalState(ws Workspace) string {
	db, err := sql.Open("sqlite", ws.DBPath)
	if err != nil {
		return fmt.Sprintf("(unreadable: %v)", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		return fmt.Sprintf("(schema query failed: %v)", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		fmt.Fprintf(&b, "table %s:\n", name)
		countRows, err := db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 20", name))
		if err != nil {
			continue
		}
		out, err := renderRows(countRows)
		countRows.Close()
		if err == nil {
			b.WriteString(out)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a *SQLiteAdapter) SystemPromptFragment() string {
	return "You are operating a sqlite database through run_sqlite. Issue one statement per call. " +
		"Use CREATE TABLE / INSERT / SELECT as needed; quote string literals with single quotes."
}

func (a *SQLiteAdapter) QualityKeywords() *regexp.Regexp { return sqliteQualityKeywords }
func (a *SQLiteAdapter) DocsManifest() []DomainDoc       { return a.Docs }

func isQuery(stmt string) bool {
	trimmed := strings.TrimSpace(strings.ToUpper(stmt))
	return strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "PRAGMA") || strings.HasPrefix(trimmed, "EXPLAIN")
}

func renderRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))
	b.WriteString("\n")
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		parts := make([]string, len(cols))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString(strings.Join(parts, ","))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), rows.Err()
}

// RunQuery executes a read-only query against the sqlite file at dbPath and
// returns the result rows stringified, for the deterministic evaluator's
// required_queries comparison.
func RunQuery(dbPath, query string) ([][]string, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = fmt.Sprintf("%v", v)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
