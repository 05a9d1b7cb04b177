package evaluator

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importAggregateContract() types.TaskContract {
	return types.TaskContract{
		ID:                   "import_aggregate",
		TaskMatch:            types.TaskMatch{All: []string{"sqlite", "import", "aggregate"}},
		RequiredSQLPatterns:  []string{`(?i)CREATE TABLE`, `(?i)GROUP BY`},
		ForbiddenSQLPatterns: []string{`(?i)DROP TABLE`},
		RequiredQueries: []types.RequiredQuery{
			{
				Name:  "grouped_totals",
				Query: "SELECT category, SUM(amount) AS total FROM sales GROUP BY category ORDER BY category;",
				ExpectedRows: [][]string{
					{"bass", "9"},
					{"drums", "13"},
					{"lead", "8"},
				},
			},
		},
		MaxErrorCount: 0,
	}
}

func seedSalesDB(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE sales(category TEXT, amount INTEGER)`)
	require.NoError(t, err)
	rows := [][2]any{
		{"drums", 5}, {"bass", 4}, {"lead", 3}, {"drums", 8}, {"bass", 5}, {"lead", 5},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO sales(category, amount) VALUES(?, ?)`, r[0], r[1])
		require.NoError(t, err)
	}
}

func TestEvaluate_SQLiteImportAggregateHappyPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "task.db")
	seedSalesDB(t, dbPath)

	taskText := "sqlite import aggregate grouped totals"
	events := []types.Event{
		{Step: 1, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "CREATE TABLE sales(category TEXT, amount INTEGER);"}},
		{Step: 2, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "INSERT INTO sales VALUES ('drums',5),('bass',4),('lead',3),('drums',8),('bass',5),('lead',5);"}},
		{Step: 3, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "SELECT category, SUM(amount) AS total FROM sales GROUP BY category ORDER BY category;"}},
	}

	result := Evaluate(importAggregateContract(), taskText, events, "run_sqlite", dbPath)

	assert.True(t, result.Applicable)
	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Score)
	assert.Empty(t, result.Reasons)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestEvaluate_SQLiteForbiddenAndMissing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "task.db")
	seedSalesDB(t, dbPath)

	taskText := "sqlite import aggregate grouped totals"
	errText := "error"
	events := []types.Event{
		{Step: 1, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "SELECT * FROM sales;"}},
		{Step: 2, Tool: "run_sqlite", OK: false, Error: &errText, ToolInput: map[string]any{"sql": "DROP TABLE sales;"}},
		{Step: 3, Tool: "run_sqlite", OK: false, Error: &errText, ToolInput: map[string]any{"sql": "SELECT * FROM missing_table;"}},
	}

	result := Evaluate(importAggregateContract(), taskText, events, "run_sqlite", dbPath)

	assert.True(t, result.Applicable)
	assert.False(t, result.Passed)
	assert.Subset(t, result.Reasons, []string{"missing_required_pattern"})
	assert.Contains(t, result.Reasons, "too_many_errors")
	assert.Less(t, result.Score, 1.0)
}

func TestEvaluate_ForbiddenPatternMatched(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "task.db")
	seedSalesDB(t, dbPath)

	events := []types.Event{
		{Step: 1, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "CREATE TABLE sales(x INT); DROP TABLE sales;"}},
	}
	result := Evaluate(importAggregateContract(), "sqlite import aggregate", events, "run_sqlite", dbPath)
	assert.Contains(t, result.Reasons, "matched_forbidden_pattern")
}

func TestEvaluate_RequiredQueryMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "task.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sales(category TEXT, amount INTEGER)`)
	require.NoError(t, err)
	db.Close()

	events := []types.Event{
		{Step: 1, Tool: "run_sqlite", OK: true, ToolInput: map[string]any{"sql": "CREATE TABLE sales(category TEXT, amount INTEGER); SELECT 1 GROUP BY 1;"}},
	}
	result := Evaluate(importAggregateContract(), "sqlite import aggregate", events, "run_sqlite", dbPath)
	assert.Contains(t, result.Reasons, "required_query_mismatch")
	assert.False(t, result.Passed)
}

func TestEvaluate_TaskNotApplicable(t *testing.T) {
	result := Evaluate(importAggregateContract(), "unrelated shell task", nil, "run_sqlite", "")
	assert.False(t, result.Applicable)
	assert.False(t, result.Passed)
}

func TestLoadContract_MissingFileReturnsFalseNoError(t *testing.T) {
	c, ok, err := LoadContract(t.TempDir(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.TaskContract{}, c)
}
