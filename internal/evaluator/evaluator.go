// Package evaluator is the deterministic, contract-driven scorer for one
// session: regex pattern checks against successful tool inputs, an error
// budget, and exact-match required queries against the adapter's final
// workspace state. Grounded on internal/roles/metaval/metaval.go's
// hard-gate-then-merge shape, replacing its free-form LLM rubric with fixed
// regex/row comparisons per task contract.
package evaluator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cortexmemory/cortex/internal/domain"
	"github.com/cortexmemory/cortex/internal/errtax"
	"github.com/cortexmemory/cortex/internal/types"
)

// LoadContract reads contracts_root/<task_id>/CONTRACT.json. A missing file
// is not an error — callers treat that the same as "no contract for this task".
func LoadContract(contractsRoot, taskID string) (types.TaskContract, bool, error) {
	path := filepath.Join(contractsRoot, taskID, "CONTRACT.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return types.TaskContract{}, false, nil
	}
	if err != nil {
		return types.TaskContract{}, false, fmt.Errorf("evaluator: read %s: %w", path, err)
	}
	var c types.TaskContract
	if err := json.Unmarshal(data, &c); err != nil {
		return types.TaskContract{}, false, fmt.Errorf("evaluator: parse %s: %w", path, err)
	}
	return c, true, nil
}

// Evaluate scores one session's events against contract. executorToolName
// identifies which events are executor calls (as opposed to the skill/
// fixture meta-tools) for the purposes of the success blob and error count.
func Evaluate(contract types.TaskContract, taskText string, events []types.Event, executorToolName, dbPath string) types.EvalResult {
	lowerTask := strings.ToLower(taskText)
	if !contract.TaskMatch.Applies(lowerTask) {
		return types.EvalResult{Applicable: false, Passed: false}
	}

	var blob strings.Builder
	errorCount := 0
	for _, ev := range events {
		if ev.Tool != executorToolName {
			continue
		}
		if !ev.OK {
			errorCount++
			continue
		}
		if b, err := json.Marshal(ev.ToolInput); err == nil {
			blob.Write(b)
			blob.WriteString("\n")
		}
	}
	text := blob.String()

	reasonSet := map[string]bool{}
	requiredMatched := 0
	for _, pat := range contract.RequiredSQLPatterns {
		ok, err := matches(pat, text)
		if err != nil {
			reasonSet[contractErrorReason(contract.ID, pat, err)] = true
			continue
		}
		if ok {
			requiredMatched++
		} else {
			reasonSet["missing_required_pattern"] = true
		}
	}
	forbiddenMatched := 0
	for _, pat := range contract.ForbiddenSQLPatterns {
		ok, err := matches(pat, text)
		if err != nil {
			reasonSet[contractErrorReason(contract.ID, pat, err)] = true
			continue
		}
		if ok {
			reasonSet["matched_forbidden_pattern"] = true
		} else {
			forbiddenMatched++
		}
	}

	queriesMatched := 0
	for _, rq := range contract.RequiredQueries {
		actual, err := domain.RunQuery(dbPath, rq.Query)
		if err != nil || !rowsEqual(actual, rq.ExpectedRows) {
			reasonSet["required_query_mismatch"] = true
			continue
		}
		queriesMatched++
	}

	errorCheckPassed := errorCount <= contract.MaxErrorCount
	if !errorCheckPassed {
		reasonSet["too_many_errors"] = true
	}

	checksTotal := len(contract.RequiredSQLPatterns) + len(contract.ForbiddenSQLPatterns) + len(contract.RequiredQueries) + 1
	checksPassed := requiredMatched + forbiddenMatched + queriesMatched
	if errorCheckPassed {
		checksPassed++
	}

	reasons := make([]string, 0, len(reasonSet))
	for r := range reasonSet {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	passed := len(reasons) == 0
	score := 1.0
	if !passed {
		score = 0
		if checksTotal > 0 {
			score = float64(checksPassed) / float64(checksTotal)
			if score < 0 {
				score = 0
			}
		}
	}

	return types.EvalResult{
		Applicable:   true,
		Passed:       passed,
		Score:        score,
		ChecksPassed: checksPassed,
		ChecksTotal:  checksTotal,
		ErrorCount:   errorCount,
		Reasons:      reasons,
	}
}

// matches reports whether pattern matches text. A regex compile failure is
// returned as an error rather than swallowed: the caller turns it into a
// contract_error reason naming the offending pattern, per the
// ContractMisconfiguration clause — a bad pattern fails the check, it
// doesn't crash the run.
func matches(pattern, text string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

// contractErrorReason logs a ContractMisconfiguration and returns the
// contract_error reason string surfaced in EvalResult.Reasons.
func contractErrorReason(taskID, pattern string, err error) string {
	ce := &errtax.ContractMisconfiguration{TaskID: taskID, Detail: fmt.Sprintf("regex %q: %v", pattern, err)}
	slog.Warn("evaluator: contract misconfiguration", "task_id", taskID, "pattern", pattern, "err", err)
	return fmt.Sprintf("contract_error: %s", ce.Error())
}

func rowsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
