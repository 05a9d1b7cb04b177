package domain

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// gridEngine is a small line-at-a-time interpreter for a fictional
// tabular DSL shared by gridtool and fluxtool, which differ only in their
// command keywords and arrow token (gridtool's LOAD/TALLY/FILTER/SORT and
// "->" vs fluxtool's INGEST/ROLLUP/SCREEN/ORDER and "=>"). There is no
// ecosystem library for a made-up DSL, so this is a deliberate hand-rolled
// exception to "use a library" — the one justified stdlib-only component in
// the domain stack. Grounded on the pipeline shape of
// original_source/tracks/cli_sqlite/domains/gridtool.py, scaled down to the
// four verbs the adapters actually expose.
type gridEngine struct {
	load, agg, filter, sort, arrow string
}

func (e gridEngine) usage() string {
	return fmt.Sprintf("%s <file> | %s group_col %s alias=func(agg_col) | %s col op value | %s col [asc|desc]",
		e.load, e.agg, e.arrow, e.filter, e.sort)
}

// run executes one command line against the CSV table at dataPath, which
// is read before and rewritten after every command so a sequence of tool
// calls behaves like the original's row-threaded pipeline one command at a
// time rather than one multi-line script.
func (e gridEngine) run(command, dataPath, workDir string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command. Usage: %s", e.usage())
	}
	switch fields[0] {
	case e.load:
		return e.runLoad(fields, dataPath, workDir)
	case e.agg:
		return e.runAgg(command, dataPath)
	case e.filter:
		return e.runFilter(fields, dataPath)
	case e.sort:
		return e.runSort(fields, dataPath)
	default:
		return "", fmt.Errorf("unknown command '%s'. Usage: %s. Exit code 127", fields[0], e.usage())
	}
}

// runLoad swaps the active table for a sibling fixture copied into the
// workspace at PrepareWorkspace time, e.g. "LOAD orders.csv".
func (e gridEngine) runLoad(fields []string, dataPath, workDir string) (string, error) {
	if len(fields) != 2 {
		return "", fmt.Errorf("%s: syntax: %s <file>", e.load, e.load)
	}
	src := filepath.Join(workDir, fields[1])
	if !fileExists(src) {
		return "", fmt.Errorf("%s: no such fixture '%s'", e.load, fields[1])
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("%s: %v", e.load, err)
	}
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return "", fmt.Errorf("%s: %v", e.load, err)
	}
	header, rows, err := readCSV(dataPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read data: %v", e.load, err)
	}
	return renderCSV(header, rows), nil
}

var gridCommandRe = func(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(keyword) + `\s+(\S+)\s*(\S+)\s*(\S+)=(\w+)\((\S+)\)\s*$`)
}

// runAgg groups rows by a key column, replacing the table with one row per
// group carrying the requested sum/avg/count.
func (e gridEngine) runAgg(command, dataPath string) (string, error) {
	fields := strings.Fields(command)
	if fields[0] != e.agg {
		return "", fmt.Errorf("%s: unknown command '%s'. Usage: %s group_col %s alias=func(agg_col). Exit code 127", e.agg, fields[0], e.agg, e.arrow)
	}

	re := gridCommandRe(e.agg)
	m := re.FindStringSubmatch(command)
	if m == nil || m[2] != e.arrow {
		return "", fmt.Errorf("ERROR at line 1: %s syntax: %s group_col %s alias=func(agg_col)", e.agg, e.agg, e.arrow)
	}
	groupCol, alias, fn, aggCol := m[1], m[3], m[4], m[5]

	header, rows, err := readCSV(dataPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read data: %v", e.agg, err)
	}
	gi, ai := indexOf(header, groupCol), indexOf(header, aggCol)
	if gi < 0 {
		return "", fmt.Errorf("%s: unknown column '%s'", e.agg, groupCol)
	}
	if ai < 0 {
		return "", fmt.Errorf("%s: unknown column '%s'", e.agg, aggCol)
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, row := range rows {
		if gi >= len(row) || ai >= len(row) {
			continue
		}
		key := row[gi]
		v, _ := strconv.ParseFloat(strings.TrimSpace(row[ai]), 64)
		sums[key] += v
		counts[key]++
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	newHeader := []string{groupCol, alias}
	newRows := make([][]string, 0, len(keys))
	for _, k := range keys {
		var v float64
		switch strings.ToLower(fn) {
		case "sum":
			v = sums[k]
		case "avg":
			v = sums[k] / float64(counts[k])
		case "count":
			v = float64(counts[k])
		default:
			return "", fmt.Errorf("%s: unknown aggregate function '%s'", e.agg, fn)
		}
		newRows = append(newRows, []string{k, fmt.Sprintf("%v", v)})
	}

	if err := writeCSV(dataPath, newHeader, newRows); err != nil {
		return "", fmt.Errorf("%s: failed to write data: %v", e.agg, err)
	}
	return renderCSV(newHeader, newRows), nil
}

// filterWordOps are the only comparison operators FILTER/SCREEN accepts.
// Symbol operators (=, >, <...) are rejected with a pointer to the word
// form, matching the original DSL's refusal to be SQL.
var filterWordOps = map[string]bool{"eq": true, "neq": true, "gt": true, "lt": true, "gte": true, "lte": true}

var filterSymbolOps = map[string]string{
	"=": "eq", "==": "eq", "!=": "neq", "<>": "neq",
	">": "gt", "<": "lt", ">=": "gte", "<=": "lte",
}

// runFilter keeps only rows whose column satisfies "col op value".
func (e gridEngine) runFilter(fields []string, dataPath string) (string, error) {
	if len(fields) != 4 {
		return "", fmt.Errorf("%s: syntax: %s col op value (op one of eq,neq,gt,lt,gte,lte)", e.filter, e.filter)
	}
	col, op, val := fields[1], fields[2], fields[3]
	if hint, isSymbol := filterSymbolOps[op]; isSymbol {
		return "", fmt.Errorf("%s: operator '%s' not supported, use word operator '%s' instead", e.filter, op, hint)
	}
	if !filterWordOps[op] {
		return "", fmt.Errorf("%s: unknown operator '%s', use one of eq,neq,gt,lt,gte,lte", e.filter, op)
	}

	header, rows, err := readCSV(dataPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read data: %v", e.filter, err)
	}
	ci := indexOf(header, col)
	if ci < 0 {
		return "", fmt.Errorf("%s: unknown column '%s'", e.filter, col)
	}

	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if ci >= len(row) {
			continue
		}
		if compareCell(row[ci], op, val) {
			kept = append(kept, row)
		}
	}

	if err := writeCSV(dataPath, header, kept); err != nil {
		return "", fmt.Errorf("%s: failed to write data: %v", e.filter, err)
	}
	return renderCSV(header, kept), nil
}

func compareCell(cell, op, val string) bool {
	cellN, cellErr := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	valN, valErr := strconv.ParseFloat(strings.TrimSpace(val), 64)
	numeric := cellErr == nil && valErr == nil

	switch op {
	case "eq":
		if numeric {
			return cellN == valN
		}
		return cell == val
	case "neq":
		if numeric {
			return cellN != valN
		}
		return cell != val
	case "gt":
		if numeric {
			return cellN > valN
		}
		return cell > val
	case "lt":
		if numeric {
			return cellN < valN
		}
		return cell < val
	case "gte":
		if numeric {
			return cellN >= valN
		}
		return cell >= val
	case "lte":
		if numeric {
			return cellN <= valN
		}
		return cell <= val
	}
	return false
}

// runSort orders rows by a column, numerically if it parses, lexically
// otherwise; default direction is ascending.
func (e gridEngine) runSort(fields []string, dataPath string) (string, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return "", fmt.Errorf("%s: syntax: %s col [asc|desc]", e.sort, e.sort)
	}
	col := fields[1]
	dir := "asc"
	if len(fields) == 3 {
		dir = strings.ToLower(fields[2])
		if dir != "asc" && dir != "desc" {
			return "", fmt.Errorf("%s: direction must be asc or desc, got '%s'", e.sort, fields[2])
		}
	}

	header, rows, err := readCSV(dataPath)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read data: %v", e.sort, err)
	}
	ci := indexOf(header, col)
	if ci < 0 {
		return "", fmt.Errorf("%s: unknown column '%s'", e.sort, col)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := compareCellValues(cellAt(rows[i], ci), cellAt(rows[j], ci))
		if dir == "desc" {
			return c > 0
		}
		return c < 0
	})

	if err := writeCSV(dataPath, header, rows); err != nil {
		return "", fmt.Errorf("%s: failed to write data: %v", e.sort, err)
	}
	return renderCSV(header, rows), nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// compareCellValues returns -1/0/1 comparing two cells numerically when both
// parse as numbers, lexically otherwise. Equal values must report 0 (not an
// arbitrary true/false) so SliceStable leaves tied rows in their original
// relative order regardless of sort direction.
func compareCellValues(a, b string) int {
	an, aErr := strconv.ParseFloat(strings.TrimSpace(a), 64)
	bn, bErr := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var header []string
	var rows [][]string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if header == nil {
			header = fields
			continue
		}
		rows = append(rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func renderCSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, ","))
	}
	return b.String()
}

// copyFixture copies the task's named fixture into the workspace as the
// active table (data.csv) and also preserves it under its own name so LOAD
// can later switch back to it or to another fixture copied alongside it.
func copyFixture(taskDir, workDir, name string) (string, error) {
	dst := filepath.Join(workDir, "data.csv")
	if err := copyAllFixtures(taskDir, workDir); err != nil {
		return "", err
	}
	src := filepath.Join(taskDir, name)
	if !fileExists(src) {
		return dst, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	return dst, os.WriteFile(dst, data, 0o644)
}

// copyAllFixtures copies every *.csv file in taskDir into workDir unchanged,
// so LOAD has siblings to switch between beyond the primary fixture.
func copyAllFixtures(taskDir, workDir string) error {
	matches, err := filepath.Glob(filepath.Join(taskDir, "*.csv"))
	if err != nil {
		return err
	}
	for _, src := range matches {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		dst := filepath.Join(workDir, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
