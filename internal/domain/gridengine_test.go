package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "data.csv")
	content := "category,amount\ndrums,5\nbass,4\nlead,3\ndrums,8\nbass,5\nlead,5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testEngine() gridEngine {
	return gridEngine{load: "LOAD", agg: "TALLY", filter: "FILTER", sort: "SORT", arrow: "->"}
}

func TestGridEngine_TallySumGroupsAndSorts(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	out, err := e.run("TALLY category -> total=sum(amount)", dataPath, dir)
	require.NoError(t, err)
	assert.Equal(t, "category,total\nbass,9\ndrums,13\nlead,8", out)
}

func TestGridEngine_WrongArrowProducesExactSyntaxError(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	_, err := e.run("TALLY category => total=sum(amount)", dataPath, dir)
	require.Error(t, err)
	assert.Equal(t, "ERROR at line 1: TALLY syntax: TALLY group_col -> alias=func(agg_col)", err.Error())
}

func TestGridEngine_UnknownCommandWordProducesExitCode(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	_, err := e.run("talley category -> total=sum(amount)", dataPath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command 'talley'")
	assert.Contains(t, err.Error(), "Exit code 127")
}

func TestGridEngine_UnknownColumnIsError(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	_, err := e.run("TALLY nope -> total=sum(amount)", dataPath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column 'nope'")
}

func TestGridEngine_FilterKeepsMatchingRows(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	out, err := e.run("FILTER category eq drums", dataPath, dir)
	require.NoError(t, err)
	assert.Equal(t, "category,amount\ndrums,5\ndrums,8", out)
}

func TestGridEngine_FilterRejectsSymbolOperator(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	_, err := e.run("FILTER amount > 4", dataPath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use word operator 'gt' instead")
}

func TestGridEngine_SortNumericAscending(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	out, err := e.run("SORT amount", dataPath, dir)
	require.NoError(t, err)
	assert.Equal(t, "category,amount\nlead,3\nbass,4\ndrums,5\nbass,5\nlead,5\ndrums,8", out)
}

func TestGridEngine_SortDescending(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	out, err := e.run("SORT amount desc", dataPath, dir)
	require.NoError(t, err)
	assert.Equal(t, "category,amount\ndrums,8\ndrums,5\nbass,5\nlead,5\nbass,4\nlead,3", out)
}

func TestGridEngine_LoadSwitchesActiveTable(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	other := "category,amount\nsynth,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte(other), 0o644))
	e := testEngine()
	out, err := e.run("LOAD other.csv", dataPath, dir)
	require.NoError(t, err)
	assert.Equal(t, "category,amount\nsynth,1", out)
}

func TestGridEngine_LoadUnknownFixtureIsError(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeFixtureCSV(t, dir)
	e := testEngine()
	_, err := e.run("LOAD nope.csv", dataPath, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such fixture 'nope.csv'")
}
