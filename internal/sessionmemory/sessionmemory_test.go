package sessionmemory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSession_ResetRemovesExistingFiles(t *testing.T) {
	root := t.TempDir()
	paths, err := EnsureSession(8, root, false)
	require.NoError(t, err)
	require.NoError(t, WriteEvent(paths.EventsPath, types.Event{Step: 1, Tool: "run_bash", OK: true}))

	paths2, err := EnsureSession(8, root, true)
	require.NoError(t, err)
	events, err := ReadEvents(paths2.EventsPath)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWriteEvent_DefaultsTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, WriteEvent(path, types.Event{Step: 1}))
	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Greater(t, events[0].TS, 0.0)
}

func TestReadEvents_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, WriteEvent(path, types.Event{Step: 1}))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestWriteMetrics_OverwritesAndSortsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, WriteMetrics(path, types.Metrics{TaskID: "t1", Steps: 1}))
	require.NoError(t, WriteMetrics(path, types.Metrics{TaskID: "t1", Steps: 2}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"steps": 2`)
	assert.Less(t, strings.Index(string(data), `"completion_tokens"`), strings.Index(string(data), `"task_id"`))
}
