// Package sessionmemory owns the on-disk layout of one session: events.jsonl,
// memory_events.jsonl, metrics.json, and the adapter workspace directory.
// Grounded on internal/tasklog/tasklog.go's nil-safe, registry-owned
// persistence discipline, generalized from per-task LLM/tool traces to the
// agent loop's Event/ErrorEvent/Metrics shapes.
package sessionmemory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cortexmemory/cortex/internal/errorcapture"
	"github.com/cortexmemory/cortex/internal/types"
)

// EnsureSession constructs the deterministic directory layout for a
// session. If reset is true (the default), any existing files under the
// session root are removed first, so reusing a session id never leaks
// artifacts from a prior run.
func EnsureSession(id int, sessionsRoot string, reset bool) (types.SessionPaths, error) {
	root := filepath.Join(sessionsRoot, strconv.Itoa(id))
	if reset {
		if err := os.RemoveAll(root); err != nil {
			return types.SessionPaths{}, fmt.Errorf("sessionmemory: reset %s: %w", root, err)
		}
	}
	workDir := filepath.Join(root, "workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.SessionPaths{}, fmt.Errorf("sessionmemory: mkdir %s: %w", workDir, err)
	}
	return types.SessionPaths{
		Root:             root,
		EventsPath:       filepath.Join(root, "events.jsonl"),
		MetricsPath:      filepath.Join(root, "metrics.json"),
		MemoryEventsPath: filepath.Join(root, "memory_events.jsonl"),
		WorkspaceDir:     workDir,
	}, nil
}

var fileMu sync.Mutex

// WriteEvent appends one JSON line to path, defaulting ts to the current
// wall-clock time in fractional seconds if unset.
func WriteEvent(path string, ev types.Event) error {
	if ev.TS == 0 {
		ev.TS = float64(types.Now().UnixNano()) / 1e9
	}
	return appendLine(path, ev)
}

// WriteErrorEvent appends one ASCII-stable JSON line to the session's
// memory_events.jsonl.
func WriteErrorEvent(path string, ev types.ErrorEvent) error {
	fileMu.Lock()
	defer fileMu.Unlock()
	line, err := errorcapture.MarshalStable(ev)
	if err != nil {
		return fmt.Errorf("sessionmemory: marshal error event: %w", err)
	}
	return rawAppend(path, line)
}

func appendLine(path string, v any) error {
	fileMu.Lock()
	defer fileMu.Unlock()
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sessionmemory: marshal: %w", err)
	}
	return rawAppend(path, line)
}

func rawAppend(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sessionmemory: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sessionmemory: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("sessionmemory: write %s: %w", path, err)
	}
	return nil
}

// WriteMetrics writes metrics as pretty-printed, sorted-key JSON, overwriting
// any existing file.
func WriteMetrics(path string, m types.Metrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sessionmemory: mkdir: %w", err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("sessionmemory: marshal metrics: %w", err)
	}
	var generic map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("sessionmemory: marshal metrics: %w", err)
	}
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return fmt.Errorf("sessionmemory: marshal metrics: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadEvents parses every well-formed Event line in path, skipping any
// malformed line wherever it appears.
func ReadEvents(path string) ([]types.Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionmemory: open %s: %w", path, err)
	}
	defer f.Close()

	var out []types.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev types.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, scanner.Err()
}

// ReadErrorEvents parses every well-formed ErrorEvent line in path.
func ReadErrorEvents(path string) ([]types.ErrorEvent, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionmemory: open %s: %w", path, err)
	}
	defer f.Close()

	var out []types.ErrorEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev types.ErrorEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, scanner.Err()
}
