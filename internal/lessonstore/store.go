package lessonstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cortexmemory/cortex/internal/errorcapture"
	"github.com/cortexmemory/cortex/internal/types"
)

// Store is a JSONL-backed LessonRecord table. Every mutating call loads the
// whole file, mutates in memory, and rewrites it atomically — the file is
// small enough (one memory subsystem per project) that this is simpler and
// safer than an in-place patch, grounded on the teacher's memory.Store
// write-replace discipline.
type Store struct {
	path string
	mu   sync.Mutex
	log  *slog.Logger
}

// New returns a Store backed by path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path, log: slog.Default().With("component", "lessonstore")}
}

// legacyRow is the shape of a pre-V2 memory entry: free-text rule plus a
// single scalar quality score, with no trigger fingerprints or status.
type legacyRow struct {
	Rule      string  `json:"rule"`
	EvalScore float64 `json:"eval_score"`
	TaskID    string  `json:"task_id"`
	Task      string  `json:"task"`
	Domain    string  `json:"domain"`
	SessionID int     `json:"session_id"`
}

// Load reads every well-formed LessonRecord line from the store file.
// Malformed lines are skipped and logged rather than aborting the whole
// load, since a single corrupt line must not take down retrieval for every
// other lesson in the file.
func (s *Store) Load() ([]types.LessonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]types.LessonRecord, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lessonstore: open %s: %w", s.path, err)
	}
	defer f.Close()

	var out []types.LessonRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}
		var rec types.LessonRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.LessonID == "" {
			s.log.Warn("skipping malformed lesson row", "path", s.path, "line", lineNo)
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lessonstore: scan %s: %w", s.path, err)
	}
	return out, nil
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r') {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
		end--
	}
	return b[start:end]
}

// UpsertResult summarizes one Upsert call for metrics/logging.
type UpsertResult struct {
	Inserted      int
	Merged        int
	ConflictLinks int
	Total         int
}

// Upsert merges records into the store by lesson_id, recomputes conflict
// links across the whole resulting set, and rewrites the file atomically.
func (s *Store) Upsert(records []types.LessonRecord) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLocked()
	if err != nil {
		return UpsertResult{}, err
	}

	byID := make(map[string]int, len(existing))
	all := append([]types.LessonRecord(nil), existing...)
	for i, r := range all {
		byID[r.LessonID] = i
	}

	var inserted, merged int
	for _, rec := range records {
		if idx, ok := byID[rec.LessonID]; ok {
			all[idx] = mergeRecords(all[idx], rec)
			merged++
		} else {
			byID[rec.LessonID] = len(all)
			all = append(all, rec)
			inserted++
		}
	}

	all, links := recomputeConflictLinks(all)
	sort.Slice(all, func(i, j int) bool { return all[i].LessonID < all[j].LessonID })

	if err := s.writeAllLocked(all); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Inserted: inserted, Merged: merged, ConflictLinks: links, Total: len(all)}, nil
}

// Archive marks the given lesson ids as archived with reason, a terminal
// status nothing later promotes back out of.
func (s *Store) Archive(ids []string, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return 0, err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	count := 0
	for i := range all {
		if want[all[i].LessonID] {
			all[i].Status = types.StatusArchived
			r := reason
			all[i].ArchivedReason = &r
			all[i].UpdatedAt = types.Now().UTC().Format(time.RFC3339)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.writeAllLocked(all); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) writeAllLocked(all []types.LessonRecord) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("lessonstore: mkdir %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".lessons_v2-*.tmp")
	if err != nil {
		return fmt.Errorf("lessonstore: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	w := bufio.NewWriter(tmp)
	for _, rec := range all {
		line, err := errorcapture.MarshalStable(rec)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("lessonstore: marshal %s: %w", rec.LessonID, err)
		}
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lessonstore: rename into place: %w", err)
	}
	return nil
}

// MigrateLegacy reads legacy rows from legacyPath and upserts their V2
// equivalents into v2Path. Re-running it is a no-op once every legacy row's
// computed lesson_id already exists in the V2 store.
func MigrateLegacy(legacyPath, v2Path string) (UpsertResult, error) {
	f, err := os.Open(legacyPath)
	if os.IsNotExist(err) {
		return UpsertResult{}, nil
	}
	if err != nil {
		return UpsertResult{}, fmt.Errorf("lessonstore: open legacy %s: %w", legacyPath, err)
	}
	defer f.Close()

	var recs []types.LessonRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytesTrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row legacyRow
		if err := json.Unmarshal(line, &row); err != nil || row.Rule == "" {
			continue
		}
		recs = append(recs, migrateLegacyRow(row.Rule, row.EvalScore, row.TaskID, row.Task, row.Domain, row.SessionID))
	}
	if err := scanner.Err(); err != nil {
		return UpsertResult{}, err
	}

	return New(v2Path).Upsert(recs)
}
