package lessonstore

import (
	"sort"
	"strings"

	"github.com/cortexmemory/cortex/internal/types"
)

// opposingPair is one fixed pair of tokens whose presence in two otherwise
// similar rule texts marks them as contradictory advice rather than
// unrelated lessons — e.g. one rule says "requires quoted path" and another
// says "does not require quoted path" for the same trigger surface.
type opposingPair struct{ a, b string }

var opposingPairs = []opposingPair{
	{"must not", "must"},
	{"does not require", "requires"},
	{"do not use", "use"},
	{"lowercase", "uppercase"},
	{"unquoted", "quoted"},
}

// isOpposing reports whether exactly one of the pair's two tokens appears in
// each text (in either assignment), signaling contradictory advice on what
// otherwise reads as the same topic.
func isOpposing(normA, normB string) bool {
	for _, p := range opposingPairs {
		aHasA, aHasB := strings.Contains(normA, p.a), strings.Contains(normA, p.b)
		bHasA, bHasB := strings.Contains(normB, p.a), strings.Contains(normB, p.b)
		if aHasA && !aHasB && bHasB && !bHasA {
			return true
		}
		if aHasB && !aHasA && bHasA && !bHasB {
			return true
		}
	}
	return false
}

// sameTopic reports whether two lessons share a trigger fingerprint, the
// scope spec.md §4.2 gives conflict-linking: a shared tag alone is not
// enough (tags are broad categories; two lessons can share one and still
// address unrelated triggers).
func sameTopic(a, b types.LessonRecord) bool {
	for _, f := range a.TriggerFingerprints {
		for _, g := range b.TriggerFingerprints {
			if f == g {
				return true
			}
		}
	}
	return false
}

// recomputeConflictLinks re-derives ConflictLessonIDs across the whole set.
// It is idempotent: calling it twice on the same input yields the same
// output, so upsert can run it after every mutation without ever growing the
// link lists unboundedly.
func recomputeConflictLinks(records []types.LessonRecord) ([]types.LessonRecord, int) {
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.LessonID] = i
	}
	links := make(map[string]map[string]bool, len(records))
	for _, r := range records {
		links[r.LessonID] = map[string]bool{}
	}

	count := 0
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]
			if a.LessonID == b.LessonID {
				continue
			}
			if !sameTopic(a, b) {
				continue
			}
			if isOpposing(a.NormalizedRule, b.NormalizedRule) {
				if !links[a.LessonID][b.LessonID] {
					links[a.LessonID][b.LessonID] = true
					links[b.LessonID][a.LessonID] = true
					count++
				}
			}
		}
	}

	out := make([]types.LessonRecord, len(records))
	copy(out, records)
	for i := range out {
		ids := make([]string, 0, len(links[out[i].LessonID]))
		for id := range links[out[i].LessonID] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[i].ConflictLessonIDs = ids
	}
	return out, count
}
