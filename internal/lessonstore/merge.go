package lessonstore

import (
	"sort"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

// mergeRecords combines an existing record with an incoming one that shares
// its lesson_id. The result keeps the longer, presumably more specific rule
// text, unions every set-valued field, and takes the larger of the two
// records' values for each counter and for reliability — merging a lesson never loses information recorded
// against either of its source occurrences.
func mergeRecords(existing, incoming types.LessonRecord) types.LessonRecord {
	out := existing

	if len(incoming.RuleText) > len(existing.RuleText) {
		out.RuleText = incoming.RuleText
		out.NormalizedRule = incoming.NormalizedRule
	}

	out.TriggerFingerprints = unionStrings(existing.TriggerFingerprints, incoming.TriggerFingerprints)
	out.Tags = unionStrings(existing.Tags, incoming.Tags)
	out.SourceSessionIDs = unionInts(existing.SourceSessionIDs, incoming.SourceSessionIDs)
	out.ConflictLessonIDs = unionStrings(existing.ConflictLessonIDs, incoming.ConflictLessonIDs)

	out.RetrievalCount = maxInt(existing.RetrievalCount, incoming.RetrievalCount)
	out.HelpfulCount = maxInt(existing.HelpfulCount, incoming.HelpfulCount)
	out.HarmfulCount = maxInt(existing.HarmfulCount, incoming.HarmfulCount)
	out.MajorRegressions = maxInt(existing.MajorRegressions, incoming.MajorRegressions)
	out.ContradictionLosses = maxInt(existing.ContradictionLosses, incoming.ContradictionLosses)
	out.Reliability = maxFloat(existing.Reliability, incoming.Reliability)

	if len(incoming.UtilityHistory) > len(existing.UtilityHistory) {
		out.UtilityHistory = incoming.UtilityHistory
	}

	out.Status = mergeStatus(existing.Status, incoming.Status)
	if out.Status == types.StatusArchived {
		if incoming.ArchivedReason != nil {
			out.ArchivedReason = incoming.ArchivedReason
		} else if existing.ArchivedReason != nil {
			out.ArchivedReason = existing.ArchivedReason
		}
	}

	out.UpdatedAt = types.Now().UTC().Format(time.RFC3339)
	return out
}

// mergeStatus: archived absorbs everything; otherwise a promoted record
// stays promoted even when merged with a plain candidate.
func mergeStatus(a, b types.LessonStatus) types.LessonStatus {
	if a == types.StatusArchived || b == types.StatusArchived {
		return types.StatusArchived
	}
	if a == types.StatusPromoted || b == types.StatusPromoted {
		return types.StatusPromoted
	}
	if a == types.StatusSuppressed || b == types.StatusSuppressed {
		return types.StatusSuppressed
	}
	return types.StatusCandidate
}

func unionStrings(a, b []string) []string {
	set := map[string]bool{}
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func unionInts(a, b []int) []int {
	set := map[int]bool{}
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		set[n] = true
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
