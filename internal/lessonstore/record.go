package lessonstore

import (
	"time"

	"github.com/cortexmemory/cortex/internal/errorcapture"
	"github.com/cortexmemory/cortex/internal/types"
)

const (
	memorySchema        = "cortex.lesson"
	memorySchemaVersion = 2
)

// FromCandidate builds a fresh candidate LessonRecord. If tags is nil, tags
// are derived from the rule text the way errorcapture derives them from
// failure text, since a rule like "always quote LOAD paths" carries the same
// kind of surface/constraint vocabulary as the errors it addresses.
func FromCandidate(ruleText string, triggerFingerprints []string, tags []string, taskID, task, domain string, sessionID int) types.LessonRecord {
	normalized := NormalizeRuleText(ruleText)
	if tags == nil {
		tags = errorcapture.TagsOf(ruleText, nil, "", nil)
	}
	now := types.Now().UTC().Format(time.RFC3339)
	return types.LessonRecord{
		MemorySchema:        memorySchema,
		MemorySchemaVersion: memorySchemaVersion,
		LessonID:            LessonID(normalized, triggerFingerprints),
		Status:              types.StatusCandidate,
		RuleText:            ruleText,
		NormalizedRule:       normalized,
		TriggerFingerprints: append([]string(nil), triggerFingerprints...),
		Tags:                tags,
		TaskID:              taskID,
		Task:                task,
		Domain:              domain,
		SourceSessionIDs:    []int{sessionID},
		Reliability:         0.5,
		RetrievalCount:      0,
		HelpfulCount:        0,
		HarmfulCount:        0,
		MajorRegressions:    0,
		ContradictionLosses: 0,
		UtilityHistory:      nil,
		ConflictLessonIDs:   nil,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// migrateLegacyRow converts a pre-V2 memory entry (identified only by its
// free-text rule and an eval_score in [0,1]) into a V2 LessonRecord. The
// reliability formula maps a mediocre legacy score to a cautious middle
// reliability rather than either extreme, since legacy entries carried no
// retrieval-outcome history to justify confidence at the edges.
func migrateLegacyRow(ruleText string, evalScore float64, taskID, task, domain string, sessionID int) types.LessonRecord {
	rec := FromCandidate(ruleText, nil, nil, taskID, task, domain, sessionID)
	rec.Reliability = clamp01f(0.35+0.55*evalScore, 0.05, 0.95)
	return rec
}

func clamp01f(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
