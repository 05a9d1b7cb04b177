package promotion

import (
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

const (
	meanUtilityWindow     = 10
	suppressMinRetrievals = 3
	promoteMinHistory     = 3
)

// Thresholds are the status-machine cutoffs; exposed for tuning rather than
// hardcoded per the promotion-threshold Open Question in spec.md §9.
type Thresholds struct {
	PromoteMeanUtility float64
}

var DefaultThresholds = Thresholds{PromoteMeanUtility: 0.20}

// ApplyOutcomes folds each outcome into its matching record (by lesson_id)
// and re-evaluates the status machine. Outcomes naming an id not present in
// records are skipped silently — the memory subsystem degrades gracefully
// on inconsistency rather than raising.
func ApplyOutcomes(records []types.LessonRecord, outcomes []types.LessonOutcome, th Thresholds) []types.LessonRecord {
	byID := make(map[string]int, len(records))
	out := append([]types.LessonRecord(nil), records...)
	for i, r := range out {
		byID[r.LessonID] = i
	}

	for _, o := range outcomes {
		idx, ok := byID[o.LessonID]
		if !ok {
			continue
		}
		out[idx] = applyOne(out[idx], o, th)
	}
	return out
}

func applyOne(rec types.LessonRecord, o types.LessonOutcome, th Thresholds) types.LessonRecord {
	u := ComputeUtility(o)

	rec.UtilityHistory = appendUtility(rec.UtilityHistory, u)
	if u > 0 {
		rec.HelpfulCount++
	} else {
		rec.HarmfulCount++
	}
	if o.MajorRegression {
		rec.MajorRegressions++
	}
	if o.ContradictionLost {
		rec.ContradictionLosses++
	}
	rec.RetrievalCount++
	rec.Reliability = smoothReliability(rec.Reliability, u)

	rec.Status = nextStatus(rec, th)
	rec.UpdatedAt = types.Now().UTC().Format(time.RFC3339)
	return rec
}

func nextStatus(rec types.LessonRecord, th Thresholds) types.LessonStatus {
	if rec.Status == types.StatusArchived {
		return types.StatusArchived
	}
	if rec.ContradictionLosses > 0 {
		return types.StatusSuppressed
	}
	if rec.RetrievalCount >= suppressMinRetrievals && meanOfLast(rec.UtilityHistory, meanUtilityWindow) <= 0 {
		return types.StatusSuppressed
	}
	if rec.Status == types.StatusCandidate &&
		len(rec.UtilityHistory) >= promoteMinHistory &&
		meanOfLast(rec.UtilityHistory, meanUtilityWindow) >= th.PromoteMeanUtility &&
		rec.MajorRegressions == 0 {
		return types.StatusPromoted
	}
	return rec.Status
}
