package promotion

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCandidate(id string) types.LessonRecord {
	return types.LessonRecord{LessonID: id, Status: types.StatusCandidate, Reliability: 0.5}
}

func TestApplyOutcomes_ThreePositiveOutcomesPromoteCandidate(t *testing.T) {
	rec := baseCandidate("lsn_1")
	outcomes := []types.LessonOutcome{
		{LessonID: "lsn_1", ErrorReduction: 0.4, StepEfficiencyGain: 0.2},
		{LessonID: "lsn_1", ErrorReduction: 0.5, StepEfficiencyGain: 0.3},
		{LessonID: "lsn_1", ErrorReduction: 0.6, StepEfficiencyGain: 0.3},
	}
	for _, o := range outcomes {
		rec = applyOne(rec, o, DefaultThresholds)
	}
	assert.Equal(t, types.StatusPromoted, rec.Status)
}

func TestApplyOutcomes_ContradictionLossSuppressesPromoted(t *testing.T) {
	rec := baseCandidate("lsn_2")
	rec.Status = types.StatusPromoted
	rec = applyOne(rec, types.LessonOutcome{LessonID: "lsn_2", ContradictionLost: true}, DefaultThresholds)
	assert.Equal(t, types.StatusSuppressed, rec.Status)
}

func TestApplyOutcomes_ThreeNonPositiveOutcomesSuppress(t *testing.T) {
	rec := baseCandidate("lsn_3")
	rec.Status = types.StatusPromoted
	outcomes := []types.LessonOutcome{
		{LessonID: "lsn_3", ErrorReduction: -0.2, StepEfficiencyGain: -0.1},
		{LessonID: "lsn_3", ErrorReduction: -0.1, StepEfficiencyGain: -0.2},
		{LessonID: "lsn_3", ErrorReduction: 0, StepEfficiencyGain: 0},
	}
	for _, o := range outcomes {
		rec = applyOne(rec, o, DefaultThresholds)
	}
	assert.Equal(t, types.StatusSuppressed, rec.Status)
}

func TestApplyOutcomes_SkipsUnknownLessonID(t *testing.T) {
	records := []types.LessonRecord{baseCandidate("lsn_known")}
	out := ApplyOutcomes(records, []types.LessonOutcome{{LessonID: "lsn_missing", ErrorReduction: 0.5}}, DefaultThresholds)
	require.Len(t, out, 1)
	assert.Equal(t, "lsn_known", out[0].LessonID)
	assert.Equal(t, 0, out[0].RetrievalCount)
}

func TestApplyOutcomes_ArchivedStatusIsTerminal(t *testing.T) {
	rec := baseCandidate("lsn_4")
	rec.Status = types.StatusArchived
	rec = applyOne(rec, types.LessonOutcome{LessonID: "lsn_4", ErrorReduction: 0.9, StepEfficiencyGain: 0.9}, DefaultThresholds)
	assert.Equal(t, types.StatusArchived, rec.Status)
}
