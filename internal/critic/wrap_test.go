package critic

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLessonRecords_WrapsAsCandidateWithHalfReliability(t *testing.T) {
	kept := []Kept{{
		Raw:   RawLesson{Category: "mistake", Lesson: "TALLY requires -> between group column and alias.", EvidenceSteps: []int{3}},
		Score: 0.6,
	}}
	recs := ToLessonRecords(kept, "t1", "aggregate sales", "gridtool", 1, []string{"ef_abc123"})
	require.Len(t, recs, 1)
	assert.Equal(t, types.StatusCandidate, recs[0].Status)
	assert.Equal(t, 0.5, recs[0].Reliability)
	assert.Contains(t, recs[0].Tags, "mistake")
	assert.Equal(t, []string{"ef_abc123"}, recs[0].TriggerFingerprints)
	assert.Equal(t, []int{1}, recs[0].SourceSessionIDs)
}

func TestCategoryTag_UnknownFallsBackToUncategorized(t *testing.T) {
	assert.Equal(t, "uncategorized", categoryTag("bogus"))
	assert.Equal(t, "insight", categoryTag("insight"))
}
