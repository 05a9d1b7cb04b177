package critic

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestQualityFilter_RejectsGenericAdvice(t *testing.T) {
	raw := []RawLesson{{Category: "mistake", Lesson: "Always be careful with SQL."}}
	kept := QualityFilter(raw, domain.NewGridtoolAdapter(), DefaultMinQuality)
	assert.Empty(t, kept)
}

func TestQualityFilter_RejectsRememberTo(t *testing.T) {
	raw := []RawLesson{{Category: "insight", Lesson: "Remember to quote file paths in TALLY commands."}}
	kept := QualityFilter(raw, domain.NewGridtoolAdapter(), DefaultMinQuality)
	assert.Empty(t, kept)
}

func TestQualityFilter_KeepsSpecificLessonWithEvidence(t *testing.T) {
	raw := []RawLesson{{
		Category:      "mistake",
		Lesson:        "TALLY syntax error at step 3: must use -> not => between group column and alias.",
		EvidenceSteps: []int{3},
	}}
	kept := QualityFilter(raw, domain.NewGridtoolAdapter(), DefaultMinQuality)
	assert.Len(t, kept, 1)
	assert.Greater(t, kept[0].Score, DefaultMinQuality)
}

func TestQualityFilter_DropsBelowMinQuality(t *testing.T) {
	raw := []RawLesson{{Category: "insight", Lesson: "Consider alternative approaches next time."}}
	kept := QualityFilter(raw, domain.NewGridtoolAdapter(), DefaultMinQuality)
	assert.Empty(t, kept)
}

func TestScoreLesson_KeywordHitsCapAt045(t *testing.T) {
	r := RawLesson{Lesson: "tally group aggregate sum avg count tally group aggregate"}
	score := scoreLesson(r, domain.NewGridtoolAdapter())
	assert.InDelta(t, keywordHitCap, score, 1e-9)
}

func TestScoreLesson_NilAdapterStillScoresOtherSignals(t *testing.T) {
	r := RawLesson{Lesson: "syntax error at step 2", EvidenceSteps: []int{2}}
	score := scoreLesson(r, nil)
	assert.Greater(t, score, 0.0)
}
