package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLessonOutcomes_EmptyInjectedReturnsNil(t *testing.T) {
	assert.Nil(t, BuildLessonOutcomes(nil, 5, 40, 0.8, false, false))
}

func TestBuildLessonOutcomes_ResolvedVsUnresolved(t *testing.T) {
	out := BuildLessonOutcomes([]InjectedLesson{
		{LessonID: "a", Resolved: true},
		{LessonID: "b", Resolved: false},
	}, 10, 40, 0.9, false, false)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].ErrorReduction)
	assert.Equal(t, -0.5, out[1].ErrorReduction)
	require.NotNil(t, out[0].RefereeScoreGain)
	assert.InDelta(t, 0.8, *out[0].RefereeScoreGain, 1e-9)
}

func TestBuildLessonOutcomes_DedupesRepeatedLessonID(t *testing.T) {
	out := BuildLessonOutcomes([]InjectedLesson{
		{LessonID: "a", Resolved: true},
		{LessonID: "a", Resolved: false},
	}, 10, 40, 0.5, false, false)
	require.Len(t, out, 1)
}

func TestStepEfficiencyGain_LinearFromZeroToBudget(t *testing.T) {
	assert.InDelta(t, 1.0, stepEfficiencyGain(0, 40), 1e-9)
	assert.InDelta(t, 0.0, stepEfficiencyGain(20, 40), 1e-9)
	assert.InDelta(t, -1.0, stepEfficiencyGain(40, 40), 1e-9)
	assert.InDelta(t, -1.0, stepEfficiencyGain(80, 40), 1e-9)
}

func TestBuildLessonOutcomes_PropagatesRegressionFlags(t *testing.T) {
	out := BuildLessonOutcomes([]InjectedLesson{{LessonID: "a"}}, 5, 40, 0.2, true, true)
	require.Len(t, out, 1)
	assert.True(t, out[0].MajorRegression)
	assert.True(t, out[0].ContradictionLost)
}
