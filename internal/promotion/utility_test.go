package promotion

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestComputeUtility_TwoTermFormula(t *testing.T) {
	u := ComputeUtility(types.LessonOutcome{ErrorReduction: 0.5, StepEfficiencyGain: 0.2})
	assert.InDelta(t, 0.395, u, 1e-9)
}

func TestComputeUtility_ThreeTermFormulaWithRefereeGain(t *testing.T) {
	gain := 0.4
	u := ComputeUtility(types.LessonOutcome{ErrorReduction: 0.5, StepEfficiencyGain: 0.2, RefereeScoreGain: &gain})
	assert.InDelta(t, 0.39, u, 1e-9)
}

func TestSmoothReliability_BlendsTowardMappedUtility(t *testing.T) {
	r := smoothReliability(0.5, 1.0) // u_mapped = 1.0
	assert.InDelta(t, 0.7*0.5+0.3*1.0, r, 1e-9)
}

func TestMeanOfLast_WindowsToAvailableHistory(t *testing.T) {
	assert.InDelta(t, 0.2, meanOfLast([]float64{0.1, 0.3}, 10), 1e-9)
}
