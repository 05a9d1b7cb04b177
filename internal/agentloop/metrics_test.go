package agentloop

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/escalation"
	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics_CombinesScoreWhenApplicable(t *testing.T) {
	m := BuildMetrics(MetricsInput{
		TaskID:  "import_aggregate",
		Verdict: types.VerdictPass,
		Det:     types.EvalResult{Applicable: true, Passed: true, Score: 1.0},
		Judge:   types.JudgeResult{Passed: true, Score: 0.8},
	})
	assert.InDelta(t, 0.9, m.Score, 1e-9)
	assert.True(t, m.DeterministicPassed)
	assert.True(t, m.JudgePassed)
}

func TestBuildMetrics_FallsBackToJudgeScoreWhenNotApplicable(t *testing.T) {
	m := BuildMetrics(MetricsInput{
		Det:   types.EvalResult{Applicable: false},
		Judge: types.JudgeResult{Passed: true, Score: 0.7},
	})
	assert.InDelta(t, 0.7, m.Score, 1e-9)
}

func TestBuildMetrics_SumsTokens(t *testing.T) {
	m := BuildMetrics(MetricsInput{PromptTokens: 100, CompletionTokens: 40})
	assert.Equal(t, 140, m.TotalTokens)
}

func TestBuildMetrics_ConvertsEscalationSnapshot(t *testing.T) {
	m := BuildMetrics(MetricsInput{
		Escalation: escalation.SnapshotView{CriticTier: "sonnet", FailStreak: 2},
	})
	assert.Equal(t, "sonnet", m.Escalation.CriticTier)
	assert.Equal(t, 2, m.Escalation.FailStreak)
}
