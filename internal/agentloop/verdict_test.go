package agentloop

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestResolveVerdict_BothPass(t *testing.T) {
	got := ResolveVerdict(types.EvalResult{Applicable: true, Passed: true}, types.JudgeResult{Passed: true})
	assert.Equal(t, types.VerdictPass, got)
}

func TestResolveVerdict_BothFail(t *testing.T) {
	got := ResolveVerdict(types.EvalResult{Applicable: true, Passed: false}, types.JudgeResult{Passed: false})
	assert.Equal(t, types.VerdictFail, got)
}

func TestResolveVerdict_DisagreementIsUncertain(t *testing.T) {
	assert.Equal(t, types.VerdictUncertain,
		ResolveVerdict(types.EvalResult{Applicable: true, Passed: true}, types.JudgeResult{Passed: false}))
	assert.Equal(t, types.VerdictUncertain,
		ResolveVerdict(types.EvalResult{Applicable: true, Passed: false}, types.JudgeResult{Passed: true}))
}

func TestResolveVerdict_NotApplicableFallsBackToJudge(t *testing.T) {
	assert.Equal(t, types.VerdictPass,
		ResolveVerdict(types.EvalResult{Applicable: false, Passed: false}, types.JudgeResult{Passed: true}))
	assert.Equal(t, types.VerdictFail,
		ResolveVerdict(types.EvalResult{Applicable: false, Passed: false}, types.JudgeResult{Passed: false}))
}
