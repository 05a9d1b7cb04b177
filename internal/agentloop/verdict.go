package agentloop

import "github.com/cortexmemory/cortex/internal/types"

// ResolveVerdict combines the deterministic evaluator's verdict with the
// judge's into one three-way outcome. When the task contract didn't apply
// to this session, the deterministic check has nothing to say, so the
// judge decides alone.
func ResolveVerdict(det types.EvalResult, judge types.JudgeResult) types.Verdict {
	if !det.Applicable {
		if judge.Passed {
			return types.VerdictPass
		}
		return types.VerdictFail
	}
	if det.Passed && judge.Passed {
		return types.VerdictPass
	}
	if !det.Passed && !judge.Passed {
		return types.VerdictFail
	}
	return types.VerdictUncertain
}
