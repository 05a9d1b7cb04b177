// Package promotion folds retrieval outcomes back into lesson records:
// utility computation, reliability smoothing, and the candidate/promoted/
// suppressed/archived status machine. It never touches the store directly —
// callers pass in the current records and get back updated ones to upsert.
package promotion

import "github.com/cortexmemory/cortex/internal/types"

// ComputeUtility implements the two weighted formulas from §4.4: the
// three-term form when a referee score gain is available, the two-term form
// otherwise.
func ComputeUtility(o types.LessonOutcome) float64 {
	if o.RefereeScoreGain != nil {
		return 0.50*o.ErrorReduction + 0.30*o.StepEfficiencyGain + 0.20*(*o.RefereeScoreGain)
	}
	return 0.65*o.ErrorReduction + 0.35*o.StepEfficiencyGain
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// smoothReliability maps utility u from [-1,1] into [0,1] and blends it into
// the running reliability with a 0.7/0.3 split so a single bad outcome
// cannot swing reliability to an extreme.
func smoothReliability(reliability, u float64) float64 {
	mapped := clamp((u+1)/2, 0, 1)
	return clamp(0.7*reliability+0.3*mapped, 0, 1)
}

const utilityHistoryCap = 30

func appendUtility(history []float64, u float64) []float64 {
	out := append(append([]float64(nil), history...), u)
	if len(out) > utilityHistoryCap {
		out = out[len(out)-utilityHistoryCap:]
	}
	return out
}

func meanOfLast(history []float64, n int) float64 {
	if len(history) == 0 {
		return 0
	}
	if n > len(history) {
		n = len(history)
	}
	tail := history[len(history)-n:]
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}
