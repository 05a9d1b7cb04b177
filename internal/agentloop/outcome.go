package agentloop

import "github.com/cortexmemory/cortex/internal/types"

// InjectedLesson is one on-error hint the loop injected into a tool_result
// during the session, together with whether a later call against the same
// tool succeeded after it was injected.
type InjectedLesson struct {
	LessonID string
	Tool     string
	Resolved bool
}

// BuildLessonOutcomes synthesizes one types.LessonOutcome per distinct
// lesson injected during the session, for promotion.ApplyOutcomes. The
// step-efficiency and referee-score terms are shared across every lesson
// injected in the same session since both are session-level measures;
// error reduction is per lesson, reflecting whether that specific hint's
// error recurred.
func BuildLessonOutcomes(injected []InjectedLesson, steps, maxSteps int, score float64, majorRegression, contradictionLost bool) []types.LessonOutcome {
	if len(injected) == 0 {
		return nil
	}
	stepGain := stepEfficiencyGain(steps, maxSteps)
	refGain := scoreGain(score)

	seen := map[string]bool{}
	out := make([]types.LessonOutcome, 0, len(injected))
	for _, il := range injected {
		if seen[il.LessonID] {
			continue
		}
		seen[il.LessonID] = true
		errReduction := -0.5
		if il.Resolved {
			errReduction = 1.0
		}
		out = append(out, types.LessonOutcome{
			LessonID:           il.LessonID,
			ErrorReduction:     errReduction,
			StepEfficiencyGain: stepGain,
			RefereeScoreGain:   &refGain,
			MajorRegression:    majorRegression,
			ContradictionLost:  contradictionLost,
		})
	}
	return out
}

// stepEfficiencyGain maps steps-used-against-budget linearly into [-1,1]:
// zero steps scores +1, half the budget 0, the full budget or more -1.
func stepEfficiencyGain(steps, maxSteps int) float64 {
	if maxSteps <= 0 {
		return 0
	}
	ratio := float64(steps) / float64(maxSteps)
	gain := 1 - 2*ratio
	return clampUnit(gain)
}

// scoreGain maps a [0,1] evaluator/judge score into the [-1,1] range
// promotion.ComputeUtility expects for its referee term.
func scoreGain(score float64) float64 {
	return clampUnit(2*score - 1)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
