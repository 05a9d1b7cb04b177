package critic

// SkillPatch is one proposed replace/append edit to a legacy skill file,
// queued under propose_skill_updates rather than applied immediately.
type SkillPatch struct {
	SkillRef string `json:"skill_ref"`
	Mode     string `json:"mode"` // "replace" | "append"
	Text     string `json:"text"`
}

// TrendGate is the persisted decision state for the legacy skill-patch
// queue: a monotonic run of task scores must improve by at least MinDelta
// per step across MinRuns consecutive runs before any queued patch is
// applied to disk. Mirrors the decision-table shape of
// internal/roles/ggs/ggs.go, replacing its loss-gradient directive table
// with a simple trend check over recent task scores.
type TrendGate struct {
	MinRuns  int
	MinDelta float64
}

// DefaultTrendGate matches the spec's default thresholds.
var DefaultTrendGate = TrendGate{MinRuns: 3, MinDelta: 0.0}

// ShouldPromote reports whether recentScores (oldest first) shows a
// monotonic improvement of at least MinDelta at every step, over at least
// MinRuns runs. Queued patches stay queued until this holds.
func (g TrendGate) ShouldPromote(recentScores []float64) bool {
	if len(recentScores) < g.MinRuns {
		return false
	}
	window := recentScores[len(recentScores)-g.MinRuns:]
	for i := 1; i < len(window); i++ {
		if window[i]-window[i-1] < g.MinDelta {
			return false
		}
	}
	return true
}

// AutoPromoteQueuedCandidates drains queue into the returned slice of
// applied patches when the trend gate holds, leaving queue untouched
// otherwise. memoryV2DemoMode, when true, always suppresses this legacy
// path regardless of trend, since the demo mode exercises only the V2
// lesson pipeline.
func AutoPromoteQueuedCandidates(queue []SkillPatch, recentScores []float64, gate TrendGate, memoryV2DemoMode bool) []SkillPatch {
	if memoryV2DemoMode {
		return nil
	}
	if !gate.ShouldPromote(recentScores) {
		return nil
	}
	return queue
}
