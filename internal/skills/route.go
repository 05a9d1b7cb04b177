package skills

import (
	"sort"
	"strings"

	"github.com/cortexmemory/cortex/internal/types"
)

const confidenceBonusWeight = 0.1

// RouteManifestEntries scores each entry by token-overlap of task against
// its title+description+skill_ref, adds a small confidence bonus, and
// returns the top-k, breaking ties by skill_ref for a stable order.
func RouteManifestEntries(task string, entries []types.SkillManifestEntry, topK int) []types.SkillManifestEntry {
	taskTokens := tokenize(task)
	if len(taskTokens) == 0 || len(entries) == 0 {
		return nil
	}

	type scored struct {
		entry types.SkillManifestEntry
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		haystack := tokenize(e.Title + " " + e.Description + " " + e.SkillRef)
		overlap := overlapCount(taskTokens, haystack)
		if overlap == 0 {
			continue
		}
		score := float64(overlap) + e.Confidence*confidenceBonusWeight
		ranked = append(ranked, scored{entry: e, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].entry.SkillRef < ranked[j].entry.SkillRef
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]types.SkillManifestEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) >= 3 {
			out[w] = true
		}
	}
	return out
}

func overlapCount(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// Gate tracks whether the model has satisfied the skill-gate by reading at
// least one of the routed skills before calling the executor tool.
type Gate struct {
	required  map[string]bool
	satisfied bool
	active    bool
}

// NewGate builds a gate over routed. If routed is empty, the gate is
// inactive and never blocks.
func NewGate(routed []types.SkillManifestEntry) *Gate {
	required := make(map[string]bool, len(routed))
	for _, r := range routed {
		required[r.SkillRef] = true
	}
	return &Gate{required: required, active: len(required) > 0}
}

// Active reports whether this gate can block executor calls at all.
func (g *Gate) Active() bool { return g.active }

// Satisfied reports whether the gate's read requirement has been met.
func (g *Gate) Satisfied() bool { return !g.active || g.satisfied }

// MarkRead records that skillRef was fetched through the skill-reader tool.
// Any routed skill satisfies the gate — the model is not required to read
// every one, only to have consulted the manifest before acting.
func (g *Gate) MarkRead(skillRef string) {
	if g.required[skillRef] {
		g.satisfied = true
	}
}
