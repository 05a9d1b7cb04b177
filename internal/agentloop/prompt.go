package agentloop

import (
	"fmt"
	"strings"

	"github.com/cortexmemory/cortex/internal/types"
)

const maxPreRunLessons = 8

// ComposeSystemPrompt assembles one step's system prompt from its fixed
// parts, in the order spec §4.13 fixes: base instructions, the domain
// adapter's fragment, routed skill summaries, pre-run lesson hints, and
// (when active) the skill-gate notice. The base part is always kept;
// any other empty part is omitted rather than leaving a blank section.
func ComposeSystemPrompt(base, adapterFragment, routedSkillsBlock, preRunLessonsBlock, skillGateNotice string) string {
	parts := []string{base}
	for _, p := range []string{adapterFragment, routedSkillsBlock, preRunLessonsBlock, skillGateNotice} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FormatRoutedSkills renders routed skill manifest entries into a block the
// model can use to decide which to read_skill before acting.
func FormatRoutedSkills(entries []types.SkillManifestEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("--- ROUTED SKILLS ---\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.SkillRef, e.Description)
	}
	b.WriteString("--- END ROUTED SKILLS ---")
	return b.String()
}

// FormatPreRunLessons renders up to maxPreRunLessons matches from the
// pre-run retrieval pass, mirroring internal/roles/planner/planner.go's
// MUST-NOT / SHOULD-PREFER constraint-block wrapping but with one combined
// section since pre-run matches carry no episodic/procedural split here.
func FormatPreRunLessons(matches []types.RetrievalMatch) string {
	if len(matches) == 0 {
		return ""
	}
	n := len(matches)
	if n > maxPreRunLessons {
		n = maxPreRunLessons
	}
	var b strings.Builder
	b.WriteString("--- LESSONS FROM PRIOR SESSIONS ---\n")
	for _, m := range matches[:n] {
		fmt.Fprintf(&b, "- %s\n", m.Lesson.RuleText)
	}
	b.WriteString("--- END LESSONS ---")
	return b.String()
}

// SkillGateNotice returns the notice telling the model it must read at
// least one routed skill before calling the executor tool, or "" if the
// gate isn't active for this session.
func SkillGateNotice(active bool) string {
	if !active {
		return ""
	}
	return "You must read_skill at least one routed skill before using the executor tool."
}
