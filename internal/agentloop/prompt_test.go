package agentloop

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestComposeSystemPrompt_OmitsEmptyParts(t *testing.T) {
	got := ComposeSystemPrompt("base", "", "", "", "")
	assert.Equal(t, "base", got)
}

func TestComposeSystemPrompt_JoinsNonEmptyParts(t *testing.T) {
	got := ComposeSystemPrompt("base", "adapter", "skills", "lessons", "gate")
	assert.Equal(t, "base\n\nadapter\n\nskills\n\nlessons\n\ngate", got)
}

func TestFormatRoutedSkills_Empty(t *testing.T) {
	assert.Equal(t, "", FormatRoutedSkills(nil))
}

func TestFormatRoutedSkills_ListsEntries(t *testing.T) {
	out := FormatRoutedSkills([]types.SkillManifestEntry{{SkillRef: "sql/aggregate", Description: "group by totals"}})
	assert.Contains(t, out, "sql/aggregate: group by totals")
}

func TestFormatPreRunLessons_CapsAtMax(t *testing.T) {
	var matches []types.RetrievalMatch
	for i := 0; i < maxPreRunLessons+3; i++ {
		matches = append(matches, types.RetrievalMatch{Lesson: types.LessonRecord{RuleText: "lesson"}})
	}
	out := FormatPreRunLessons(matches)
	assert.Equal(t, maxPreRunLessons, countLines(out, "- lesson"))
}

func TestSkillGateNotice_InactiveIsEmpty(t *testing.T) {
	assert.Equal(t, "", SkillGateNotice(false))
}

func TestSkillGateNotice_ActiveHasText(t *testing.T) {
	assert.Contains(t, SkillGateNotice(true), "read_skill")
}

func countLines(s, substr string) int {
	count := 0
	for _, line := range splitLines(s) {
		if line == substr {
			count++
		}
	}
	return count
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
