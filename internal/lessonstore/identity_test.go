package lessonstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessonID_StablePrefixAndLength(t *testing.T) {
	id := LessonID("always quote load paths", []string{"ef_aaaa", "ef_bbbb"})
	assert.True(t, len(id) > 4 && id[:4] == "lsn_")
	assert.Len(t, id, 4+lessonIDHexLen)
}

func TestLessonID_IgnoresFingerprintOrder(t *testing.T) {
	a := LessonID("rule text", []string{"ef_1", "ef_2", "ef_3"})
	b := LessonID("rule text", []string{"ef_3", "ef_1", "ef_2"})
	assert.Equal(t, a, b)
}

func TestLessonID_DifferentRuleDifferentID(t *testing.T) {
	a := LessonID("rule one", []string{"ef_1"})
	b := LessonID("rule two", []string{"ef_1"})
	assert.NotEqual(t, a, b)
}

func TestNormalizeRuleText_LowercasesAndCollapsesSpace(t *testing.T) {
	assert.Equal(t, "always quote load paths", NormalizeRuleText("  Always   Quote LOAD Paths "))
}
