package skills

import (
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func sampleEntries() []types.SkillManifestEntry {
	return []types.SkillManifestEntry{
		{SkillRef: "aggregate-queries", Title: "aggregate queries", Description: "grouping and sum totals", Confidence: 0.5},
		{SkillRef: "sqlite-basics", Title: "sqlite basics", Description: "create table insert select", Confidence: 0.7},
		{SkillRef: "shell-basics", Title: "shell basics", Description: "bash commands and pipes", Confidence: 0.5},
	}
}

func TestRouteManifestEntries_ScoresByTokenOverlap(t *testing.T) {
	routed := RouteManifestEntries("aggregate sales with sum totals", sampleEntries(), 2)
	assert := assert.New(t)
	assert.NotEmpty(routed)
	assert.Equal("aggregate-queries", routed[0].SkillRef)
}

func TestRouteManifestEntries_RespectsTopK(t *testing.T) {
	routed := RouteManifestEntries("table select bash pipes", sampleEntries(), 1)
	assert.Len(t, routed, 1)
}

func TestRouteManifestEntries_EmptyTaskReturnsNil(t *testing.T) {
	routed := RouteManifestEntries("", sampleEntries(), 5)
	assert.Nil(t, routed)
}

func TestRouteManifestEntries_StableTiebreakBySkillRef(t *testing.T) {
	entries := []types.SkillManifestEntry{
		{SkillRef: "zzz-skill", Title: "widgets widgets", Description: "", Confidence: 0.5},
		{SkillRef: "aaa-skill", Title: "widgets widgets", Description: "", Confidence: 0.5},
	}
	routed := RouteManifestEntries("widgets", entries, 2)
	assert.Equal(t, "aaa-skill", routed[0].SkillRef)
}

func TestGate_InactiveWhenNoRoutedSkills(t *testing.T) {
	g := NewGate(nil)
	assert.False(t, g.Active())
	assert.True(t, g.Satisfied())
}

func TestGate_RequiresReadOfAnyRoutedSkillBeforeSatisfied(t *testing.T) {
	g := NewGate([]types.SkillManifestEntry{{SkillRef: "sqlite-basics"}, {SkillRef: "aggregate-queries"}})
	assert.True(t, g.Active())
	assert.False(t, g.Satisfied())
	g.MarkRead("unrelated-skill")
	assert.False(t, g.Satisfied())
	g.MarkRead("aggregate-queries")
	assert.True(t, g.Satisfied())
}
