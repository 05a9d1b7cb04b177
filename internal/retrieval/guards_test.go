package retrieval

import (
	"testing"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(id string, reliability, total float64, updatedAt string, conflicts ...string) types.RetrievalMatch {
	return types.RetrievalMatch{
		Lesson: types.LessonRecord{
			LessonID:          id,
			Reliability:       reliability,
			UpdatedAt:         updatedAt,
			ConflictLessonIDs: conflicts,
		},
		Score: types.MatchScore{Total: total},
	}
}

func TestSelect_ConflictHigherReliabilityWins(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	a := match("lsn_a", 0.9, 0.8, now, "lsn_b")
	b := match("lsn_b", 0.2, 0.9, now, "lsn_a")

	selected, losers := Select([]types.RetrievalMatch{b, a}, 5, DefaultGuards)
	require.Len(t, selected, 1)
	assert.Equal(t, "lsn_a", selected[0].Lesson.LessonID)
	assert.Contains(t, losers, "lsn_b")
}

func TestSelect_ConflictEqualReliabilityFresherWins(t *testing.T) {
	older := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	newer := time.Now().UTC().Format(time.RFC3339)
	a := match("lsn_a", 0.5, 0.8, older, "lsn_b")
	b := match("lsn_b", 0.5, 0.7, newer, "lsn_a")

	selected, _ := Select([]types.RetrievalMatch{a, b}, 5, DefaultGuards)
	require.Len(t, selected, 1)
	assert.Equal(t, "lsn_b", selected[0].Lesson.LessonID)
}

func TestSelectSeeded_SeedNeverDisplaced(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	seedWinner := match("lsn_seed", 0.1, 0.5, now, "lsn_challenger")
	challenger := match("lsn_challenger", 0.99, 0.99, now, "lsn_seed")

	selected, losers := SelectSeeded([]types.RetrievalMatch{seedWinner}, []types.RetrievalMatch{challenger}, 5, DefaultGuards)
	require.Len(t, selected, 1)
	assert.Equal(t, "lsn_seed", selected[0].Lesson.LessonID)
	assert.Contains(t, losers, "lsn_challenger")
}

func TestSelect_TagBucketQuota(t *testing.T) {
	var ranked []types.RetrievalMatch
	for i := 0; i < 5; i++ {
		m := types.RetrievalMatch{
			Lesson: types.LessonRecord{LessonID: string(rune('a' + i)), Tags: []string{"syntax_error"}},
			Score:  types.MatchScore{Total: 1.0 - float64(i)*0.01},
		}
		ranked = append(ranked, m)
	}
	selected, _ := Select(ranked, 5, DefaultGuards)
	assert.LessOrEqual(t, len(selected), 3)
}
