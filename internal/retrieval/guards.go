package retrieval

import (
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

// Guards bound one selection pass over already ranked (score descending)
// candidates.
type Guards struct {
	MaxPerSourceSession int
	MaxPerTagBucket     int
}

var DefaultGuards = Guards{
	MaxPerSourceSession: 2,
	MaxPerTagBucket:     3,
}

// Select walks ranked (highest score first) applying quota and
// conflict-winner guards, stopping once maxResults lessons are selected (or
// the ranked list is exhausted). It returns the selected matches in
// selection order and the ids of lessons dropped specifically due to a
// conflict loss, for auditing.
func Select(ranked []types.RetrievalMatch, maxResults int, g Guards) ([]types.RetrievalMatch, []string) {
	return SelectSeeded(nil, ranked, maxResults, g)
}

// SelectSeeded continues a selection pass from a seed (e.g. the strict
// lane's winners). Seed entries are never displaced by later candidates —
// the transfer lane may only fill remaining slots, never unseat a strict
// winner — but still occupy session/tag-bucket quota and still block a
// conflicting candidate outright.
func SelectSeeded(seed []types.RetrievalMatch, ranked []types.RetrievalMatch, maxResults int, g Guards) ([]types.RetrievalMatch, []string) {
	selected := make([]types.RetrievalMatch, 0, maxResults)
	selectedByID := map[string]int{}
	protected := map[string]bool{}
	sessionCounts := map[int]int{}
	tagBucketCounts := map[string]int{}
	var losers []string

	for _, m := range seed {
		selectedByID[m.Lesson.LessonID] = len(selected)
		protected[m.Lesson.LessonID] = true
		selected = append(selected, m)
		bumpSessionCounts(m.Lesson.SourceSessionIDs, sessionCounts)
		tagBucketCounts[tagBucket(m.Lesson.Tags)]++
	}

	for _, cand := range ranked {
		if len(selected) >= maxResults {
			break
		}

		if wouldExceedSessionQuota(cand.Lesson.SourceSessionIDs, sessionCounts, g.MaxPerSourceSession) {
			continue
		}
		bucket := tagBucket(cand.Lesson.Tags)
		if tagBucketCounts[bucket]+1 > g.MaxPerTagBucket {
			continue
		}

		conflictIdx, conflictsWith := findSelectedConflict(cand.Lesson, selected, selectedByID)
		if conflictsWith {
			existing := selected[conflictIdx]
			if !protected[existing.Lesson.LessonID] && challengerWins(cand, existing) {
				losers = append(losers, existing.Lesson.LessonID)
				selected[conflictIdx] = cand
				delete(selectedByID, existing.Lesson.LessonID)
				selectedByID[cand.Lesson.LessonID] = conflictIdx
				bumpSessionCounts(cand.Lesson.SourceSessionIDs, sessionCounts)
				tagBucketCounts[bucket]++
			} else {
				losers = append(losers, cand.Lesson.LessonID)
			}
			continue
		}

		selectedByID[cand.Lesson.LessonID] = len(selected)
		selected = append(selected, cand)
		bumpSessionCounts(cand.Lesson.SourceSessionIDs, sessionCounts)
		tagBucketCounts[bucket]++
	}
	return selected, losers
}

func wouldExceedSessionQuota(sessionIDs []int, counts map[int]int, max int) bool {
	for _, id := range sessionIDs {
		if counts[id]+1 > max {
			return true
		}
	}
	return false
}

func bumpSessionCounts(sessionIDs []int, counts map[int]int) {
	for _, id := range sessionIDs {
		counts[id]++
	}
}

func tagBucket(tags []string) string {
	if len(tags) == 0 {
		return "uncategorized"
	}
	return tags[0]
}

func findSelectedConflict(candidate types.LessonRecord, selected []types.RetrievalMatch, selectedByID map[string]int) (int, bool) {
	for _, otherID := range candidate.ConflictLessonIDs {
		if idx, ok := selectedByID[otherID]; ok {
			return idx, true
		}
	}
	for idx, m := range selected {
		for _, otherID := range m.Lesson.ConflictLessonIDs {
			if otherID == candidate.LessonID {
				return idx, true
			}
		}
	}
	return 0, false
}

// challengerWins decides whether cand (the later-ranked, conflicting
// lesson) displaces existing: higher reliability; else equal reliability
// but fresher updated_at; else equal on both but a strictly higher score.
func challengerWins(cand, existing types.RetrievalMatch) bool {
	if cand.Lesson.Reliability != existing.Lesson.Reliability {
		return cand.Lesson.Reliability > existing.Lesson.Reliability
	}
	candTS, candErr := time.Parse(time.RFC3339, cand.Lesson.UpdatedAt)
	existingTS, existingErr := time.Parse(time.RFC3339, existing.Lesson.UpdatedAt)
	if candErr == nil && existingErr == nil && !candTS.Equal(existingTS) {
		return candTS.After(existingTS)
	}
	return cand.Score.Total > existing.Score.Total
}
