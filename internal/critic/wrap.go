package critic

import (
	"github.com/cortexmemory/cortex/internal/errorcapture"
	"github.com/cortexmemory/cortex/internal/lessonstore"
	"github.com/cortexmemory/cortex/internal/types"
)

// ToLessonRecords wraps each kept lesson as a fresh candidate LessonRecord,
// fingerprinted against the session's error events so on-error retrieval in
// a later session can find it by trigger fingerprint as well as by tag.
func ToLessonRecords(kept []Kept, taskID, task, domainName string, sessionID int, errorFingerprints []string) []types.LessonRecord {
	out := make([]types.LessonRecord, 0, len(kept))
	for _, k := range kept {
		tags := append([]string{categoryTag(k.Raw.Category)}, errorcapture.TagsOf(k.Raw.Lesson, nil, "", nil)...)
		rec := lessonstore.FromCandidate(k.Raw.Lesson, errorFingerprints, tags, taskID, task, domainName, sessionID)
		out = append(out, rec)
	}
	return out
}

func categoryTag(category string) string {
	switch category {
	case "mistake", "insight", "shortcut", "domain_detail":
		return category
	default:
		return "uncategorized"
	}
}
