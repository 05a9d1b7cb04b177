// Package lessonstore persists LessonRecords as an append-only-rewritten
// JSONL file: stable identity, legacy migration, dedup/merge on upsert, and
// conflict linking. It is the one piece of durable state in the memory
// subsystem — every mutation rewrites the whole file atomically via a
// temp-file-then-rename, grounded on the teacher's internal/roles/memory
// Store's own discipline of never writing a record in place.
package lessonstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

const lessonIDHexLen = 20

// LessonID computes the stable identity of a lesson from its normalized rule
// text and trigger fingerprints. Rewriting rule text changes the identity;
// re-ordering fingerprints does not.
func LessonID(normalizedRule string, triggerFingerprints []string) string {
	sorted := append([]string(nil), triggerFingerprints...)
	sort.Strings(sorted)
	composite := normalizedRule + "|" + strings.Join(sorted, ",")
	sum := sha256.Sum256([]byte(composite))
	full := hex.EncodeToString(sum[:])
	return "lsn_" + full[:lessonIDHexLen]
}

// NormalizeRuleText lower-cases and tokenizes rule text into the canonical
// form used for both dedup and identity.
func NormalizeRuleText(ruleText string) string {
	fields := strings.Fields(strings.ToLower(ruleText))
	return strings.Join(fields, " ")
}
