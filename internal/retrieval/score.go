// Package retrieval ranks lessons against a query (pre-run or on-error),
// applies status/quota/conflict guards in a single deterministic pass, and
// merges a strict same-domain lane with an optional down-weighted
// cross-domain transfer lane. It never mutates a LessonRecord — callers
// that want retrieval_count bumped do so through the promotion controller.
package retrieval

import (
	"strings"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

// Weights are the scoring coefficients; exposed for tuning rather than
// hardcoded, per the Open Question on text_similarity in spec.md §9.
type Weights struct {
	Fingerprint float64
	TagOverlap  float64
	Text        float64
	Reliability float64
	Recency     float64
}

var DefaultWeights = Weights{
	Fingerprint: 0.40,
	TagOverlap:  0.25,
	Text:        0.20,
	Reliability: 0.10,
	Recency:     0.05,
}

// Query is the scoring input common to both entry points.
type Query struct {
	Fingerprints []string
	Tags         []string
	Text         string
}

const recencyHalfLifeDays = 14.0

// Score computes a MatchScore for one lesson against query, using now as the
// reference instant for recency decay.
func Score(lesson types.LessonRecord, q Query, w Weights, now time.Time) types.MatchScore {
	fp := fingerprintMatch(lesson.TriggerFingerprints, q.Fingerprints)
	tag := jaccard(lesson.Tags, q.Tags)
	text := jaccard(tokenize(lesson.NormalizedRule), tokenize(strings.ToLower(q.Text)))
	rel := lesson.Reliability
	rec := recency(lesson.UpdatedAt, now)

	total := w.Fingerprint*fp + w.TagOverlap*tag + w.Text*text + w.Reliability*rel + w.Recency*rec
	return types.MatchScore{
		FingerprintMatch: fp,
		TagOverlap:       tag,
		TextSimilarity:   text,
		Reliability:      rel,
		Recency:          rec,
		Total:            total,
	}
}

// fingerprintMatch: 1.0 on an exact match against any lesson fingerprint,
// 0.7 if the first 10 characters prefix-match any of them, else 0.
func fingerprintMatch(lessonFPs, queryFPs []string) float64 {
	best := 0.0
	for _, lfp := range lessonFPs {
		for _, qfp := range queryFPs {
			if lfp == qfp {
				return 1.0
			}
			if len(lfp) >= 10 && len(qfp) >= 10 && lfp[:10] == qfp[:10] {
				best = 0.7
			}
		}
	}
	return best
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := map[string]bool{}
	for _, s := range a {
		setA[s] = true
	}
	setB := map[string]bool{}
	for _, s := range b {
		setB[s] = true
	}
	inter := 0
	for s := range setA {
		if setB[s] {
			inter++
		}
	}
	union := len(setA)
	for s := range setB {
		if !setA[s] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

// recency maps updatedAt's age in days through a 14-day half-life curve.
// A record with an unparseable timestamp is treated as maximally stale.
func recency(updatedAt string, now time.Time) float64 {
	ts, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return 0
	}
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1 / (1 + ageDays/recencyHalfLifeDays)
}
