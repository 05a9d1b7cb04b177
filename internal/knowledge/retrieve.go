// Package knowledge gives the critic local-document context under
// learning_mode=strict, without exposing it to the executor — paragraph
// chunking plus Jaccard-with-tag-bonus scoring, deterministic and
// I/O-free over whatever Doc slice the caller supplies.
package knowledge

import (
	"sort"
	"strings"
)

// Doc is one local knowledge-base document.
type Doc struct {
	Path string
	Text string
	Tags []string
}

// Chunk is one scored, paragraph-sized slice of a Doc.
type Chunk struct {
	Path  string
	Text  string
	Score float64
}

const (
	softCharCap = 800
	tagBonusPer = 0.05
	tagBonusCap = 0.2
)

// Retrieve splits every doc into paragraph-sized chunks, scores each
// against query by Jaccard token overlap plus a small bonus for each doc
// tag that appears in query, and returns the top maxChunks, highest score
// first; equal scores keep their original order (doc order, then paragraph
// order) for determinism.
func Retrieve(query string, docs []Doc, maxChunks int) []Chunk {
	queryTokens := tokenize(query)
	lowerQuery := strings.ToLower(query)

	type ranked struct {
		chunk Chunk
		order int
	}
	var all []ranked
	order := 0
	for _, doc := range docs {
		for _, para := range splitParagraphs(doc.Text) {
			score := jaccard(queryTokens, tokenize(para))
			score += tagBonus(doc.Tags, lowerQuery)
			all = append(all, ranked{chunk: Chunk{Path: doc.Path, Text: para, Score: score}, order: order})
			order++
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].chunk.Score != all[j].chunk.Score {
			return all[i].chunk.Score > all[j].chunk.Score
		}
		return all[i].order < all[j].order
	})

	if maxChunks > 0 && len(all) > maxChunks {
		all = all[:maxChunks]
	}
	out := make([]Chunk, len(all))
	for i, r := range all {
		out[i] = r.chunk
	}
	return out
}

// splitParagraphs splits text on blank lines, then further splits any
// paragraph longer than softCharCap at the nearest preceding space so no
// chunk grows unboundedly.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for len(p) > softCharCap {
			cut := strings.LastIndex(p[:softCharCap], " ")
			if cut <= 0 {
				cut = softCharCap
			}
			out = append(out, strings.TrimSpace(p[:cut]))
			p = strings.TrimSpace(p[cut:])
		}
		out = append(out, p)
	}
	return out
}

func tagBonus(tags []string, lowerQuery string) float64 {
	bonus := 0.0
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(lowerQuery, strings.ToLower(tag)) {
			bonus += tagBonusPer
		}
	}
	if bonus > tagBonusCap {
		bonus = tagBonusCap
	}
	return bonus
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			out[w] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
