// Package errorcapture normalizes raw failure text into a stable fingerprint
// plus a set of closed-vocabulary tags, and constructs the ErrorEvent that
// the agent loop persists to memory_events.jsonl on every tool failure.
package errorcapture

import (
	"regexp"
	"strings"
)

// Each substitution pattern below is a static, package-level compiled table —
// initialized once, never mutated — per the "regex pipelines as data" design
// note. Placeholders are plain uppercase words so the later punctuation-strip
// pass never mangles them.
var (
	reUUID  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	reHex   = regexp.MustCompile(`(?i)\b0x[0-9a-f]+\b`)
	reNum   = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	reDQ    = regexp.MustCompile(`"[^"]*"`)
	reSQ    = regexp.MustCompile(`'[^']*'`)
	rePath  = regexp.MustCompile(`(~?/[^\s,;:()]+)`)
	rePunct = regexp.MustCompile(`[^a-zA-Z0-9\s]+`)
	reSpace = regexp.MustCompile(`\s+`)
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "at": true, "in": true,
	"on": true, "for": true, "to": true, "of": true, "and": true, "or": true,
	"with": true, "by": true, "be": true, "as": true, "that": true,
	"this": true, "it": true, "was": true, "were": true, "are": true,
}

// Normalize collapses volatile noise out of s: UUIDs, hex literals, numbers,
// quoted strings, and filesystem paths become fixed placeholder tokens;
// punctuation is stripped, whitespace collapsed, English stop-words dropped,
// and adjacent duplicate tokens collapsed to one. An empty or all-noise
// input normalizes to "".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = reUUID.ReplaceAllString(s, " UUIDTOK ")
	s = reHex.ReplaceAllString(s, " HEXTOK ")
	s = reDQ.ReplaceAllString(s, " STRTOK ")
	s = reSQ.ReplaceAllString(s, " STRTOK ")
	s = rePath.ReplaceAllString(s, " PATHTOK ")
	s = reNum.ReplaceAllString(s, " NUMTOK ")
	s = rePunct.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(reSpace.ReplaceAllString(s, " ")))
	if s == "" {
		return ""
	}

	tokens := strings.Split(s, " ")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || stopWords[tok] {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == tok {
			continue // collapse adjacent duplicate tokens
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
