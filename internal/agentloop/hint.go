package agentloop

import (
	"fmt"
	"strings"

	"github.com/cortexmemory/cortex/internal/types"
)

const (
	hintMarker    = "--- HINT from prior sessions ---"
	maxHintLessons = 4
)

// FormatHint renders up to maxHintLessons retrieval matches as a bullet
// list under hintMarker, or "" if matches is empty. Mirrors
// internal/roles/planner/planner.go's constraint-block wrapping, applied to
// an on-error retrieval result instead of a pre-run one.
func FormatHint(matches []types.RetrievalMatch) string {
	if len(matches) == 0 {
		return ""
	}
	n := len(matches)
	if n > maxHintLessons {
		n = maxHintLessons
	}
	var b strings.Builder
	b.WriteString(hintMarker)
	b.WriteString("\n")
	for _, m := range matches[:n] {
		fmt.Fprintf(&b, "- %s\n", m.Lesson.RuleText)
	}
	return strings.TrimRight(b.String(), "\n")
}

// AppendHint appends FormatHint's block to resultText when matches is
// non-empty, otherwise returns resultText unchanged.
func AppendHint(resultText string, matches []types.RetrievalMatch) string {
	hint := FormatHint(matches)
	if hint == "" {
		return resultText
	}
	return resultText + "\n\n" + hint
}
