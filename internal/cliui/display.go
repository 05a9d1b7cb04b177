// Package cliui renders one session's progress to the terminal. Trimmed
// from the teacher's internal/ui/display.go: the teacher animated a
// multi-role message pipeline box; a session here is a single linear step
// loop, so the spinner-and-status-line mechanics survive but the per-role
// box layout and emoji-keyed message tables do not.
package cliui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cortexmemory/cortex/internal/types"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
)

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display reads session events from a bus tap and prints a one-line,
// continuously overwritten status as the step loop advances.
type Display struct {
	tap     <-chan types.Event
	mu      sync.Mutex
	spinIdx int
}

// New creates a Display reading from tap.
func New(tap <-chan types.Event) *Display {
	return &Display{tap: tap}
}

// Run prints one status line per event until ctx is cancelled or the tap
// closes (the bus never closes taps today, so ctx cancellation — tied to
// the session's lifetime in cmd/cortex — is the practical exit path).
func (d *Display) Run(ctx context.Context) {
	defer fmt.Print("\r\033[K")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.tap:
			if !ok {
				return
			}
			d.mu.Lock()
			d.spinIdx = (d.spinIdx + 1) % len(spinRunes)
			spin := spinRunes[d.spinIdx]
			d.mu.Unlock()
			fmt.Printf("\r\033[K%s%c%s step %d  %s%s%s", ansiCyan, spin, ansiReset,
				ev.Step, statusColor(ev), statusLabel(ev), ansiReset)
		}
	}
}

func statusColor(ev types.Event) string {
	if ev.OK {
		return ansiGreen
	}
	return ansiRed
}

func statusLabel(ev types.Event) string {
	if ev.OK {
		return fmt.Sprintf("%s ok", ev.Tool)
	}
	msg := ""
	if ev.Error != nil {
		msg = clip(*ev.Error, 60)
	}
	return fmt.Sprintf("%s failed — %s", ev.Tool, msg)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RenderMetrics prints the final metrics.json summary for one session.
func RenderMetrics(m types.Metrics) {
	verdictColor := ansiYellow
	switch m.Verdict {
	case types.VerdictPass:
		verdictColor = ansiGreen
	case types.VerdictFail:
		verdictColor = ansiRed
	}
	fmt.Printf("\n%sSession %d — %s%s%s%s\n", ansiBold, m.SessionID, verdictColor, m.Verdict, ansiReset, ansiReset)
	fmt.Printf("  task:           %s\n", m.TaskID)
	fmt.Printf("  score:          %.2f  (deterministic=%v judge=%v)\n", m.Score, m.DeterministicPassed, m.JudgePassed)
	fmt.Printf("  steps:          %d\n", m.Steps)
	fmt.Printf("  errors:         %d\n", m.ErrorCount)
	fmt.Printf("  lessons:        %d injected, %d promoted, %d suppressed\n", m.V2LessonActivations, m.V2Promoted, m.V2Suppressed)
	if m.V2RetrievalHelpRatio != nil {
		fmt.Printf("  hint help rate: %.0f%%\n", *m.V2RetrievalHelpRatio*100)
	}
	fmt.Printf("  tokens:         %d prompt + %d completion = %d\n", m.PromptTokens, m.CompletionTokens, m.TotalTokens)
	fmt.Printf("  escalation:     tier=%s fail_streak=%d low_score_streak=%d\n",
		m.Escalation.CriticTier, m.Escalation.FailStreak, m.Escalation.LowScoreStreak)
	if m.OrchestratorError != nil {
		fmt.Printf("  %sorchestrator error: %s%s\n", ansiRed, *m.OrchestratorError, ansiReset)
	}
	fmt.Println()
}

// RenderLessonSummary prints a one-line-per-lesson overview for the repl's
// /lessons command.
func RenderLessonSummary(records []types.LessonRecord) {
	if len(records) == 0 {
		fmt.Println(ansiDim + "(lesson store is empty)" + ansiReset)
		return
	}
	fmt.Printf("%s%-24s %-10s %-8s %s%s\n", ansiBold, "lesson_id", "status", "domain", "rule", ansiReset)
	for _, r := range records {
		fmt.Printf("%-24s %-10s %-8s %s\n", r.LessonID, r.Status, r.Domain, clip(r.RuleText, 60))
	}
	fmt.Printf(ansiDim+"%d lessons total"+ansiReset+"\n", len(records))
}

// RenderRoutedSkills prints a list of skill manifest entries; the repl's
// /skills command passes it the full scanned manifest.
func RenderRoutedSkills(entries []types.SkillManifestEntry) {
	if len(entries) == 0 {
		fmt.Println(ansiDim + "(no skills routed)" + ansiReset)
		return
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.SkillRef)
	}
	fmt.Printf("routed skills: %s\n", strings.Join(names, ", "))
}
