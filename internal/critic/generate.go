// Package critic mines a session's trace for durable lessons when the
// deterministic evaluator did not fully pass. Grounded on
// internal/roles/metaval/metaval.go's single strict-JSON LLM call plus its
// tag-derivation style (splitting task text into candidate tags), replacing
// metaval's free-form merged_output with a constrained lesson array.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/types"
)

const systemPrompt = `You just watched an agent attempt a tool-using task that did not fully
succeed. Read the task, the trace of tool calls, and why the evaluator
rejected it. Extract up to four durable lessons a future attempt at a
similar task could use to avoid the same mistake.

Each lesson:
- category: one of "mistake", "insight", "shortcut", "domain_detail".
- lesson: a single, specific, actionable rule. 280 characters or fewer.
  Not generic advice ("be careful", "remember to double check") — name the
  concrete pattern, command, or constraint.
- evidence_steps: the step numbers from the trace that support this lesson.

Output strict JSON only, no markdown, no prose, no code fences:
[{"category":"mistake","lesson":"...","evidence_steps":[3,4]}, ...]

Output [] if nothing durable was learned.`

const maxEventsConsidered = 30

// RawLesson is one entry of the critic's raw, pre-filter JSON output.
type RawLesson struct {
	Category      string `json:"category"`
	Lesson        string `json:"lesson"`
	EvidenceSteps []int  `json:"evidence_steps"`
}

const maxGeneratedLessons = 4

// Generate issues one LLM call to mine lessons from a failed or partial
// session. Returns nil, not an error, on call or parse failure — lesson
// generation is best-effort and never blocks the loop. knowledgeContext, if
// non-empty, is scored local-document context (learning_mode=strict only;
// see internal/knowledge) appended after the trace.
func Generate(ctx context.Context, client *llm.Client, taskText string, events []types.Event, reasons []string, knowledgeContext string) []RawLesson {
	prompt := buildPrompt(taskText, events, reasons)
	if knowledgeContext != "" {
		prompt += "\n\nRelevant reference material:\n" + knowledgeContext
	}

	resp, err := client.CreateMessage(ctx, llm.Request{
		System:   systemPrompt,
		Messages: []llm.Message{llm.NewUserText(prompt)},
	})
	if err != nil {
		return nil
	}

	raw := firstText(resp)
	raw = llm.StripFences(raw)

	var lessons []RawLesson
	if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
		return nil
	}
	if len(lessons) > maxGeneratedLessons {
		lessons = lessons[:maxGeneratedLessons]
	}
	return lessons
}

func firstText(resp llm.Response) string {
	for _, b := range resp.Content {
		if b.Type == llm.BlockText {
			return b.Text
		}
	}
	return ""
}

func buildPrompt(taskText string, events []types.Event, reasons []string) string {
	recent := events
	if len(recent) > maxEventsConsidered {
		recent = recent[len(recent)-maxEventsConsidered:]
	}

	var trace strings.Builder
	for _, ev := range recent {
		input, _ := json.Marshal(ev.ToolInput)
		status := "ok"
		errText := ""
		if !ev.OK {
			status = "error"
			if ev.Error != nil {
				errText = *ev.Error
			}
		}
		fmt.Fprintf(&trace, "step %d: %s(%s) -> %s %s\n", ev.Step, ev.Tool, input, status, errText)
	}

	return fmt.Sprintf("Task: %s\n\nEvaluator rejection reasons: %v\n\nTrace:\n%s", taskText, reasons, trace.String())
}
