// Package judge is the independent LLM oracle for sessions whose contract
// is absent or only partially authoritative. Grounded on
// internal/roles/agentval/agentval.go's single strict-JSON scoring call:
// build a system+user prompt, issue one LLM turn, strip fences, parse.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/types"
)

const systemPrompt = `You are the judge for an autonomous coding/data agent session.

You receive the task text, a trace of the agent's recent tool calls and their
outcomes, and a dump of the final observable state of its workspace. Decide
whether the task was actually accomplished, using the state dump as the
primary evidence — the agent's own narration is not evidence.

Output strict JSON only, no markdown, no prose, no code fences:
{"passed": bool, "score": number between 0 and 1, "reasons": ["..."]}

reasons should be short snake_case-ish tokens naming what failed, or empty
when passed is true.`

const maxEventsConsidered = 30
const maxOutputChars = 500

// Evaluate issues one LLM call judging whether taskText was accomplished,
// given the session's recent events and the adapter's final-state dump.
// On call or parse failure it returns a fixed failing verdict rather than
// propagating the error — the judge is advisory, never fatal to the loop.
func Evaluate(ctx context.Context, client *llm.Client, taskText string, events []types.Event, finalState string) types.JudgeResult {
	prompt := buildPrompt(taskText, events, finalState)

	resp, err := client.CreateMessage(ctx, llm.Request{
		System:   systemPrompt,
		Messages: []llm.Message{llm.NewUserText(prompt)},
	})
	if err != nil {
		return types.JudgeResult{Passed: false, Score: 0, Reasons: []string{"judge_call_failed"}}
	}

	raw := firstText(resp)
	raw = llm.StripFences(raw)

	var result types.JudgeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return types.JudgeResult{Passed: false, Score: 0, Reasons: []string{"judge_parse_failed"}}
	}
	return result
}

func firstText(resp llm.Response) string {
	for _, b := range resp.Content {
		if b.Type == llm.BlockText {
			return b.Text
		}
	}
	return ""
}

func buildPrompt(taskText string, events []types.Event, finalState string) string {
	recent := events
	if len(recent) > maxEventsConsidered {
		recent = recent[len(recent)-maxEventsConsidered:]
	}

	var trace strings.Builder
	for _, ev := range recent {
		input, _ := json.Marshal(ev.ToolInput)
		out := clip(fmt.Sprintf("%v", ev.Output), maxOutputChars)
		status := "ok"
		if !ev.OK {
			status = "error"
			if ev.Error != nil {
				out = clip(*ev.Error, maxOutputChars)
			}
		}
		fmt.Fprintf(&trace, "step %d: %s(%s) -> %s: %s\n", ev.Step, ev.Tool, input, status, out)
	}

	return fmt.Sprintf("Task: %s\n\nTrace:\n%s\nFinal state:\n%s", taskText, trace.String(), finalState)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…(clipped)"
}
