package judge

import (
	"strings"
	"testing"

	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestClip_ShorterThanMaxUnchanged(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 10))
}

func TestClip_LongerThanMaxTruncatesWithMarker(t *testing.T) {
	got := clip(strings.Repeat("x", 20), 5)
	assert.True(t, strings.HasPrefix(got, "xxxxx"))
	assert.Contains(t, got, "clipped")
}

func TestBuildPrompt_IncludesTaskAndFinalState(t *testing.T) {
	errText := "boom"
	events := []types.Event{
		{Step: 1, Tool: "run_bash", OK: true, ToolInput: map[string]any{"command": "ls"}, Output: "a.txt"},
		{Step: 2, Tool: "run_bash", OK: false, Error: &errText},
	}
	prompt := buildPrompt("list files", events, "workspace: a.txt")

	assert.Contains(t, prompt, "Task: list files")
	assert.Contains(t, prompt, "workspace: a.txt")
	assert.Contains(t, prompt, "step 1: run_bash")
	assert.Contains(t, prompt, "error: boom")
}

func TestBuildPrompt_ClipsToMostRecentEvents(t *testing.T) {
	events := make([]types.Event, 0, maxEventsConsidered+5)
	for i := 0; i < maxEventsConsidered+5; i++ {
		events = append(events, types.Event{Step: i, Tool: "run_bash", OK: true})
	}
	prompt := buildPrompt("task", events, "")
	assert.NotContains(t, prompt, "step 0:")
	assert.Contains(t, prompt, "step 34:")
}

func TestFirstText_ReturnsFirstTextBlock(t *testing.T) {
	resp := llm.Response{Content: []llm.ContentBlock{
		{Type: llm.BlockToolUse, ToolName: "x"},
		{Type: llm.BlockText, Text: `{"passed":true}`},
	}}
	assert.Equal(t, `{"passed":true}`, firstText(resp))
}

func TestFirstText_NoTextBlockReturnsEmpty(t *testing.T) {
	resp := llm.Response{Content: []llm.ContentBlock{{Type: llm.BlockToolUse}}}
	assert.Equal(t, "", firstText(resp))
}
