package agentloop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidationTestSession() *sessionState {
	spec := types.ToolSpec{
		Name:     "run_sqlite",
		Type:     "object",
		Required: []string{"query"},
	}
	return &sessionState{
		aliasMap:   map[string]string{"run_sqlite": "run_sqlite"},
		specByName: map[string]types.ToolSpec{"run_sqlite": spec},
	}
}

func badToolUse() llm.ContentBlock {
	return llm.ContentBlock{
		Type:      llm.BlockToolUse,
		ToolUseID: "tu1",
		ToolName:  "run_sqlite",
		ToolInput: json.RawMessage(`{}`),
	}
}

// TestDispatchToolUse_ValidationFailureRecordsEventAndDoesNotAdvance covers
// the session-level integration the review flagged as missing: a failed
// validation must still append an Event at the current step and must not
// let the caller advance past it.
func TestDispatchToolUse_ValidationFailureRecordsEventAndDoesNotAdvance(t *testing.T) {
	s := newValidationTestSession()
	msg, advance := s.dispatchToolUse(context.Background(), 1, badToolUse())

	require.False(t, advance)
	require.Len(t, s.events, 1)
	assert.Equal(t, 1, s.events[0].Step)
	assert.False(t, s.events[0].OK)
	require.NotNil(t, s.events[0].Error)
	assert.Contains(t, *s.events[0].Error, "missing required keys")
	require.Len(t, msg.Content, 1)
	assert.True(t, msg.Content[0].ResultIsErr)
}

// TestDispatchToolUse_TwoConsecutiveFailuresAtSameStepCapAndAdvance mirrors
// spec.md §8's testable property: two consecutive validation failures at
// the same step reuse that step number in events.jsonl, and the second one
// (the cap) allows the step counter to advance.
func TestDispatchToolUse_TwoConsecutiveFailuresAtSameStepCapAndAdvance(t *testing.T) {
	s := newValidationTestSession()

	_, advance1 := s.dispatchToolUse(context.Background(), 1, badToolUse())
	require.False(t, advance1)

	msg2, advance2 := s.dispatchToolUse(context.Background(), 1, badToolUse())
	require.True(t, advance2, "the capped attempt must let the step counter advance")

	require.Len(t, s.events, 2)
	assert.Equal(t, 1, s.events[0].Step)
	assert.Equal(t, 1, s.events[1].Step, "both failed attempts share step=1")
	assert.Equal(t, 1, s.validationRetryCapped)
	assert.Equal(t, ValidationRetryCapMessage, *s.events[1].Error)
	require.Len(t, msg2.Content, 1)
	assert.Equal(t, ValidationRetryCapMessage, msg2.Content[0].ResultText)
}
