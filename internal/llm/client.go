// Package llm is the sole boundary between the core and the LLM provider.
// It implements the contract the agent loop depends on:
// messages.create(model, max_tokens, system, messages, tools?, betas?) → a
// response with usage and a list of content blocks of type
// text|tool_use|thinking; Request.Betas is accepted but not sent to the
// provider. Every other core package talks to this package's
// types only, never to the underlying SDK.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cortexmemory/cortex/internal/errtax"
	"github.com/cortexmemory/cortex/internal/types"
)

// Role is a message role in a conversation sent to the provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType names a content block kind: text, tool_use and thinking come
// back from the provider; tool_result is only sent to it.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// ContentBlock is a polymorphic content entry: a text block, a tool_use
// block emitted by the model, or a tool_result block sent back to it.
// Only the fields relevant to Type are populated.
type ContentBlock struct {
	Type        BlockType
	Text        string
	ToolUseID   string
	ToolName    string
	ToolInput   json.RawMessage
	ResultText  string
	ResultIsErr bool
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// NewUserText builds a single-block user message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// NewToolResult builds a user message carrying one tool_result block,
// replying to a prior tool_use.
func NewToolResult(toolUseID, text string, isErr bool) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{
		Type:        BlockToolResult,
		ToolUseID:   toolUseID,
		ResultText:  text,
		ResultIsErr: isErr,
	}}}
}

// Usage reports token consumption for one call, matching the provider
// contract's usage dict of integer counters.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Request is everything the agent loop supplies for one LLM turn.
// CreateMessage does not forward Betas to the provider.
type Request struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []Message
	Tools     []types.ToolSpec
	Betas     []string
}

// Response is the provider's reply: content blocks plus usage.
type Response struct {
	Content    []ContentBlock
	Usage      Usage
	StopReason string
}

// Client wraps anthropic-sdk-go behind the Request/Response shape above.
// Construction follows the teacher's tiered pattern: a prefix selects
// {PREFIX}_MODEL / falls back to CORTEX_MODEL_{TIER} / falls back to a
// hardcoded default, so the executor, critic, and judge can each use a
// different model tier without three copies of client plumbing.
type Client struct {
	apiKey              string
	defaultModel        string
	label               string
	enablePromptCaching bool
	sdk                 anthropic.Client
}

// NewTier builds a Client for a named tier ("EXECUTOR", "CRITIC", "JUDGE").
// Resolution order per field: {prefix}_MODEL, CORTEX_MODEL_{prefix}, def.
func NewTier(prefix, def string) *Client {
	model := def
	if prefix != "" {
		if v := os.Getenv(prefix + "_MODEL"); v != "" {
			model = v
		} else if v := os.Getenv("CORTEX_MODEL_" + prefix); v != "" {
			model = v
		}
	}
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	caching := os.Getenv("CORTEX_ENABLE_PROMPT_CACHING") == "true"
	label := prefix
	if label == "" {
		label = "LLM"
	}
	return &Client{
		apiKey:              apiKey,
		defaultModel:        model,
		label:               label,
		enablePromptCaching: caching,
		sdk:                 anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// CreateMessage issues a single, synchronous messages.create call — the
// harness never streams; one round trip per agent-loop step, matching the
// teacher's single-shot Chat() shape.
func (c *Client) CreateMessage(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	slog.Debug("llm: request", "tier", c.label, "model", model, "messages", len(req.Messages), "tools", len(req.Tools))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  toAnthropicMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		tools, err := toAnthropicTools(req.Tools)
		if err != nil {
			return Response{}, fmt.Errorf("llm: convert tools: %w", err)
		}
		params.Tools = tools
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return Response{}, &errtax.ProviderFailure{Cause: fmt.Errorf("llm: %s: %w", c.label, err)}
	}

	resp := fromAnthropicMessage(msg)
	slog.Debug("llm: response", "tier", c.label, "stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return resp, nil
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				var input any
				_ = json.Unmarshal(b.ToolInput, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, input, b.ToolName))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.ResultText, b.ResultIsErr))
			}
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func toAnthropicTools(specs []types.ToolSpec) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		props := map[string]any{}
		for name, p := range spec.Properties {
			props[name] = map[string]any{"type": p.Type}
		}
		schemaDoc, err := json.Marshal(map[string]any{
			"type":       "object",
			"properties": props,
			"required":   spec.Required,
		})
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schemaDoc, &schema); err != nil {
			return nil, fmt.Errorf("tool %s: invalid schema: %w", spec.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, spec.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("tool %s: missing tool definition", spec.Name)
		}
		param.OfTool.Description = anthropic.String(spec.Description)
		out = append(out, param)
	}
	return out, nil
}

func fromAnthropicMessage(msg *anthropic.Message) Response {
	resp := Response{StopReason: string(msg.StopReason)}
	resp.Usage = Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, ContentBlock{Type: BlockText, Text: variant.Text})
		case anthropic.ToolUseBlock:
			resp.Content = append(resp.Content, ContentBlock{
				Type:      BlockToolUse,
				ToolUseID: variant.ID,
				ToolName:  variant.Name,
				ToolInput: json.RawMessage(variant.Input),
			})
		case anthropic.ThinkingBlock:
			resp.Content = append(resp.Content, ContentBlock{Type: BlockThinking, Text: variant.Thinking})
		}
	}
	return resp
}

// StripThinkBlocks removes <think>...</think> reasoning blocks some judge
// and critic prompts' raw text may still carry through tool framing.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// StripFences removes markdown code fences from LLM output before JSON
// parsing; kept as a standalone helper for the judge and critic packages,
// mirroring the teacher's llm.StripFences.
func StripFences(s string) string {
	s = StripThinkBlocks(strings.TrimSpace(s))
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// CallTimeout is a 60-second wall-clock figure for one LLM round trip.
// CreateMessage does not apply it: a call is bounded only by the caller's
// context and the SDK's own retry/backoff, and a failed call is returned as
// a ProviderFailure.
const CallTimeout = 60 * time.Second
