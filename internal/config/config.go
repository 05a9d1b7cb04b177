// Package config loads the agent loop's configuration record from
// environment variables (optionally populated from a .env file) and CLI
// flags, following the teacher's tiered-construction idiom in its old
// internal/llm package: read a prefixed variable, fall back to the
// unprefixed one, fall back to a default.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/cortexmemory/cortex/internal/types"
)

// LoadDotEnv loads a .env file if present. Missing files are not an error —
// mirrors the teacher's cmd/agsh/main.go startup, which treats .env as
// optional local developer convenience, never a deployment requirement.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("config: .env load failed", "path", path, "error", err)
	}
}

// Config is the agent loop's full configuration record (spec §4.13).
type Config struct {
	TaskID             string
	SessionID          int
	MaxSteps           int
	Domain             string
	LearningMode       types.LearningMode
	ArchitectureMode   types.ArchitectureMode
	Bootstrap          bool
	ErrorMode          types.ErrorModeFlag
	PosttaskMode       types.PosttaskMode
	MemoryV2DemoMode   bool

	EnableTransferRetrieval     bool
	TransferRetrievalMaxResults int
	TransferRetrievalScoreWeight float64

	SessionsRoot     string
	LessonStorePath  string
	SkillsDir        string
	ContractsRoot    string
	EscalationStatePath string

	ExecutorModel string
	CriticModel   string
	JudgeModel    string
	APIKey        string
	EnablePromptCaching bool

	LegacyMinReliability float64
}

// EnvString returns the first non-empty value among the prefixed variable
// PREFIX_name, the unprefixed variable name, and def.
func EnvString(prefix, name, def string) string {
	if prefix != "" {
		if v := os.Getenv(prefix + "_" + name); v != "" {
			return v
		}
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// EnvBool parses a boolean env var with the same prefix-then-fallback
// resolution as EnvString.
func EnvBool(prefix, name string, def bool) bool {
	raw := EnvString(prefix, name, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// EnvInt parses an integer env var with the same resolution as EnvString.
func EnvInt(prefix, name string, def int) int {
	raw := EnvString(prefix, name, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// FromEnv builds a Config from environment variables, using defaults for
// anything a CLI flag hasn't already set on the returned value's zero form.
// Callers (cmd/cortex) overlay flag values afterward.
func FromEnv() Config {
	return Config{
		MaxSteps:                     EnvInt("CORTEX", "MAX_STEPS", 40),
		LearningMode:                 types.LearningMode(EnvString("CORTEX", "LEARNING_MODE", string(types.LearningLegacy))),
		ArchitectureMode:             types.ArchitectureMode(EnvString("CORTEX", "ARCHITECTURE_MODE", string(types.ArchitectureFull))),
		PosttaskMode:                 types.PosttaskMode(EnvString("CORTEX", "POSTTASK_MODE", string(types.PosttaskCandidate))),
		EnableTransferRetrieval:      EnvBool("CORTEX", "ENABLE_TRANSFER_RETRIEVAL", false),
		TransferRetrievalMaxResults:  EnvInt("CORTEX", "TRANSFER_RETRIEVAL_MAX_RESULTS", 1),
		TransferRetrievalScoreWeight: 0.35,
		SessionsRoot:                 EnvString("CORTEX", "SESSIONS_ROOT", "./sessions"),
		LessonStorePath:              EnvString("CORTEX", "LESSON_STORE_PATH", "./memory/lessons_v2.jsonl"),
		SkillsDir:                    EnvString("CORTEX", "SKILLS_DIR", "./skills"),
		ContractsRoot:                EnvString("CORTEX", "CONTRACTS_ROOT", "./tasks"),
		EscalationStatePath:          EnvString("CORTEX", "ESCALATION_STATE_PATH", "./memory/escalation_state.json"),
		ExecutorModel:                EnvString("CORTEX", "MODEL_EXECUTOR", "claude-haiku-4-5"),
		CriticModel:                  EnvString("CORTEX", "MODEL_CRITIC", "claude-haiku-4-5"),
		JudgeModel:                   EnvString("CORTEX", "MODEL_JUDGE", "claude-haiku-4-5"),
		APIKey:                       EnvString("", "ANTHROPIC_API_KEY", ""),
		EnablePromptCaching:          EnvBool("CORTEX", "ENABLE_PROMPT_CACHING", false),
		LegacyMinReliability:         0, // §9(c): no clamp by default
	}
}

// NewLogger builds the process-wide slog.Logger. CORTEX_LOG_FORMAT=text
// selects a human-readable handler for local development; anything else
// (including unset) uses JSON, matching how production services in the
// reference corpus default to structured output.
func NewLogger() *slog.Logger {
	format := EnvString("CORTEX", "LOG_FORMAT", "json")
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if EnvBool("CORTEX", "DEBUG", false) {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
