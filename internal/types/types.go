// Package types holds the data model shared across the memory subsystem and
// the agent loop: contracts, session artifacts, events, lessons, and the
// structures that flow between retrieval, promotion, and the critic.
package types

import "time"

// LessonStatus is one of the four states in the promotion state machine.
type LessonStatus string

const (
	StatusCandidate  LessonStatus = "candidate"
	StatusPromoted   LessonStatus = "promoted"
	StatusSuppressed LessonStatus = "suppressed"
	StatusArchived   LessonStatus = "archived"
)

// ErrorChannel is the closed set of reasons an ErrorEvent can fire for.
type ErrorChannel string

const (
	ChannelHardFailure       ErrorChannel = "hard_failure"
	ChannelConstraintFailure ErrorChannel = "constraint_failure"
	ChannelProgressSignal    ErrorChannel = "progress_signal"
	ChannelEfficiencySignal  ErrorChannel = "efficiency_signal"
)

// RetrievalLane identifies which stage of the two-lane retrieval pipeline
// produced a match.
type RetrievalLane string

const (
	LaneStrict   RetrievalLane = "strict"
	LaneTransfer RetrievalLane = "transfer"
)

// Verdict is the three-way outcome of combining the deterministic and judge
// verdicts for a session.
type Verdict string

const (
	VerdictPass      Verdict = "pass"
	VerdictFail      Verdict = "fail"
	VerdictUncertain Verdict = "uncertain"
)

// LearningMode selects whether the knowledge provider's strict-mode context
// is available to the critic.
type LearningMode string

const (
	LearningLegacy LearningMode = "legacy"
	LearningStrict LearningMode = "strict"
)

// ArchitectureMode toggles the legacy skill-file-patch pipeline alongside V2.
type ArchitectureMode string

const (
	ArchitectureFull       ArchitectureMode = "full"
	ArchitectureSimplified ArchitectureMode = "simplified"
)

// PosttaskMode controls whether generated lessons are upserted as candidates
// or written straight through as promoted.
type PosttaskMode string

const (
	PosttaskCandidate PosttaskMode = "candidate"
	PosttaskDirect    PosttaskMode = "direct"
)

// ErrorModeFlag selects how an adapter rewrites its error prose.
type ErrorModeFlag string

const (
	ErrorModeCryptic     ErrorModeFlag = "cryptic"
	ErrorModeSemiHelpful ErrorModeFlag = "semi_helpful"
	ErrorModeMixed       ErrorModeFlag = "mixed"
	ErrorModeNone        ErrorModeFlag = ""
)

// TaskMatch selects which tasks a TaskContract applies to.
type TaskMatch struct {
	All []string `json:"all,omitempty"`
	Any []string `json:"any,omitempty"`
}

// Applies reports whether lowerTaskText (already lower-cased by the caller)
// satisfies this TaskMatch: every All term must appear, and if Any is
// non-empty at least one Any term must appear too.
func (m TaskMatch) Applies(lowerTaskText string) bool {
	for _, term := range m.All {
		if !containsFold(lowerTaskText, term) {
			return false
		}
	}
	if len(m.Any) == 0 {
		return true
	}
	for _, term := range m.Any {
		if containsFold(lowerTaskText, term) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	needle = toLowerASCII(needle)
	if needle == "" {
		return true
	}
	n, h := len(needle), len(haystack)
	for i := 0; i+n <= h; i++ {
		if haystack[i:i+n] == needle {
			return true
		}
	}
	return false
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// RequiredQuery is a probe run against the adapter's workspace after a
// session, compared row-for-row against ExpectedRows.
type RequiredQuery struct {
	Name         string     `json:"name"`
	Query        string     `json:"query"`
	ExpectedRows [][]string `json:"expected_rows"`
}

// TaskContract is the declarative scoring rule set for one task id.
type TaskContract struct {
	ID                   string          `json:"id"`
	TaskMatch            TaskMatch       `json:"task_match"`
	Setup                []string        `json:"setup,omitempty"`
	RequiredSQLPatterns  []string        `json:"required_sql_patterns"`
	ForbiddenSQLPatterns []string        `json:"forbidden_sql_patterns"`
	RequiredQueries      []RequiredQuery `json:"required_queries"`
	MaxErrorCount        int             `json:"max_error_count"`
	PassRule             string          `json:"pass_rule,omitempty"`
	ReasonCodes          []string        `json:"reason_codes,omitempty"`
}

// SessionPaths is the deterministic directory layout for one session.
type SessionPaths struct {
	Root             string
	EventsPath       string
	MetricsPath      string
	MemoryEventsPath string
	WorkspaceDir     string
}

// MemoryV2 annotates an Event with hint-injection details for that step.
type MemoryV2 struct {
	InjectedLessons []string        `json:"injected_lessons,omitempty"`
	RetrievalScores []RetrievalMeta `json:"retrieval_scores,omitempty"`
}

// RetrievalMeta is the per-match metadata recorded on an Event's memory_v2 block.
type RetrievalMeta struct {
	LessonID string  `json:"lesson_id"`
	Lane     string  `json:"lane"`
	Score    float64 `json:"score"`
}

// Event is one line of events.jsonl.
type Event struct {
	TS        float64   `json:"ts"`
	Step      int       `json:"step"`
	Tool      string    `json:"tool"`
	ToolInput any       `json:"tool_input"`
	OK        bool      `json:"ok"`
	Error     *string   `json:"error"`
	Output    any       `json:"output"`
	MemoryV2  *MemoryV2 `json:"memory_v2,omitempty"`
}

// ErrorEvent is one line of memory_events.jsonl.
type ErrorEvent struct {
	Channel     ErrorChannel   `json:"channel"`
	Error       string         `json:"error"`
	State       any            `json:"state"`
	Action      string         `json:"action"`
	Tags        []string       `json:"tags"`
	Fingerprint string         `json:"fingerprint"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LessonRecord is the canonical memory unit persisted by the lesson store.
type LessonRecord struct {
	MemorySchema        string       `json:"memory_schema"`
	MemorySchemaVersion int          `json:"memory_schema_version"`
	LessonID            string       `json:"lesson_id"`
	Status              LessonStatus `json:"status"`
	RuleText            string       `json:"rule_text"`
	NormalizedRule      string       `json:"normalized_rule"`
	TriggerFingerprints []string     `json:"trigger_fingerprints"`
	Tags                []string     `json:"tags"`
	TaskID              string       `json:"task_id"`
	Task                string       `json:"task"`
	Domain              string       `json:"domain"`
	SourceSessionIDs    []int        `json:"source_session_ids"`
	Reliability         float64      `json:"reliability"`
	RetrievalCount      int          `json:"retrieval_count"`
	HelpfulCount        int          `json:"helpful_count"`
	HarmfulCount        int          `json:"harmful_count"`
	MajorRegressions    int          `json:"major_regressions"`
	ContradictionLosses int          `json:"contradiction_losses"`
	UtilityHistory      []float64    `json:"utility_history"`
	ConflictLessonIDs   []string     `json:"conflict_lesson_ids"`
	ArchivedReason      *string      `json:"archived_reason,omitempty"`
	CreatedAt           string       `json:"created_at"`
	UpdatedAt           string       `json:"updated_at"`
}

// LessonOutcome is the input to the promotion controller for one
// retrieval-to-run pair.
type LessonOutcome struct {
	LessonID           string   `json:"lesson_id"`
	ErrorReduction     float64  `json:"error_reduction"`
	StepEfficiencyGain float64  `json:"step_efficiency_gain"`
	RefereeScoreGain   *float64 `json:"referee_score_gain,omitempty"`
	MajorRegression    bool     `json:"major_regression"`
	ContradictionLost  bool     `json:"contradiction_lost"`
}

// MatchScore decomposes a RetrievalMatch's total score.
type MatchScore struct {
	FingerprintMatch float64 `json:"fingerprint_match"`
	TagOverlap       float64 `json:"tag_overlap"`
	TextSimilarity   float64 `json:"text_similarity"`
	Reliability      float64 `json:"reliability"`
	Recency          float64 `json:"recency"`
	Total            float64 `json:"total"`
}

// RetrievalMatch is one ranked lesson returned by the retrieval engine.
type RetrievalMatch struct {
	Lesson LessonRecord  `json:"lesson"`
	Score  MatchScore    `json:"score"`
	Lane   RetrievalLane `json:"lane"`
}

// ToolSpec is a declarative, JSON-Schema-ish tool definition. The validator
// in internal/validation honors exactly Type/Properties/Required/AdditionalProperties.
type ToolSpec struct {
	Name                 string                  `json:"name"`
	Description          string                  `json:"description"`
	Type                 string                  `json:"type"`
	Properties           map[string]PropertySpec `json:"properties"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// PropertySpec is the subset of JSON-Schema the validator honors for one
// tool input property.
type PropertySpec struct {
	Type string `json:"type"` // "string" | "object" | "array" | "number" | "boolean"
}

// ToolResult is the tagged-union outcome of a domain adapter's execute call:
// exactly one of Output or Error is set.
type ToolResult struct {
	Output any
	Error  string
}

// JudgeResult is the strict-JSON verdict returned by the LLM judge.
type JudgeResult struct {
	Passed  bool     `json:"passed"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// EvalResult is the deterministic evaluator's verdict for a session.
type EvalResult struct {
	Applicable   bool     `json:"applicable"`
	Passed       bool     `json:"passed"`
	Score        float64  `json:"score"`
	ChecksPassed int      `json:"checks_passed"`
	ChecksTotal  int      `json:"checks_total"`
	ErrorCount   int      `json:"error_count"`
	Reasons      []string `json:"reasons"`
}

// SkillManifestEntry is one routed skill doc.
type SkillManifestEntry struct {
	SkillRef    string  `json:"skill_ref"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Path        string  `json:"path"`
	Version     string  `json:"version"`
	LastUpdated string  `json:"last_updated"`
	Confidence  float64 `json:"confidence"`
}

// EscalationSnapshot is the escalation controller's persisted/reported state.
type EscalationSnapshot struct {
	CriticTier            string `json:"critic_tier"`
	LowScoreStreak        int    `json:"low_score_streak"`
	CriticNoUpdatesStreak int    `json:"critic_no_updates_streak"`
	FailStreak            int    `json:"fail_streak"`
	OverrideRunsRemaining int    `json:"override_runs_remaining"`
}

// Metrics is the content of metrics.json, written once at session end.
type Metrics struct {
	TaskID                          string             `json:"task_id"`
	SessionID                       int                `json:"session_id"`
	Verdict                         Verdict            `json:"verdict"`
	DeterministicPassed             bool               `json:"deterministic_passed"`
	JudgePassed                     bool               `json:"judge_passed"`
	Score                           float64            `json:"score"`
	Steps                           int                `json:"steps"`
	ErrorCount                      int                `json:"error_count"`
	V2ErrorEvents                   int                `json:"v2_error_events"`
	V2LessonActivations             int                `json:"v2_lesson_activations"`
	V2RetrievalHelpRatio            *float64           `json:"v2_retrieval_help_ratio"`
	V2TransferLaneActivations       int                `json:"v2_transfer_lane_activations"`
	V2Promoted                      int                `json:"v2_promoted"`
	V2Suppressed                    int                `json:"v2_suppressed"`
	ToolValidationRetryAttempts     int                `json:"tool_validation_retry_attempts"`
	ToolValidationRetryCappedEvents int                `json:"tool_validation_retry_capped_events"`
	ForcedContinueCount             int                `json:"forced_continue_count"`
	SkillGateBlocks                 int                `json:"skill_gate_blocks"`
	PromptTokens                    int                `json:"prompt_tokens"`
	CompletionTokens                int                `json:"completion_tokens"`
	TotalTokens                     int                `json:"total_tokens"`
	Escalation                      EscalationSnapshot `json:"escalation"`
	OrchestratorError               *string            `json:"orchestrator_error,omitempty"`
}

// Now returns the current wall-clock time; a thin indirection kept for
// symmetry with the store packages that inject a clock for tests.
var Now = time.Now
