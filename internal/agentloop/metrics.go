package agentloop

import (
	"github.com/cortexmemory/cortex/internal/escalation"
	"github.com/cortexmemory/cortex/internal/types"
)

// MetricsInput collects everything BuildMetrics needs from a completed
// session. It exists as a struct (rather than a long parameter list)
// because nearly every field maps straight onto a types.Metrics field.
type MetricsInput struct {
	TaskID    string
	SessionID int
	Verdict   types.Verdict
	Det       types.EvalResult
	Judge     types.JudgeResult

	Steps      int
	ErrorCount int

	V2ErrorEvents             int
	V2LessonActivations       int
	V2RetrievalHelpRatio      *float64
	V2TransferLaneActivations int
	V2Promoted                int
	V2Suppressed              int

	ToolValidationRetryAttempts     int
	ToolValidationRetryCappedEvents int
	ForcedContinueCount             int
	SkillGateBlocks                 int

	PromptTokens     int
	CompletionTokens int

	Escalation        escalation.SnapshotView
	OrchestratorError *string
}

// BuildMetrics assembles the metrics.json payload for one finished
// session.
func BuildMetrics(in MetricsInput) types.Metrics {
	return types.Metrics{
		TaskID:                          in.TaskID,
		SessionID:                       in.SessionID,
		Verdict:                         in.Verdict,
		DeterministicPassed:             in.Det.Passed,
		JudgePassed:                     in.Judge.Passed,
		Score:                           combinedScore(in.Det, in.Judge),
		Steps:                           in.Steps,
		ErrorCount:                      in.ErrorCount,
		V2ErrorEvents:                   in.V2ErrorEvents,
		V2LessonActivations:             in.V2LessonActivations,
		V2RetrievalHelpRatio:            in.V2RetrievalHelpRatio,
		V2TransferLaneActivations:       in.V2TransferLaneActivations,
		V2Promoted:                      in.V2Promoted,
		V2Suppressed:                    in.V2Suppressed,
		ToolValidationRetryAttempts:     in.ToolValidationRetryAttempts,
		ToolValidationRetryCappedEvents: in.ToolValidationRetryCappedEvents,
		ForcedContinueCount:             in.ForcedContinueCount,
		SkillGateBlocks:                 in.SkillGateBlocks,
		PromptTokens:                    in.PromptTokens,
		CompletionTokens:                in.CompletionTokens,
		TotalTokens:                     in.PromptTokens + in.CompletionTokens,
		Escalation:                      toEscalationSnapshot(in.Escalation),
		OrchestratorError:               in.OrchestratorError,
	}
}

// combinedScore averages the deterministic and judge scores when the
// contract applied, and falls back to the judge's alone when it didn't.
func combinedScore(det types.EvalResult, judge types.JudgeResult) float64 {
	if !det.Applicable {
		return judge.Score
	}
	return (det.Score + judge.Score) / 2
}

func toEscalationSnapshot(s escalation.SnapshotView) types.EscalationSnapshot {
	return types.EscalationSnapshot{
		CriticTier:            s.CriticTier,
		LowScoreStreak:        s.LowScoreStreak,
		CriticNoUpdatesStreak: s.CriticNoUpdatesStreak,
		FailStreak:            s.FailStreak,
		OverrideRunsRemaining: s.OverrideRunsRemaining,
	}
}
