// Package agentloop is the control loop that drives one task session: it
// composes the system prompt, makes one LLM call per step, dispatches the
// model's tool_use blocks to the domain adapter (or the skill/fixture
// readers), records every step to disk, and — after the model stops
// calling tools — scores the session and feeds the result back into the
// memory subsystem. Grounded on internal/roles/executor/executor.go's
// single-tool-per-turn loop and internal/roles/planner/planner.go's
// system-prompt composition, generalized from the teacher's bespoke
// JSON-action protocol to native tool_use blocks so every adapter's tools
// are declared once as types.ToolSpec and validated the same way.
package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cortexmemory/cortex/internal/config"
	"github.com/cortexmemory/cortex/internal/critic"
	"github.com/cortexmemory/cortex/internal/domain"
	"github.com/cortexmemory/cortex/internal/errorcapture"
	"github.com/cortexmemory/cortex/internal/errtax"
	"github.com/cortexmemory/cortex/internal/escalation"
	"github.com/cortexmemory/cortex/internal/evaluator"
	"github.com/cortexmemory/cortex/internal/eventbus"
	"github.com/cortexmemory/cortex/internal/judge"
	"github.com/cortexmemory/cortex/internal/knowledge"
	"github.com/cortexmemory/cortex/internal/lessonstore"
	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/promotion"
	"github.com/cortexmemory/cortex/internal/retrieval"
	"github.com/cortexmemory/cortex/internal/sessionmemory"
	"github.com/cortexmemory/cortex/internal/skills"
	"github.com/cortexmemory/cortex/internal/types"
	"github.com/cortexmemory/cortex/internal/validation"
)

const baseSystemPrompt = `You are operating inside a task session. Read the task, then make exactly one tool call per turn and wait for its result.
When the contract's success conditions are satisfied, stop calling tools and your session ends.
No markdown, no prose outside tool calls — act directly.`

const routedSkillTopK = 5

// Deps wires together every subsystem one session needs. Callers (cmd/cortex)
// construct this once per process and call Run once per session.
type Deps struct {
	Cfg      config.Config
	Adapter  domain.Adapter
	Executor *llm.Client
	Critic   *llm.Client
	Judge    *llm.Client
	Store    *lessonstore.Store
	Bus      *eventbus.Bus
	// KnowledgeCache avoids re-reading the domain's doc manifest from disk
	// on every session; nil disables caching (docs are read fresh
	// each time learning_mode=strict needs them).
	KnowledgeCache *knowledge.ChunkCache
}

// Run drives one task session to completion and returns the metrics
// recorded for it. taskDir holds the task's seed fixtures; taskText is the
// literal task instruction shown to the model.
func Run(ctx context.Context, deps Deps, taskText, taskDir string) (types.Metrics, error) {
	paths, err := sessionmemory.EnsureSession(deps.Cfg.SessionID, deps.Cfg.SessionsRoot, true)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: ensure session: %w", err)
	}
	ws, err := deps.Adapter.PrepareWorkspace(taskDir, paths.WorkspaceDir)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: prepare workspace: %w", err)
	}

	contract, _, err := evaluator.LoadContract(deps.Cfg.ContractsRoot, deps.Cfg.TaskID)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: load contract: %w", err)
	}

	manifest, err := skills.Scan(deps.Cfg.SkillsDir)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: scan skills: %w", err)
	}
	routed := skills.RouteManifestEntries(taskText, manifest, routedSkillTopK)
	gate := skills.NewGate(routed)

	lessons, err := deps.Store.Load()
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: load lessons: %w", err)
	}
	preRun := retrieval.RetrievePreRun(lessons, retrieval.PreRunParams{
		TaskID:          deps.Cfg.TaskID,
		Domain:          deps.Cfg.Domain,
		TaskText:        taskText,
		AllowDomainless: true,
	}, types.Now())

	fixtureRefs := make([]string, 0, len(ws.ExtraPath))
	for ref := range ws.ExtraPath {
		fixtureRefs = append(fixtureRefs, ref)
	}
	toolDefs := deps.Adapter.ToolDefs(fixtureRefs, false)
	aliasMap := deps.Adapter.BuildAliasMap(false)
	specByName := make(map[string]types.ToolSpec, len(toolDefs))
	for _, spec := range toolDefs {
		specByName[spec.Name] = spec
	}

	sess := &sessionState{
		deps:        deps,
		ws:          ws,
		paths:       paths,
		lessons:     lessons,
		preRun:      preRun,
		routed:      routed,
		gate:        gate,
		toolDefs:    toolDefs,
		specByName:  specByName,
		aliasMap:    aliasMap,
		events:      nil,
		messages:    []llm.Message{llm.NewUserText(taskText)},
		retryByStep: ValidationRetryTracker{},
	}

	var orchestratorErr *string
	var loopErr error
	step := 0
	freshStep := true
	for step < deps.Cfg.MaxSteps {
		if freshStep {
			sess.retryByStep.Reset()
		}
		det := evaluator.Evaluate(contract, taskText, sess.events, deps.Adapter.ExecutorToolName(), ws.DBPath)
		done, advance, err := sess.runStep(ctx, step, det)
		if err != nil {
			msg := err.Error()
			orchestratorErr = &msg
			loopErr = err
			break
		}
		if done {
			step++
			break
		}
		freshStep = advance
		if advance {
			step++
		}
	}

	finalState := deps.Adapter.CaptureFinalState(ws)
	det := evaluator.Evaluate(contract, taskText, sess.events, deps.Adapter.ExecutorToolName(), ws.DBPath)
	judgeRes := judge.Evaluate(ctx, deps.Judge, taskText, sess.events, finalState)
	verdict := ResolveVerdict(det, judgeRes)

	fullyPassed := det.Passed && judgeRes.Passed
	var v2Promoted, v2Suppressed int
	criticProposed := 0
	if !fullyPassed {
		reasons := det.Reasons
		if len(reasons) == 0 {
			reasons = judgeRes.Reasons
		}
		raw := critic.Generate(ctx, deps.Critic, taskText, sess.events, reasons, knowledgeContext(deps, taskText))
		criticProposed = len(raw)
		kept := critic.QualityFilter(raw, deps.Adapter, critic.DefaultMinQuality)
		if len(kept) > 0 {
			records := critic.ToLessonRecords(kept, deps.Cfg.TaskID, taskText, deps.Cfg.Domain, deps.Cfg.SessionID, sess.errorFingerprints)
			if _, err := deps.Store.Upsert(records); err != nil {
				return types.Metrics{}, fmt.Errorf("agentloop: upsert candidate lessons: %w", err)
			}
		}
	}

	outcomes := BuildLessonOutcomes(sess.injected, step, deps.Cfg.MaxSteps, combinedScore(det, judgeRes), false, false)
	if len(outcomes) > 0 {
		updated := promotion.ApplyOutcomes(lessons, outcomes, promotion.DefaultThresholds)
		for _, r := range updated {
			if r.Status == types.StatusPromoted {
				v2Promoted++
			}
			if r.Status == types.StatusSuppressed {
				v2Suppressed++
			}
		}
		if _, err := deps.Store.Upsert(updated); err != nil {
			return types.Metrics{}, fmt.Errorf("agentloop: upsert outcome lessons: %w", err)
		}
	}

	escState, err := escalation.Load(deps.Cfg.EscalationStatePath, deps.Cfg.CriticModel)
	if err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: load escalation state: %w", err)
	}
	escState = escalation.Advance(escState, escalation.RunOutcome{
		LowScore:       det.Score < 0.5,
		CriticNoUpdate: !fullyPassed && criticProposed == 0,
		Failed:         verdict == types.VerdictFail,
	}, escalation.DefaultConsecutiveRuns, escalation.DefaultOverrideRunsRemaining)
	if err := escalation.Save(deps.Cfg.EscalationStatePath, escState); err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: save escalation state: %w", err)
	}

	var helpRatio *float64
	if sess.injectedHintCount > 0 {
		r := float64(sess.resolvedHintCount) / float64(sess.injectedHintCount)
		helpRatio = &r
	}

	metrics := BuildMetrics(MetricsInput{
		TaskID:                          deps.Cfg.TaskID,
		SessionID:                       deps.Cfg.SessionID,
		Verdict:                         verdict,
		Det:                             det,
		Judge:                           judgeRes,
		Steps:                           step,
		ErrorCount:                      sess.errorCount,
		V2ErrorEvents:                   len(sess.errorFingerprints),
		V2LessonActivations:             sess.injectedHintCount,
		V2RetrievalHelpRatio:            helpRatio,
		V2TransferLaneActivations:       sess.transferLaneHits,
		V2Promoted:                      v2Promoted,
		V2Suppressed:                    v2Suppressed,
		ToolValidationRetryAttempts:     sess.validationRetryAttempts,
		ToolValidationRetryCappedEvents: sess.validationRetryCapped,
		ForcedContinueCount:             sess.forcedContinueCount,
		SkillGateBlocks:                 sess.skillGateBlocks,
		PromptTokens:                    sess.promptTokens,
		CompletionTokens:                sess.completionTokens,
		Escalation:                      escalation.Snapshot(escState),
		OrchestratorError:               orchestratorErr,
	})
	if err := sessionmemory.WriteMetrics(paths.MetricsPath, metrics); err != nil {
		return types.Metrics{}, fmt.Errorf("agentloop: write metrics: %w", err)
	}
	return metrics, loopErr
}

// sessionState carries the mutable bookkeeping of one session's step loop.
type sessionState struct {
	deps       Deps
	ws         domain.Workspace
	paths      types.SessionPaths
	lessons    []types.LessonRecord
	preRun     []types.RetrievalMatch
	routed     []types.SkillManifestEntry
	gate       *skills.Gate
	toolDefs   []types.ToolSpec
	specByName map[string]types.ToolSpec
	aliasMap   map[string]string

	messages []llm.Message
	events   []types.Event

	retryByStep ValidationRetryTracker
	injected    []InjectedLesson

	errorFingerprints       []string
	errorCount              int
	promptTokens            int
	completionTokens        int
	forcedContinueCount     int
	skillGateBlocks         int
	validationRetryAttempts int
	validationRetryCapped   int
	injectedHintCount       int
	resolvedHintCount       int
	transferLaneHits        int
}

// runStep executes one LLM turn: the call, tool dispatch for every
// tool_use block, and event recording. Returns done=true once the session
// should terminate (no tool calls and either the contract passed or the
// step budget is exhausted). advance reports whether the outer step counter
// should move to the next step: false when a tool_use block failed
// validation without reaching the retry cap, so a retry of the same step
// gets the same step number in events.jsonl; true for every other turn,
// including ones with no tool calls, adapter errors or unknown tools.
func (s *sessionState) runStep(ctx context.Context, step int, det types.EvalResult) (bool, bool, error) {
	systemPrompt := ComposeSystemPrompt(
		baseSystemPrompt,
		s.deps.Adapter.SystemPromptFragment(),
		FormatRoutedSkills(s.routed),
		FormatPreRunLessons(s.preRun),
		SkillGateNotice(s.gate.Active() && !s.gate.Satisfied()),
	)

	resp, err := s.deps.Executor.CreateMessage(ctx, llm.Request{
		System:   systemPrompt,
		Messages: s.messages,
		Tools:    s.toolDefs,
	})
	if err != nil {
		return false, true, fmt.Errorf("llm call failed at step %d: %w", step, err)
	}
	s.promptTokens += resp.Usage.InputTokens
	s.completionTokens += resp.Usage.OutputTokens

	toolUses := toolUseBlocks(resp)
	if len(toolUses) == 0 {
		if det.Passed || step >= s.deps.Cfg.MaxSteps-1 {
			return true, true, nil
		}
		s.forcedContinueCount++
		s.messages = append(s.messages, llm.NewUserText(ForcedContinueMessage(det.Reasons)))
		return false, true, nil
	}

	s.messages = append(s.messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

	advance := true
	var resultMsgs []llm.Message
	for _, tu := range toolUses {
		msg, adv := s.dispatchToolUse(ctx, step, tu)
		resultMsgs = append(resultMsgs, msg)
		if !adv {
			advance = false
		}
	}
	s.messages = append(s.messages, resultMsgs...)
	return false, advance, nil
}

// dispatchToolUse runs one tool_use block and returns its tool_result
// message plus whether the step counter may advance past it (see runStep).
func (s *sessionState) dispatchToolUse(ctx context.Context, step int, tu llm.ContentBlock) (llm.Message, bool) {
	canonical, ok := CanonicalToolName(s.aliasMap, tu.ToolName)
	if !ok {
		return llm.NewToolResult(tu.ToolUseID, fmt.Sprintf("unknown tool %q", tu.ToolName), true), true
	}

	var input map[string]any
	_ = json.Unmarshal(tu.ToolInput, &input)

	if spec, known := s.specByName[canonical]; known {
		if msg := validation.Validate(spec, input); msg != "" {
			verr := &errtax.ValidationError{Tool: canonical, Msg: msg}
			slog.Debug("agentloop: validation failure", "err", verr, "step", step)
			s.validationRetryAttempts++
			capped := s.retryByStep.Fail()
			errText := msg
			if capped {
				s.validationRetryCapped++
				errText = ValidationRetryCapMessage
			}
			ev := types.Event{Step: step, Tool: canonical, ToolInput: input, OK: false, Error: &errText}
			s.events = append(s.events, ev)
			_ = sessionmemory.WriteEvent(s.paths.EventsPath, ev)
			if s.deps.Bus != nil {
				s.deps.Bus.Publish(ev)
			}
			return llm.NewToolResult(tu.ToolUseID, errText, true), capped
		}
	}

	var result types.ToolResult
	switch canonical {
	case domain.SkillReaderToolName:
		result = s.readSkill(input)
		if result.Error == "" {
			s.gate.MarkRead(stringInput(input, "skill_ref"))
		}
	case domain.FixtureReaderToolName:
		result = s.readFixture(input)
	case s.deps.Adapter.ExecutorToolName():
		if s.gate.Active() && !s.gate.Satisfied() {
			s.skillGateBlocks++
			gv := &errtax.GateViolation{Tool: canonical}
			slog.Debug("agentloop: gate violation", "err", gv, "step", step)
			result = types.ToolResult{Error: "read a routed skill before using the executor tool"}
		} else {
			result = s.deps.Adapter.Execute(ctx, canonical, input, s.ws)
		}
	default:
		result = types.ToolResult{Error: fmt.Sprintf("unrecognized canonical tool %q", canonical)}
	}

	ev := types.Event{Step: step, Tool: canonical, ToolInput: input, OK: result.Error == ""}
	resultText := resultToText(result)

	if result.Error != "" {
		s.errorCount++
		errEv, err := errorcapture.NewErrorEvent(types.ChannelHardFailure, result.Error, input, canonical, nil, "", nil)
		if err == nil {
			s.errorFingerprints = append(s.errorFingerprints, errEv.Fingerprint)
			_ = sessionmemory.WriteErrorEvent(s.paths.MemoryEventsPath, errEv)

			matches, _ := retrieval.RetrieveOnError(s.lessons, retrieval.OnErrorParams{
				ErrorText:           result.Error,
				Fingerprint:         errEv.Fingerprint,
				Domain:              s.deps.Cfg.Domain,
				TaskID:              s.deps.Cfg.TaskID,
				EnableTransfer:      s.deps.Cfg.EnableTransferRetrieval,
				TransferMaxResults:  s.deps.Cfg.TransferRetrievalMaxResults,
				TransferScoreWeight: s.deps.Cfg.TransferRetrievalScoreWeight,
				AllowDomainless:     true,
			}, types.Now())
			if len(matches) > 0 {
				resultText = AppendHint(resultText, matches)
				scores := make([]types.RetrievalMeta, 0, len(matches))
				for _, m := range matches {
					scores = append(scores, types.RetrievalMeta{LessonID: m.Lesson.LessonID, Lane: string(m.Lane), Score: m.Score.Total})
					s.injected = append(s.injected, InjectedLesson{LessonID: m.Lesson.LessonID, Tool: canonical})
					s.injectedHintCount++
					if m.Lane == types.LaneTransfer {
						s.transferLaneHits++
					}
				}
				lessonIDs := make([]string, 0, len(matches))
				for _, m := range matches {
					lessonIDs = append(lessonIDs, m.Lesson.LessonID)
				}
				ev.MemoryV2 = &types.MemoryV2{InjectedLessons: lessonIDs, RetrievalScores: scores}
			}
		}
	}
	errText := result.Error
	if errText != "" {
		ev.Error = &errText
	} else {
		ev.Output = result.Output
		s.markPriorHintsResolved(canonical)
	}
	s.events = append(s.events, ev)
	_ = sessionmemory.WriteEvent(s.paths.EventsPath, ev)
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ev)
	}

	return llm.NewToolResult(tu.ToolUseID, resultText, result.Error != ""), true
}

// markPriorHintsResolved flags the most recent unresolved hints injected
// for tool as resolved, since a subsequent call against that same tool has
// now succeeded.
func (s *sessionState) markPriorHintsResolved(tool string) {
	marked := 0
	for i := len(s.injected) - 1; i >= 0 && marked < maxHintLessons; i-- {
		if s.injected[i].Tool == tool && !s.injected[i].Resolved {
			s.injected[i].Resolved = true
			s.resolvedHintCount++
			marked++
		}
	}
}

func (s *sessionState) readSkill(input map[string]any) types.ToolResult {
	ref := stringInput(input, "skill_ref")
	for _, e := range s.routed {
		if e.SkillRef == ref {
			body, err := skills.Body(e.Path)
			if err != nil {
				return types.ToolResult{Error: fmt.Sprintf("read skill %s: %v", ref, err)}
			}
			return types.ToolResult{Output: body}
		}
	}
	return types.ToolResult{Error: fmt.Sprintf("skill_ref %q was not routed for this task", ref)}
}

func (s *sessionState) readFixture(input map[string]any) types.ToolResult {
	ref := stringInput(input, "fixture_ref")
	path, ok := s.ws.ExtraPath[ref]
	if !ok {
		return types.ToolResult{Error: fmt.Sprintf("fixture_ref %q is not a known fixture", ref)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ToolResult{Error: fmt.Sprintf("read fixture %s: %v", ref, err)}
	}
	return types.ToolResult{Output: string(data)}
}

const maxKnowledgeChunks = 3

// knowledgeContext returns scored local-document context for the critic
// under learning_mode=strict; empty otherwise or if no docs are configured.
// Reads go through deps.KnowledgeCache when set, so a long-lived process
// (cmd/cortex repl) doesn't re-read the same files every run.
func knowledgeContext(deps Deps, taskText string) string {
	if deps.Cfg.LearningMode != types.LearningStrict {
		return ""
	}
	manifest := deps.Adapter.DocsManifest()
	if len(manifest) == 0 {
		return ""
	}
	docs := make([]knowledge.Doc, 0, len(manifest))
	for _, d := range manifest {
		docs = append(docs, loadKnowledgeDoc(deps.KnowledgeCache, d))
	}
	chunks := knowledge.Retrieve(taskText, docs, maxKnowledgeChunks)
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", c.Path, c.Text)
	}
	return strings.TrimSpace(sb.String())
}

// loadKnowledgeDoc reads d's text, through cache when set. The cache is
// keyed on d.Path (the on-disk path, stable across runs); the returned Doc
// carries d.Name instead so chunk headers show the friendly name.
func loadKnowledgeDoc(cache *knowledge.ChunkCache, d domain.DomainDoc) knowledge.Doc {
	if cache != nil {
		if cached, ok, err := cache.Get(d.Path); err == nil && ok {
			cached.Path = d.Name
			return cached
		}
	}
	text, err := os.ReadFile(d.Path)
	if err != nil {
		return knowledge.Doc{Path: d.Name}
	}
	if cache != nil {
		_ = cache.Put(knowledge.Doc{Path: d.Path, Text: string(text)})
	}
	return knowledge.Doc{Path: d.Name, Text: string(text)}
}

func toolUseBlocks(resp llm.Response) []llm.ContentBlock {
	var out []llm.ContentBlock
	for _, b := range resp.Content {
		if b.Type == llm.BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

func stringInput(input map[string]any, key string) string {
	v, _ := input[key].(string)
	return v
}

func resultToText(result types.ToolResult) string {
	if result.Error != "" {
		return result.Error
	}
	switch v := result.Output.(type) {
	case string:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

