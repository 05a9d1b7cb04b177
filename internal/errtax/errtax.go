// Package errtax is the error taxonomy the agent loop and memory subsystem
// use to distinguish recoverable, in-band tool errors from the one failure
// kind that actually unwinds a session (ProviderFailure).
package errtax

import "fmt"

// ValidationError means a tool_input failed schema validation; recovered
// locally and returned to the model. The step counter does not advance
// unless the validation-retry cap has been reached.
type ValidationError struct {
	Tool string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
}

// AdapterError means a tool executed but the adapter reported failure;
// surfaced to the model as is_error=true and generates an ErrorEvent.
type AdapterError struct {
	Tool string
	Msg  string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
}

// GateViolation means the executor tool was called before the skill-read
// gate was satisfied.
type GateViolation struct {
	Tool string
}

func (e *GateViolation) Error() string {
	return fmt.Sprintf("%s: blocked by skill-read gate", e.Tool)
}

// LoopGuard means an inspection action fired repeatedly without progress.
type LoopGuard struct {
	Msg string
}

func (e *LoopGuard) Error() string { return "loop guard: " + e.Msg }

// PromotionFailure means a legacy skill-file patch failed digest validation
// or the trend gate; skill files are left untouched.
type PromotionFailure struct {
	Reason string
}

func (e *PromotionFailure) Error() string { return "promotion failure: " + e.Reason }

// ProviderFailure means the LLM call exhausted its retries or returned a
// structurally invalid response. It is the only error kind that unwinds a
// session: the agent loop stops stepping, still scores the session and
// writes its metrics, and then returns the error to its caller.
type ProviderFailure struct {
	Cause error
}

func (e *ProviderFailure) Error() string { return "provider failure: " + e.Cause.Error() }
func (e *ProviderFailure) Unwrap() error { return e.Cause }

// ContractMisconfiguration means a contract's regex failed to compile. The
// evaluator reports this as a contract_error reason code rather than
// crashing the run. A required query that fails to run, including one whose
// SQL does not parse, is reported as required_query_mismatch instead.
type ContractMisconfiguration struct {
	TaskID string
	Detail string
}

func (e *ContractMisconfiguration) Error() string {
	return fmt.Sprintf("contract %s misconfigured: %s", e.TaskID, e.Detail)
}

// StoreCorruption means a JSONL store line could not be parsed. Callers
// count it and skip the line; the rest of the file remains usable.
type StoreCorruption struct {
	Path string
	Line int
}

func (e *StoreCorruption) Error() string {
	return fmt.Sprintf("%s: unparseable line %d", e.Path, e.Line)
}
