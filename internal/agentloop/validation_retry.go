package agentloop

// maxValidationRetries is how many consecutive tool-input validation
// failures a single step tolerates before the loop injects
// ValidationRetryCapMessage instead of the validator's own error text.
const maxValidationRetries = 2

// ValidationRetryTracker counts validation failures within one step; Run
// resets it each time the loop moves on to a fresh step.
type ValidationRetryTracker struct {
	attempts int
}

// Fail records one validation failure and reports whether the retry cap has
// now been reached.
func (t *ValidationRetryTracker) Fail() (capped bool) {
	t.attempts++
	return t.attempts >= maxValidationRetries
}

// Reset clears the tracker; Run calls it whenever the loop moves on to a
// fresh step.
func (t *ValidationRetryTracker) Reset() {
	t.attempts = 0
}

// Attempts reports the current consecutive-failure count.
func (t *ValidationRetryTracker) Attempts() int {
	return t.attempts
}
