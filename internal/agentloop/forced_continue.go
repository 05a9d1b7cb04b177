package agentloop

import (
	"fmt"
	"strings"
)

// ForcedContinueMessage is injected as a synthetic user turn when the model
// stops calling tools before the deterministic contract has passed and the
// step budget isn't exhausted yet.
func ForcedContinueMessage(reasons []string) string {
	return fmt.Sprintf("Contract not yet passed; reasons: [%s]; continue with tools", strings.Join(reasons, ", "))
}

// ValidationRetryCapMessage is injected when a single step's tool-input
// validation has failed maxValidationRetries times in a row.
const ValidationRetryCapMessage = "Trigger: validation_retry_cap. Reflect before retrying."
