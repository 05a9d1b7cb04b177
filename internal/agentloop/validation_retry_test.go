package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationRetryTracker_CapsAtMaxRetries(t *testing.T) {
	var tr ValidationRetryTracker
	assert.False(t, tr.Fail())
	assert.True(t, tr.Fail())
	assert.Equal(t, maxValidationRetries, tr.Attempts())
}

func TestValidationRetryTracker_ResetClearsCount(t *testing.T) {
	var tr ValidationRetryTracker
	tr.Fail()
	tr.Reset()
	assert.Equal(t, 0, tr.Attempts())
}
