package escalation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileSeedsBaseTier(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"), "haiku")
	require.NoError(t, err)
	assert.Equal(t, "haiku", s.BaseTier)
	assert.Equal(t, "haiku", s.CurrentTier)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escalation.json")
	s := State{BaseTier: "haiku", CurrentTier: "sonnet", LowScoreStreak: 2, OverrideRunsRemaining: 1}
	require.NoError(t, Save(path, s))
	got, err := Load(path, "haiku")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestAdvance_StreakResetsOnNonHit(t *testing.T) {
	s := State{BaseTier: "haiku", CurrentTier: "haiku"}
	s = Advance(s, RunOutcome{LowScore: true}, DefaultConsecutiveRuns, DefaultOverrideRunsRemaining)
	assert.Equal(t, 1, s.LowScoreStreak)
	s = Advance(s, RunOutcome{LowScore: false}, DefaultConsecutiveRuns, DefaultOverrideRunsRemaining)
	assert.Equal(t, 0, s.LowScoreStreak)
}

func TestAdvance_BumpsTierAtConsecutiveRuns(t *testing.T) {
	s := State{BaseTier: "haiku", CurrentTier: "haiku"}
	s = Advance(s, RunOutcome{LowScore: true}, 2, 3)
	assert.Equal(t, "haiku", s.CurrentTier)
	s = Advance(s, RunOutcome{LowScore: true}, 2, 3)
	assert.Equal(t, "sonnet", s.CurrentTier)
	assert.Equal(t, 3, s.OverrideRunsRemaining)
}

func TestAdvance_RelaxesBackToBaseAfterOverrideRunsExhausted(t *testing.T) {
	s := State{BaseTier: "haiku", CurrentTier: "haiku"}
	s = Advance(s, RunOutcome{Failed: true}, 1, 2)
	assert.Equal(t, "sonnet", s.CurrentTier)
	assert.Equal(t, 2, s.OverrideRunsRemaining)

	s = Advance(s, RunOutcome{}, 1, 2)
	assert.Equal(t, "sonnet", s.CurrentTier)
	assert.Equal(t, 1, s.OverrideRunsRemaining)

	s = Advance(s, RunOutcome{}, 1, 2)
	assert.Equal(t, "haiku", s.CurrentTier)
	assert.Equal(t, 0, s.OverrideRunsRemaining)
}

func TestNextTier_OpusStaysOpus(t *testing.T) {
	assert.Equal(t, "opus", nextTier("opus"))
}

func TestSnapshot_MirrorsState(t *testing.T) {
	s := State{CurrentTier: "sonnet", LowScoreStreak: 1, CriticNoUpdatesStreak: 2, FailStreak: 0, OverrideRunsRemaining: 3}
	snap := Snapshot(s)
	assert.Equal(t, "sonnet", snap.CriticTier)
	assert.Equal(t, 1, snap.LowScoreStreak)
	assert.Equal(t, 2, snap.CriticNoUpdatesStreak)
	assert.Equal(t, 3, snap.OverrideRunsRemaining)
}
