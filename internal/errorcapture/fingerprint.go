package errorcapture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// fingerprintHexLen mirrors the 20-hex-char convention used for lesson
// identity (§3) so fingerprints and lesson ids share one "short stable hash"
// shape throughout the store and retrieval engine.
const fingerprintHexLen = 20

// FingerprintOf computes the deterministic fingerprint of a failure from its
// raw error text, arbitrary state context, and the attempted action. Two
// failures that differ only by volatile ids/paths/counters normalize to the
// same string and therefore share a fingerprint.
func FingerprintOf(errText string, state any, action string) string {
	stateText := stateToText(state)
	composite := "error=" + Normalize(errText) + "|state=" + Normalize(stateText) + "|action=" + Normalize(action)
	sum := sha256.Sum256([]byte(composite))
	full := hex.EncodeToString(sum[:])
	return "ef_" + full[:fingerprintHexLen]
}

// stateToText renders an arbitrary state value into text for normalization.
// Strings pass through; anything else renders via fmt's default verb, which
// is stable for the same underlying value shape.
func stateToText(state any) string {
	switch v := state.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%+v", v)
	}
}
