package domain

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cortexmemory/cortex/internal/errtax"
	"github.com/cortexmemory/cortex/internal/types"
)

// RewriteError reshapes a raw driver/process error into the prose an
// adapter under mode would actually surface. cryptic strips everything but
// a terse driver code; semi_helpful keeps the raw message and adds a one-
// line pointer; mixed alternates by a coin flip over the message length
// (deterministic, not random, so the same input always rewrites the same
// way) — this variability is itself part of the memory experiment.
func RewriteError(mode types.ErrorModeFlag, tool, raw, hint string) string {
	ae := &errtax.AdapterError{Tool: tool, Msg: raw}
	slog.Debug("domain: adapter error", "err", ae)
	switch mode {
	case types.ErrorModeCryptic:
		return crypticOf(raw)
	case types.ErrorModeSemiHelpful:
		if hint == "" {
			return raw
		}
		return fmt.Sprintf("%s (%s)", raw, hint)
	case types.ErrorModeMixed:
		if len(raw)%2 == 0 {
			return crypticOf(raw)
		}
		if hint == "" {
			return raw
		}
		return fmt.Sprintf("%s (%s)", raw, hint)
	default:
		return raw
	}
}

// crypticOf keeps only the first clause of a driver error, the way a
// minimal wrapper around a C library tends to surface failures.
func crypticOf(raw string) string {
	if idx := strings.IndexAny(raw, ":\n"); idx > 0 {
		return strings.TrimSpace(raw[:idx])
	}
	return raw
}
