// Package validation checks a tool_input payload against its ToolSpec
// before the agent loop dispatches it to a domain adapter, honoring exactly
// the subset of JSON-Schema the spec defines: top-level type, required
// keys, additionalProperties, and per-property primitive checks.
package validation

import (
	"fmt"
	"sort"

	"github.com/cortexmemory/cortex/internal/types"
)

// Validate returns a human-readable error describing the first class of
// violation found, or "" if input satisfies spec. Checks run in a fixed
// order (missing keys, then unknown keys, then per-property types) so the
// message is deterministic for a given input.
func Validate(spec types.ToolSpec, input map[string]any) string {
	if spec.Type == "object" && input == nil {
		input = map[string]any{}
	}

	if missing := missingRequired(spec, input); len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Sprintf("%s missing required keys: %v", spec.Name, missing)
	}

	if !spec.AdditionalProperties {
		if unknown := unknownKeys(spec, input); len(unknown) > 0 {
			sort.Strings(unknown)
			return fmt.Sprintf("%s received unknown keys: %v", spec.Name, unknown)
		}
	}

	for _, name := range sortedPropertyNames(spec) {
		prop := spec.Properties[name]
		v, present := input[name]
		if !present {
			continue
		}
		if msg := checkPrimitive(spec.Name, name, prop.Type, v); msg != "" {
			return msg
		}
	}
	return ""
}

func missingRequired(spec types.ToolSpec, input map[string]any) []string {
	var missing []string
	for _, key := range spec.Required {
		if _, ok := input[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func unknownKeys(spec types.ToolSpec, input map[string]any) []string {
	var unknown []string
	for key := range input {
		if _, ok := spec.Properties[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

func sortedPropertyNames(spec types.ToolSpec) []string {
	names := make([]string, 0, len(spec.Properties))
	for name := range spec.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkPrimitive(toolName, propName, kind string, v any) string {
	switch kind {
	case "string":
		s, ok := v.(string)
		if !ok || isBlank(s) {
			return fmt.Sprintf("%s requires a non-empty string %s", toolName, propName)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Sprintf("%s requires an object for %s", toolName, propName)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Sprintf("%s requires an array for %s", toolName, propName)
		}
	case "number":
		switch v.(type) {
		case float64, int, int64:
		default:
			return fmt.Sprintf("%s requires a number for %s", toolName, propName)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("%s requires a boolean for %s", toolName, propName)
		}
	}
	return ""
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
