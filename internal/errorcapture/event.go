package errorcapture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cortexmemory/cortex/internal/types"
)

var validChannels = map[types.ErrorChannel]bool{
	types.ChannelHardFailure:       true,
	types.ChannelConstraintFailure: true,
	types.ChannelProgressSignal:    true,
	types.ChannelEfficiencySignal:  true,
}

// NewErrorEvent builds a types.ErrorEvent, computing fingerprint and tags
// when the caller omits them. An unknown channel is a caller bug, not a
// recoverable condition elsewhere in the pipeline, so it is coerced into an
// error here rather than silently accepted.
func NewErrorEvent(channel types.ErrorChannel, errText string, state any, action string, tags []string, fingerprint string, metadata map[string]any) (types.ErrorEvent, error) {
	if !validChannels[channel] {
		return types.ErrorEvent{}, fmt.Errorf("errorcapture: unknown channel %q", channel)
	}
	if fingerprint == "" {
		fingerprint = FingerprintOf(errText, state, action)
	}
	if tags == nil {
		tags = TagsOf(errText, state, action, nil)
	} else {
		tags = dedupSorted(tags)
	}
	return types.ErrorEvent{
		Channel:     channel,
		Error:       errText,
		State:       state,
		Action:      action,
		Tags:        tags,
		Fingerprint: fingerprint,
		Metadata:    metadata,
	}, nil
}

func dedupSorted(tags []string) []string {
	set := map[string]bool{}
	for _, t := range tags {
		set[t] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalStable serializes v as ASCII-only JSON with sorted keys, as used
// for memory_events.jsonl and lessons_v2.jsonl lines. encoding/json writes
// struct fields in declaration order but map keys lexicographically, so v
// is encoded once, decoded into generic maps, and encoded again; non-ASCII
// runes are then escaped.
func MarshalStable(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return escapeNonASCII(out), nil
}

func escapeNonASCII(in []byte) []byte {
	ascii := true
	for _, b := range in {
		if b > 0x7f {
			ascii = false
			break
		}
	}
	if ascii {
		return in
	}
	var out bytes.Buffer
	for _, r := range string(in) {
		if r > 0x7f {
			fmt.Fprintf(&out, `\u%04x`, r)
		} else {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}
