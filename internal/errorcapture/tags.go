package errorcapture

import (
	"regexp"
	"sort"
	"strconv"
)

// tagRule is one row of the fixed, ordered tag-extraction table (§4.1).
// Every rule that matches contributes its tag; this is a coverage table,
// not a first-match-wins dispatch — a single failure routinely carries
// several tags (see the superset examples in §8).
type tagRule struct {
	tag string
	re  *regexp.Regexp
}

var tagTable = []tagRule{
	{"surface_cli", regexp.MustCompile(`(?i)\b(usage:|run_\w+|\$\s?\w+|stdin|stdout)\b`)},
	{"surface_http", regexp.MustCompile(`(?i)\bhttps?://|\bhttp/?\s?\d{3}\b|\bheader\b`)},
	{"surface_python", regexp.MustCompile(`(?i)traceback \(most recent call last\)|\.py"|\bFile "`)},
	{"constraint", regexp.MustCompile(`(?i)\bconstraint\b|\bunique\b.{0,20}\bfailed\b|\bforeign key\b|\bcheck\b.{0,10}\bviolat`)},
	{"syntax_error", regexp.MustCompile(`(?i)\bsyntax\b|\bunexpected token\b|\bparse error\b|\bunknown command\b|\binvalid syntax\b`)},
	{"command_not_found", regexp.MustCompile(`(?i)\bcommand not found\b|\bunknown command\b`)},
	{"timeout", regexp.MustCompile(`(?i)\btimeout\b|\btimed out\b|\bretry after\b|\bdeadline exceeded\b`)},
	{"permission", regexp.MustCompile(`(?i)\bpermission denied\b|\baccess denied\b|\bnot authorized\b|\bforbidden\b`)},
	{"not_found", regexp.MustCompile(`(?i)\bnot found\b|\bno such (file|table|column)\b|\b404\b`)},
	{"auth", regexp.MustCompile(`(?i)\bunauthorized\b|\b401\b|\binvalid api key\b|\bauthentication\b`)},
	{"rate_limited", regexp.MustCompile(`(?i)\b429\b|\brate limit\b|\btoo many requests\b`)},
	{"network", regexp.MustCompile(`(?i)\bconnection reset\b|\bconnection refused\b|\bnetwork\b|\bdns\b|\becconnreset\b`)},
	{"resource", regexp.MustCompile(`(?i)\bout of memory\b|\bdisk (full|space)\b|\bno space left\b|\btoo large\b`)},
	{"retryable", regexp.MustCompile(`(?i)\bretry\b|\btemporarily unavailable\b|\b503\b|\b429\b`)},
	{"progress", regexp.MustCompile(`(?i)\bprogress\b|\bimprov(ed|ing)\b`)},
	{"efficiency", regexp.MustCompile(`(?i)\befficiency\b|\bsteps? (increased|regressed)\b`)},
}

var (
	reExitCode  = regexp.MustCompile(`(?i)exit code\s+(\d+)`)
	reHTTPCode  = regexp.MustCompile(`(?i)\bhttp/?\s?([1-5]\d{2})\b`)
)

// TagsOf extracts the closed-vocabulary tag set for one failure from the
// concatenation of its raw error, state, and action text. extra tags (e.g.
// caller-supplied hints) are merged in as-is. If nothing matches, the result
// is exactly ["uncategorized"].
func TagsOf(errText string, state any, action string, extra []string) []string {
	text := errText + " " + stateToText(state) + " " + action
	lower := toLowerASCIIKeep(text)

	set := map[string]bool{}
	for _, rule := range tagTable {
		if rule.re.MatchString(lower) {
			set[rule.tag] = true
		}
	}
	if m := reExitCode.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			set["nonzero_exit"] = true
		}
	}
	if m := reHTTPCode.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			switch {
			case n >= 400 && n < 500:
				set["client_error"] = true
			case n >= 500 && n < 600:
				set["server_error"] = true
			}
		}
	}
	for _, t := range extra {
		if t != "" {
			set[t] = true
		}
	}

	if len(set) == 0 {
		return []string{"uncategorized"}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func toLowerASCIIKeep(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
