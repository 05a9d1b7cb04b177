package retrieval

import (
	"sort"
	"time"

	"github.com/cortexmemory/cortex/internal/types"
)

const (
	defaultPreRunMaxResults    = 8
	defaultOnErrorMaxResults   = 3
	defaultTransferScoreWeight = 0.35
)

func eligible(r types.LessonRecord) bool {
	return r.Status == types.StatusCandidate || r.Status == types.StatusPromoted
}

// PreRunParams is the input to RetrievePreRun.
type PreRunParams struct {
	TaskID             string
	Domain             string
	TaskText           string
	RecentFingerprints []string
	TagHints           []string
	MaxResults         int
	AllowDomainless    bool
}

// RetrievePreRun scopes to records matching the task id or domain (plus
// domainless records when explicitly permitted) and never consults the
// transfer lane.
func RetrievePreRun(records []types.LessonRecord, p PreRunParams, now time.Time) []types.RetrievalMatch {
	max := p.MaxResults
	if max <= 0 {
		max = defaultPreRunMaxResults
	}
	q := Query{Fingerprints: p.RecentFingerprints, Tags: p.TagHints, Text: p.TaskText}

	var scoped []types.LessonRecord
	for _, r := range records {
		if !eligible(r) {
			continue
		}
		if r.TaskID == p.TaskID || (p.Domain != "" && r.Domain == p.Domain) || (p.AllowDomainless && r.Domain == "") {
			scoped = append(scoped, r)
		}
	}

	ranked := rank(scoped, q, now)
	selected, _ := Select(ranked, max, DefaultGuards)
	for i := range selected {
		selected[i].Lane = types.LaneStrict
	}
	return selected
}

// OnErrorParams is the input to RetrieveOnError.
type OnErrorParams struct {
	ErrorText           string
	Fingerprint         string
	Domain              string
	TaskID              string
	TagHints            []string
	MaxResults          int
	EnableTransfer      bool
	TransferMaxResults  int
	TransferScoreWeight float64
	AllowDomainless     bool
}

// RetrieveOnError runs the strict same-domain lane, then — if transfer is
// enabled and slots remain — backfills with down-weighted cross-domain
// matches without ever displacing a strict winner. It returns the selected
// matches and the ids of any lessons that lost a conflict during selection.
func RetrieveOnError(records []types.LessonRecord, p OnErrorParams, now time.Time) ([]types.RetrievalMatch, []string) {
	max := p.MaxResults
	if max <= 0 {
		max = defaultOnErrorMaxResults
	}
	q := Query{Fingerprints: []string{p.Fingerprint}, Tags: p.TagHints, Text: p.ErrorText}

	var strictScoped []types.LessonRecord
	for _, r := range records {
		if !eligible(r) {
			continue
		}
		sameDomain := r.Domain == p.Domain || (p.AllowDomainless && r.Domain == "")
		if !sameDomain {
			continue
		}
		if p.TaskID != "" && r.TaskID != p.TaskID {
			continue
		}
		strictScoped = append(strictScoped, r)
	}
	strictRanked := rank(strictScoped, q, now)
	for i := range strictRanked {
		strictRanked[i].Lane = types.LaneStrict
	}
	selected, losers := SelectSeeded(nil, strictRanked, max, DefaultGuards)

	if p.EnableTransfer && p.TransferMaxResults > 0 && len(selected) < max {
		weight := p.TransferScoreWeight
		if weight <= 0 {
			weight = defaultTransferScoreWeight
		}
		var transferScoped []types.LessonRecord
		for _, r := range records {
			if !eligible(r) || r.Domain == "" || r.Domain == p.Domain {
				continue
			}
			if p.TaskID != "" && r.TaskID == p.TaskID {
				continue
			}
			transferScoped = append(transferScoped, r)
		}
		transferRanked := rank(transferScoped, q, now)
		for i := range transferRanked {
			transferRanked[i].Score.Total *= weight
			transferRanked[i].Lane = types.LaneTransfer
		}
		sort.SliceStable(transferRanked, func(i, j int) bool {
			return transferRanked[i].Score.Total > transferRanked[j].Score.Total
		})

		transferBudget := p.TransferMaxResults
		if remaining := max - len(selected); remaining < transferBudget {
			transferBudget = remaining
		}
		merged, moreLosers := SelectSeeded(selected, transferRanked, len(selected)+transferBudget, DefaultGuards)
		selected = merged
		losers = append(losers, moreLosers...)
	}

	return selected, losers
}

func rank(records []types.LessonRecord, q Query, now time.Time) []types.RetrievalMatch {
	matches := make([]types.RetrievalMatch, 0, len(records))
	for _, r := range records {
		matches = append(matches, types.RetrievalMatch{Lesson: r, Score: Score(r, q, DefaultWeights, now)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score.Total > matches[j].Score.Total })
	return matches
}
