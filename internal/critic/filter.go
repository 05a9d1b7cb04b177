package critic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cortexmemory/cortex/internal/domain"
)

const (
	keywordHitWeight    = 0.15
	keywordHitCap       = 0.45
	stepReferenceWeight = 0.2
	errorTokenWeight    = 0.2
	evidenceStepsWeight = 0.15
)

// DefaultMinQuality is the score floor below which a generated lesson is
// dropped.
const DefaultMinQuality = 0.15

var genericAdvicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\balways be careful\b`),
	regexp.MustCompile(`(?i)\bremember to\b`),
	regexp.MustCompile(`(?i)\bdouble[- ]check\b`),
	regexp.MustCompile(`(?i)\bmake sure (to|that)\b`),
	regexp.MustCompile(`(?i)\bbe (more )?careful\b`),
}

var stepReferenceRe = regexp.MustCompile(`(?i)\bstep\s*\d+\b`)

var errorTokenRe = regexp.MustCompile(`(?i)(error|exception|errno|syntax error|not found|denied|mismatch|forbidden|timeout)\w*`)

// Kept is one RawLesson that survived the quality filter, with its score.
type Kept struct {
	Raw   RawLesson
	Score float64
}

// QualityFilter scores each raw lesson and keeps those at or above
// minQuality, rejecting anything matching a generic-advice pattern outright.
func QualityFilter(raw []RawLesson, adapter domain.Adapter, minQuality float64) []Kept {
	var kept []Kept
	for _, r := range raw {
		if isGenericAdvice(r.Lesson) {
			continue
		}
		score := scoreLesson(r, adapter)
		if score >= minQuality {
			kept = append(kept, Kept{Raw: r, Score: score})
		}
	}
	return kept
}

func isGenericAdvice(lesson string) bool {
	for _, re := range genericAdvicePatterns {
		if re.MatchString(lesson) {
			return true
		}
	}
	return false
}

func scoreLesson(r RawLesson, adapter domain.Adapter) float64 {
	var score float64

	if adapter != nil {
		if kw := adapter.QualityKeywords(); kw != nil {
			hits := len(kw.FindAllStringIndex(r.Lesson, -1))
			hitScore := float64(hits) * keywordHitWeight
			if hitScore > keywordHitCap {
				hitScore = keywordHitCap
			}
			score += hitScore
		}
	}

	if stepReferenceRe.MatchString(r.Lesson) || hasNumericEvidenceMention(r.Lesson, r.EvidenceSteps) {
		score += stepReferenceWeight
	}
	if errorTokenRe.MatchString(r.Lesson) {
		score += errorTokenWeight
	}
	if len(r.EvidenceSteps) > 0 {
		score += evidenceStepsWeight
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasNumericEvidenceMention(lesson string, steps []int) bool {
	for _, s := range steps {
		if strings.Contains(lesson, strconv.Itoa(s)) {
			return true
		}
	}
	return false
}
