package models

import "fmt"

// VerdictKind tags the two verdict payload shapes.
type VerdictKind string

const (
	// VerdictBoolean is a community vote: valid / not valid.
	VerdictBoolean VerdictKind = "boolean"
	// VerdictScored is an automated vote: a 0-100 score with confidence.
	VerdictScored VerdictKind = "scored"
)

// Verdict is the tagged variant carried by RecordVote. Exactly one payload
// shape is meaningful depending on Kind; the aggregator normalizes both onto
// a 0-100 scale at its boundary.
type Verdict struct {
	Kind VerdictKind `json:"kind"`

	// Boolean payload
	Approve bool `json:"approve,omitempty"`

	// Scored payload
	Score      uint8 `json:"score,omitempty"`      // 0-100
	Confidence uint8 `json:"confidence,omitempty"` // 0-100, feeds reward multipliers
}

// BooleanVerdict builds a community validity vote.
func BooleanVerdict(approve bool) Verdict {
	return Verdict{Kind: VerdictBoolean, Approve: approve}
}

// ScoredVerdict builds an automated analysis vote.
func ScoredVerdict(score, confidence uint8) Verdict {
	return Verdict{Kind: VerdictScored, Score: score, Confidence: confidence}
}

// Normalize maps the verdict onto the 0-100 aggregation scale and checks the
// payload fits the caster's class: community assessors cast boolean verdicts,
// automated assessors cast scored ones.
func (v Verdict) Normalize(class ParticipantClass) (float64, error) {
	switch v.Kind {
	case VerdictBoolean:
		if class != ClassCommunity {
			return 0, fmt.Errorf("class %s cannot cast a boolean verdict", class)
		}
		if v.Approve {
			return 100, nil
		}
		return 0, nil
	case VerdictScored:
		if class != ClassAutomated {
			return 0, fmt.Errorf("class %s cannot cast a scored verdict", class)
		}
		if v.Score > 100 {
			return 0, fmt.Errorf("score %d out of range [0,100]", v.Score)
		}
		if v.Confidence > 100 {
			return 0, fmt.Errorf("confidence %d out of range [0,100]", v.Confidence)
		}
		return float64(v.Score), nil
	}
	return 0, fmt.Errorf("unknown verdict kind %q", v.Kind)
}
