package models

import (
	"time"
)

// SubmissionState is the submission lifecycle. Transitions are monotonic:
// Submitted -> Validating -> Finalized, and Finalized is terminal.
type SubmissionState string

const (
	StateSubmitted  SubmissionState = "submitted"
	StateValidating SubmissionState = "validating"
	StateFinalized  SubmissionState = "finalized"
)

// Outcome classifies a finalized submission by its final trust score.
type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeRejected  Outcome = "rejected"
	OutcomeUncertain Outcome = "uncertain"
)

// ClassifyScore maps a final trust score onto an outcome given the two
// thresholds (verified at or above hi, rejected at or below lo).
func ClassifyScore(score, hi, lo float64) Outcome {
	switch {
	case score >= hi:
		return OutcomeVerified
	case score <= lo:
		return OutcomeRejected
	default:
		return OutcomeUncertain
	}
}

// VoteRecord is one recorded verdict on a submission. The pair
// (submission fingerprint, voter address) is unique; records are
// append-only and never mutated.
type VoteRecord struct {
	Voter      string           `json:"voter"`
	Class      ParticipantClass `json:"class"`
	Verdict    Verdict          `json:"verdict"`     // Raw verdict as cast
	Normalized float64          `json:"normalized"`  // 0-100 aggregation value
	Weight     float64          `json:"weight"`      // Voter reputation weight at cast time
	Evidence   string           `json:"evidence"`    // Opaque evidence reference
	CastAt     time.Time        `json:"cast_at"`
}

// Submission is a content item moving through validation.
type Submission struct {
	// Fingerprint is the unique content-derived id; immutable after submit.
	Fingerprint string `json:"fingerprint"`
	Submitter   string `json:"submitter"`
	// ContentClass selects the archive policy row applied after finalization.
	ContentClass string    `json:"content_class"`
	CreatedAt    time.Time `json:"created_at"`

	State SubmissionState `json:"state"`
	Votes []VoteRecord    `json:"votes,omitempty"`

	// Running reputation-weighted mean of normalized verdicts so far.
	RunningScore float64 `json:"running_score"`

	// Set exactly once at finalization.
	FinalScore  *float64   `json:"final_score,omitempty"`
	Outcome     Outcome    `json:"outcome,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// VoteCounts returns the recorded vote tally per class.
func (s *Submission) VoteCounts() (automated, community int) {
	for i := range s.Votes {
		if s.Votes[i].Class == ClassAutomated {
			automated++
		} else {
			community++
		}
	}
	return
}

// HasVoteFrom reports whether the participant already voted on this
// submission.
func (s *Submission) HasVoteFrom(addr string) bool {
	for i := range s.Votes {
		if s.Votes[i].Voter == addr {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to callers.
func (s *Submission) Clone() *Submission {
	cp := *s
	cp.Votes = append([]VoteRecord(nil), s.Votes...)
	if s.FinalScore != nil {
		f := *s.FinalScore
		cp.FinalScore = &f
	}
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		cp.FinalizedAt = &t
	}
	return &cp
}
