package models

import (
	"time"
)

// ParticipantClass distinguishes the two assessor tiers.
type ParticipantClass string

const (
	// ClassAutomated marks assessors whose verdicts come from automated
	// content analysis and carry a numeric score with confidence.
	ClassAutomated ParticipantClass = "automated"
	// ClassCommunity marks human assessors casting binary validity votes
	// with supporting evidence.
	ClassCommunity ParticipantClass = "community"
)

// Valid reports whether the class is one of the two known tiers.
func (c ParticipantClass) Valid() bool {
	return c == ClassAutomated || c == ClassCommunity
}

// ParticipantStatus is the lifecycle state of a participant record.
// Records are never deleted; they move to deactivated and eventually
// withdrawn once the stake is returned.
type ParticipantStatus string

const (
	ParticipantActive      ParticipantStatus = "active"
	ParticipantDeactivated ParticipantStatus = "deactivated"
	ParticipantWithdrawn   ParticipantStatus = "withdrawn"
)

// Reputation bounds and the starting score for new registrations.
const (
	ReputationMin     = 0
	ReputationMax     = 1000
	ReputationInitial = 500
)

// ReputationOutcome labels why a reputation delta was applied.
type ReputationOutcome string

const (
	OutcomeParticipated ReputationOutcome = "participated"
	OutcomeCorrect      ReputationOutcome = "correct"
	OutcomeIncorrect    ReputationOutcome = "incorrect"
	OutcomeMalicious    ReputationOutcome = "malicious"
)

// Delta returns the fixed reputation adjustment for the outcome.
func (o ReputationOutcome) Delta() int {
	switch o {
	case OutcomeParticipated:
		return 1
	case OutcomeCorrect:
		return 10
	case OutcomeIncorrect:
		return -5
	case OutcomeMalicious:
		return -50
	}
	return 0
}

// ReputationEvent is one applied reputation change.
type ReputationEvent struct {
	Outcome ReputationOutcome `json:"outcome"`
	Delta   int               `json:"delta"`   // Applied delta after clamping
	Score   int               `json:"score"`   // Resulting reputation score
	At      time.Time         `json:"at"`      // When the change was applied
}

// ReputationHistoryCap bounds the per-participant event ring retained in
// memory. Older events fall off the front.
const ReputationHistoryCap = 64

// Participant is a staked assessor record.
//
// Stake and reputation are mutated only while the owning store entry is
// locked; readers outside the engine always see a copy.
type Participant struct {
	// Identity
	Address   string           `json:"address"`   // Opaque unique participant id
	Class     ParticipantClass `json:"class"`     // Assessor tier
	Specialty string           `json:"specialty"` // Category/specialization tag, free-form

	// Stake and economics (integer micro-units)
	Stake uint64 `json:"stake"`

	// Reputation, always within [ReputationMin, ReputationMax]
	Reputation int               `json:"reputation"`
	History    []ReputationEvent `json:"history,omitempty"` // Recent reputation changes, bounded

	// Lifecycle
	Status        ParticipantStatus `json:"status"`
	Slashed       bool              `json:"slashed"` // Set once by a slash; guards double slashing
	RegisteredAt  time.Time         `json:"registered_at"`
	LastActiveAt  time.Time         `json:"last_active_at"`
	CooldownUntil *time.Time        `json:"cooldown_until,omitempty"` // Withdraw blocked until this instant

	// Fingerprints of submissions this participant has voted on.
	// Append-only; used for the pending-votes withdrawal check.
	Voted []string `json:"voted,omitempty"`
}

// VoteWeight maps reputation onto an aggregation weight: reputation/1000
// floored at floor. Higher-reputation participants pull the running score
// harder.
func (p *Participant) VoteWeight(floor float64) float64 {
	w := float64(p.Reputation) / float64(ReputationMax)
	if w < floor {
		return floor
	}
	return w
}

// Clone returns a deep copy safe to hand to callers.
func (p *Participant) Clone() *Participant {
	cp := *p
	if p.CooldownUntil != nil {
		t := *p.CooldownUntil
		cp.CooldownUntil = &t
	}
	cp.History = append([]ReputationEvent(nil), p.History...)
	cp.Voted = append([]string(nil), p.Voted...)
	return &cp
}
