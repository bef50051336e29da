package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// Ledger owns stake mutation: deposits, the time-locked withdrawal, and
// slashing. Reward computation is a pure read.
type Ledger struct {
	cfg          Config
	log          *zap.Logger
	clock        func() time.Time
	participants *store.Participants
	submissions  *store.Submissions
}

// Deposit increases the participant's stake. Permitted only while active.
func (l *Ledger) Deposit(addr string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: deposit amount must be positive", ErrValidation)
	}
	entry, ok := l.participants.Get(addr)
	if !ok {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Lock()
	defer entry.Unlock()
	if p.Status != models.ParticipantActive {
		return 0, fmt.Errorf("%w: %s", ErrNotActiveParticipant, addr)
	}
	p.Stake += amount
	l.log.Info("stake deposited",
		zap.String("address", addr),
		zap.Uint64("amount", amount),
		zap.Uint64("stake", p.Stake))
	return p.Stake, nil
}

// Withdraw zeroes the participant's stake and marks the record withdrawn.
// The participant must have deactivated, the cooldown window must have
// elapsed, and no vote may remain on an unfinalized submission.
// Returns the withdrawn amount.
func (l *Ledger) Withdraw(addr string) (uint64, error) {
	entry, ok := l.participants.Get(addr)
	if !ok {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Lock()
	defer entry.Unlock()

	if err := l.withdrawable(l.clock(), p, l.pendingVotes(p)); err != nil {
		return 0, err
	}

	amount := p.Stake
	p.Stake = 0
	p.Status = models.ParticipantWithdrawn
	p.CooldownUntil = nil

	l.log.Info("stake withdrawn",
		zap.String("address", addr),
		zap.Uint64("amount", amount))
	return amount, nil
}

// withdrawable is the single predicate deciding withdrawal eligibility over
// (now, record state, outstanding unfinalized votes).
func (l *Ledger) withdrawable(now time.Time, p *models.Participant, pending int) error {
	switch p.Status {
	case models.ParticipantActive:
		return fmt.Errorf("%w: participant must deactivate before withdrawing", ErrValidation)
	case models.ParticipantWithdrawn:
		return fmt.Errorf("%w: stake already withdrawn", ErrConflict)
	case models.ParticipantDeactivated:
	default:
		return fmt.Errorf("%w: participant %s", ErrNotFound, p.Address)
	}
	if p.CooldownUntil != nil && now.Before(*p.CooldownUntil) {
		return fmt.Errorf("%w: until %s", ErrCooldownActive, p.CooldownUntil.Format(time.RFC3339))
	}
	if pending > 0 {
		return fmt.Errorf("%w: %d votes on unfinalized submissions", ErrPendingVotes, pending)
	}
	return nil
}

// pendingVotes counts the participant's votes on submissions that have not
// finalized. Reads the lock-free lifecycle mirror, so it is safe while
// holding the participant lock.
func (l *Ledger) pendingVotes(p *models.Participant) int {
	pending := 0
	for _, fp := range p.Voted {
		if state, ok := l.submissions.StateOf(fp); ok && state != models.StateFinalized {
			pending++
		}
	}
	return pending
}

// Slash reduces the participant's stake by amount, floored at zero. A record
// can be slashed once; the flag makes double slashing a rejected conflict.
func (l *Ledger) Slash(addr string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: slash amount must be positive", ErrValidation)
	}
	entry, ok := l.participants.Get(addr)
	if !ok {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Lock()
	defer entry.Unlock()
	if p.Status == "" {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	if p.Slashed {
		return 0, fmt.Errorf("%w: %s", ErrAlreadySlashed, addr)
	}
	if amount > p.Stake {
		amount = p.Stake
	}
	p.Stake -= amount
	p.Slashed = true

	l.log.Warn("stake slashed",
		zap.String("address", addr),
		zap.Uint64("amount", amount),
		zap.Uint64("stake", p.Stake))
	return p.Stake, nil
}

// Reward multipliers in basis points.
const (
	rewardMultBase     = 10000
	rewardMultModerate = 12000
	rewardMultBoosted  = 15000
	repMultModerate    = 12500
	repMultBoosted     = 15000
)

// ComputeReward returns the reward owed for a validation at the given
// confidence: base reward by class, boosted by confidence and by the
// participant's current reputation. Pure read; the reward-settlement
// collaborator performs the actual transfer.
func (l *Ledger) ComputeReward(addr string, confidence uint8) (uint64, error) {
	if confidence > 100 {
		return 0, fmt.Errorf("%w: confidence %d out of range [0,100]", ErrValidation, confidence)
	}
	entry, ok := l.participants.Get(addr)
	if !ok {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Snapshot()
	if p.Status == "" {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}

	base := l.cfg.BaseRewardCommunity
	if p.Class == models.ClassAutomated {
		base = l.cfg.BaseRewardAutomated
	}

	confMult := uint64(rewardMultBase)
	switch {
	case confidence >= 90:
		confMult = rewardMultBoosted
	case confidence >= 75:
		confMult = rewardMultModerate
	}

	repMult := uint64(rewardMultBase)
	switch {
	case p.Reputation >= 800:
		repMult = repMultBoosted
	case p.Reputation >= 600:
		repMult = repMultModerate
	}

	return base * confMult * repMult / (rewardMultBase * rewardMultBase), nil
}
