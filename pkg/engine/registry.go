package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// Registry owns the participant lifecycle: registration with a class-tiered
// stake minimum, deactivation into the withdrawal cooldown, and reads.
type Registry struct {
	cfg          Config
	log          *zap.Logger
	clock        func() time.Time
	participants *store.Participants
}

// Register creates an Active participant with the initial reputation and no
// vote history. The stake must meet the class minimum. Registering an
// address that already holds an active record fails; a withdrawn record is
// reinitialized in place (records are never deleted).
func (r *Registry) Register(addr string, class models.ParticipantClass, stake uint64, specialty string) (*models.Participant, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty participant address", ErrValidation)
	}
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown participant class %q", ErrValidation, class)
	}
	if min := r.cfg.minStake(class == models.ClassAutomated); stake < min {
		return nil, fmt.Errorf("%w: class %s requires at least %d, got %d",
			ErrInsufficientStake, class, min, stake)
	}

	entry, _ := r.participants.GetOrCreate(addr)
	p := entry.Lock()
	defer entry.Unlock()

	if p.Status == models.ParticipantActive || p.Status == models.ParticipantDeactivated {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, addr)
	}

	now := r.clock()
	p.Class = class
	p.Specialty = specialty
	p.Stake = stake
	p.Reputation = models.ReputationInitial
	p.History = nil
	p.Status = models.ParticipantActive
	p.Slashed = false
	p.RegisteredAt = now
	p.LastActiveAt = now
	p.CooldownUntil = nil
	p.Voted = nil

	r.log.Info("participant registered",
		zap.String("address", addr),
		zap.String("class", string(class)),
		zap.Uint64("stake", stake))

	return p.Clone(), nil
}

// Deactivate marks the participant inactive and starts the withdrawal
// cooldown window. Further votes and deposits are rejected from this point.
func (r *Registry) Deactivate(addr string) error {
	entry, ok := r.participants.Get(addr)
	if !ok {
		return fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Lock()
	defer entry.Unlock()

	if p.Status != models.ParticipantActive {
		return fmt.Errorf("%w: %s", ErrNotActiveParticipant, addr)
	}

	until := r.clock().Add(r.cfg.Cooldown)
	p.Status = models.ParticipantDeactivated
	p.CooldownUntil = &until

	r.log.Info("participant deactivated",
		zap.String("address", addr),
		zap.Time("cooldown_until", until))
	return nil
}

// Info returns a copy of the participant record.
func (r *Registry) Info(addr string) (*models.Participant, error) {
	entry, ok := r.participants.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Snapshot()
	if p.Status == "" {
		return nil, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	return p, nil
}
