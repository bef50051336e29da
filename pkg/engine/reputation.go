package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/events"
	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// Reputation applies bounded reputation deltas from validation outcomes.
// Scores never leave [models.ReputationMin, models.ReputationMax]; the
// recorded delta is the applied one after clamping.
type Reputation struct {
	log          *zap.Logger
	clock        func() time.Time
	participants *store.Participants
	events       *events.Publisher
}

// Update applies the outcome's fixed delta to the participant's reputation,
// clamps, and records a timestamped history event. Called once per voter by
// the aggregator's finalization step, and with OutcomeMalicious by
// administrative slashing.
func (r *Reputation) Update(ctx context.Context, addr string, outcome models.ReputationOutcome) (int, error) {
	switch outcome {
	case models.OutcomeParticipated, models.OutcomeCorrect, models.OutcomeIncorrect, models.OutcomeMalicious:
	default:
		return 0, fmt.Errorf("%w: unknown reputation outcome %q", ErrValidation, outcome)
	}

	entry, ok := r.participants.Get(addr)
	if !ok {
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}
	p := entry.Lock()
	if p.Status == "" {
		entry.Unlock()
		return 0, fmt.Errorf("%w: participant %s", ErrNotFound, addr)
	}

	prev := p.Reputation
	next := prev + outcome.Delta()
	if next > models.ReputationMax {
		next = models.ReputationMax
	}
	if next < models.ReputationMin {
		next = models.ReputationMin
	}
	now := r.clock()
	ev := models.ReputationEvent{
		Outcome: outcome,
		Delta:   next - prev,
		Score:   next,
		At:      now,
	}
	p.Reputation = next
	p.LastActiveAt = now
	p.History = append(p.History, ev)
	if len(p.History) > models.ReputationHistoryCap {
		p.History = p.History[len(p.History)-models.ReputationHistoryCap:]
	}
	entry.Unlock()

	r.log.Debug("reputation updated",
		zap.String("address", addr),
		zap.String("outcome", string(outcome)),
		zap.Int("from", prev),
		zap.Int("to", next))
	r.events.ReputationUpdated(ctx, addr, ev)

	return next, nil
}
