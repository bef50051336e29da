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

// Aggregator records votes and folds them into the running trust score.
//
// All vote recording for one fingerprint is serialized on the submission
// entry lock, making the duplicate-vote check, the score update, and the
// finalization decision a single atomic step. Finalization is first writer
// wins: the vote that satisfies the last per-class minimum performs the
// Validating -> Finalized transition under the lock, and every later
// RecordVote observes Finalized and fails with ErrAlreadyFinalized.
//
// Lock order is submission -> participant, always. Reputation side effects
// run after the submission lock is released.
type Aggregator struct {
	cfg          Config
	log          *zap.Logger
	clock        func() time.Time
	participants *store.Participants
	submissions  *store.Submissions
	reputation   *Reputation
	events       *events.Publisher

	// onFinalized, when set, runs after the finalization side effects with
	// a copy of the finalized record. The engine facade uses it for
	// auto-archive dispatch.
	onFinalized func(ctx context.Context, sub *models.Submission)
}

// pendingUpdate is a reputation side effect decided at finalization and
// applied after the submission lock is released.
type pendingUpdate struct {
	addr    string
	outcome models.ReputationOutcome
}

// RecordVote appends one verdict from one participant to the submission and
// recomputes the reputation-weighted running score. If the vote satisfies
// the per-class minimums it finalizes the submission, classifies the
// outcome, and triggers reputation updates for every voter.
func (a *Aggregator) RecordVote(ctx context.Context, fingerprint, voter string, verdict models.Verdict, evidenceRef string) (*models.Submission, error) {
	if fingerprint == "" || voter == "" {
		return nil, fmt.Errorf("%w: fingerprint and voter are required", ErrValidation)
	}

	subEntry, ok := a.submissions.Get(fingerprint)
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, fingerprint)
	}
	pEntry, ok := a.participants.Get(voter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotActiveParticipant, voter)
	}

	var (
		finalized bool
		updates   []pendingUpdate
		snapshot  *models.Submission
	)

	sub := subEntry.Lock()
	err := func() error {
		if sub.State == models.StateFinalized {
			return fmt.Errorf("%w: %s", ErrAlreadyFinalized, fingerprint)
		}
		if sub.HasVoteFrom(voter) {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateVote, voter, fingerprint)
		}

		// Participant lock nested under the submission lock; the weight is
		// the voter's reputation at cast time.
		p := pEntry.Lock()
		if p.Status != models.ParticipantActive {
			pEntry.Unlock()
			return fmt.Errorf("%w: %s", ErrNotActiveParticipant, voter)
		}
		class := p.Class
		weight := p.VoteWeight(a.cfg.WeightFloor)
		normalized, nerr := verdict.Normalize(class)
		if nerr != nil {
			pEntry.Unlock()
			return fmt.Errorf("%w: %v", ErrValidation, nerr)
		}
		now := a.clock()
		p.LastActiveAt = now
		p.Voted = append(p.Voted, fingerprint)
		pEntry.Unlock()

		sub.Votes = append(sub.Votes, models.VoteRecord{
			Voter:      voter,
			Class:      class,
			Verdict:    verdict,
			Normalized: normalized,
			Weight:     weight,
			Evidence:   evidenceRef,
			CastAt:     now,
		})
		if sub.State == models.StateSubmitted {
			sub.State = models.StateValidating
		}
		sub.RunningScore = weightedScore(sub.Votes)

		auto, community := sub.VoteCounts()
		if auto >= a.cfg.MinAutomatedVotes && community >= a.cfg.MinCommunityVotes {
			final := sub.RunningScore
			sub.State = models.StateFinalized
			sub.FinalScore = &final
			sub.Outcome = models.ClassifyScore(final, a.cfg.VerifiedThreshold, a.cfg.RejectedThreshold)
			sub.FinalizedAt = &now
			finalized = true
			for i := range sub.Votes {
				updates = append(updates, pendingUpdate{
					addr:    sub.Votes[i].Voter,
					outcome: a.voteOutcome(sub.Outcome, sub.Votes[i].Normalized),
				})
			}
		}
		snapshot = sub.Clone()
		return nil
	}()
	subEntry.Unlock()
	if err != nil {
		return nil, err
	}

	if finalized {
		a.log.Info("submission finalized",
			zap.String("fingerprint", fingerprint),
			zap.Float64("final_score", *snapshot.FinalScore),
			zap.String("outcome", string(snapshot.Outcome)),
			zap.Int("votes", len(snapshot.Votes)))
		a.events.Finalized(ctx, snapshot)
		for _, u := range updates {
			if _, uerr := a.reputation.Update(ctx, u.addr, u.outcome); uerr != nil {
				a.log.Warn("reputation update failed",
					zap.String("address", u.addr),
					zap.Error(uerr))
			}
		}
		if a.onFinalized != nil {
			a.onFinalized(ctx, snapshot)
		}
	} else {
		a.log.Debug("vote recorded",
			zap.String("fingerprint", fingerprint),
			zap.String("voter", voter),
			zap.Float64("running_score", snapshot.RunningScore))
	}

	return snapshot, nil
}

// voteOutcome grades one voter's normalized verdict against the final
// classification. Uncertain finalizations credit participation only.
func (a *Aggregator) voteOutcome(final models.Outcome, normalized float64) models.ReputationOutcome {
	switch final {
	case models.OutcomeVerified:
		if normalized >= a.cfg.VerifiedThreshold {
			return models.OutcomeCorrect
		}
		return models.OutcomeIncorrect
	case models.OutcomeRejected:
		if normalized <= a.cfg.RejectedThreshold {
			return models.OutcomeCorrect
		}
		return models.OutcomeIncorrect
	default:
		return models.OutcomeParticipated
	}
}

// weightedScore is the reputation-weighted mean of the normalized verdicts.
func weightedScore(votes []models.VoteRecord) float64 {
	var num, den float64
	for i := range votes {
		num += votes[i].Weight * votes[i].Normalized
		den += votes[i].Weight
	}
	if den == 0 {
		return 0
	}
	return num / den
}
