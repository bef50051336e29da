package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// Archiver is the storage collaborator invoked after the gate returns an
// eligible decision. The engine never performs storage I/O itself.
type Archiver interface {
	Archive(ctx context.Context, fingerprint string, durationHint time.Duration, communityFunded bool) (contentID string, err error)
}

// Decision is the gate's verdict on a finalized submission.
type Decision struct {
	Eligible    bool                 `json:"eligible"`
	Reason      string               `json:"reason,omitempty"` // Set when not eligible
	Fingerprint string               `json:"fingerprint"`
	FinalScore  float64              `json:"final_score"`
	Reputation  int                  `json:"reputation"` // Originator reputation checked
	Policy      models.ArchivePolicy `json:"policy"`
}

// Gate evaluates finalized submissions against the archive policy table. It
// is a pure, repeatable function of the final score, the originator
// reputation, and the policy row; it performs no I/O.
type Gate struct {
	log          *zap.Logger
	participants *store.Participants
	submissions  *store.Submissions
	policies     *store.Policies
}

// Evaluate decides archive eligibility for the submission under the policy
// row configured for its content class. The originator reputation is the
// submitter's when the submitter is a registered participant, otherwise the
// highest reputation among the validating participants.
func (g *Gate) Evaluate(fingerprint string) (*Decision, error) {
	entry, ok := g.submissions.Get(fingerprint)
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, fingerprint)
	}
	sub := entry.Snapshot()
	if sub.State != models.StateFinalized || sub.FinalScore == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFinalized, fingerprint, sub.State)
	}
	policy, ok := g.policies.Get(sub.ContentClass)
	if !ok {
		return nil, fmt.Errorf("%w: no archive policy for content class %q", ErrNotFound, sub.ContentClass)
	}

	decision := &Decision{
		Fingerprint: fingerprint,
		FinalScore:  *sub.FinalScore,
		Reputation:  g.originatorReputation(sub),
		Policy:      policy,
	}
	switch {
	case decision.FinalScore < policy.MinValidationScore:
		decision.Reason = fmt.Sprintf("final score %.1f below policy minimum %.1f",
			decision.FinalScore, policy.MinValidationScore)
	case decision.Reputation < policy.MinReputation:
		decision.Reason = fmt.Sprintf("originator reputation %d below policy minimum %d",
			decision.Reputation, policy.MinReputation)
	default:
		decision.Eligible = true
	}

	g.log.Debug("archive eligibility evaluated",
		zap.String("fingerprint", fingerprint),
		zap.Bool("eligible", decision.Eligible),
		zap.String("reason", decision.Reason))
	return decision, nil
}

// originatorReputation resolves the reputation the policy threshold applies
// to: the submitter's when registered, else the best validating voter's.
func (g *Gate) originatorReputation(sub *models.Submission) int {
	if entry, ok := g.participants.Get(sub.Submitter); ok {
		if p := entry.Snapshot(); p.Status != "" {
			return p.Reputation
		}
	}
	best := 0
	for i := range sub.Votes {
		entry, ok := g.participants.Get(sub.Votes[i].Voter)
		if !ok {
			continue
		}
		if p := entry.Snapshot(); p.Reputation > best {
			best = p.Reputation
		}
	}
	return best
}
