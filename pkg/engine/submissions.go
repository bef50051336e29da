package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// Submissions owns content item intake and lifecycle reads. Vote recording
// and finalization live in the Aggregator.
type Submissions struct {
	log         *zap.Logger
	clock       func() time.Time
	submissions *store.Submissions
}

// SubmissionStatus is the read model returned by Status.
type SubmissionStatus struct {
	Fingerprint    string                 `json:"fingerprint"`
	ContentClass   string                 `json:"content_class"`
	State          models.SubmissionState `json:"state"`
	RunningScore   float64                `json:"running_score"`
	FinalScore     *float64               `json:"final_score,omitempty"`
	Outcome        models.Outcome         `json:"outcome,omitempty"`
	AutomatedVotes int                    `json:"automated_votes"`
	CommunityVotes int                    `json:"community_votes"`
}

// Submit registers a new content item under its fingerprint. The fingerprint
// is immutable and unique; resubmitting the same content fails.
func (s *Submissions) Submit(fingerprint, submitter, contentClass string) (*models.Submission, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", ErrValidation)
	}
	if submitter == "" {
		return nil, fmt.Errorf("%w: empty submitter", ErrValidation)
	}

	sub := &models.Submission{
		Fingerprint:  fingerprint,
		Submitter:    submitter,
		ContentClass: contentClass,
		CreatedAt:    s.clock(),
		State:        models.StateSubmitted,
	}
	if !s.submissions.Create(sub) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubmission, fingerprint)
	}

	s.log.Info("submission accepted",
		zap.String("fingerprint", fingerprint),
		zap.String("submitter", submitter),
		zap.String("content_class", contentClass))

	return sub.Clone(), nil
}

// Status returns the lifecycle state, scores, and per-class vote tally.
func (s *Submissions) Status(fingerprint string) (*SubmissionStatus, error) {
	entry, ok := s.submissions.Get(fingerprint)
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, fingerprint)
	}
	sub := entry.Snapshot()
	auto, community := sub.VoteCounts()
	return &SubmissionStatus{
		Fingerprint:    sub.Fingerprint,
		ContentClass:   sub.ContentClass,
		State:          sub.State,
		RunningScore:   sub.RunningScore,
		FinalScore:     sub.FinalScore,
		Outcome:        sub.Outcome,
		AutomatedVotes: auto,
		CommunityVotes: community,
	}, nil
}

// Get returns a copy of the full submission record, votes included.
func (s *Submissions) Get(fingerprint string) (*models.Submission, error) {
	entry, ok := s.submissions.Get(fingerprint)
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, fingerprint)
	}
	return entry.Snapshot(), nil
}
