package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/events"
	"github.com/verinet-labs/verinetx/pkg/models"
	"github.com/verinet-labs/verinetx/pkg/store"
)

// archiveTimeout bounds one storage collaborator call from the dispatch pool.
const archiveTimeout = 30 * time.Second

// Engine wires the verification components over shared in-memory stores.
// All operations are synchronous; the only background work is auto-archive
// dispatch to the storage collaborator, which runs on a bounded pool.
type Engine struct {
	cfg   Config
	log   *zap.Logger
	clock func() time.Time

	participants *store.Participants
	submissions  *store.Submissions
	policies     *store.Policies
	pool         *store.CommunityPool

	Registry    *Registry
	Submissions *Submissions
	Aggregator  *Aggregator
	Ledger      *Ledger
	Reputation  *Reputation
	Gate        *Gate

	archiver    Archiver
	events      *events.Publisher
	archivePool pond.Pool
	closeOnce   sync.Once
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithArchiver installs the storage collaborator used for auto-archive
// dispatch. Without it, eligible finalizations are logged and skipped.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithEvents installs the stream event publisher. Nil disables publishing.
func WithEvents(p *events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithClock overrides the time source. Used by tests to step through
// cooldown windows.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New builds an engine from the config. Call Close when done to drain the
// archive dispatch pool.
func New(cfg Config, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:          cfg,
		log:          log,
		clock:        time.Now,
		participants: store.NewParticipants(),
		submissions:  store.NewSubmissions(),
		policies:     store.NewPolicies(),
		pool:         store.NewCommunityPool(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Registry = &Registry{cfg: cfg, log: log, clock: e.clock, participants: e.participants}
	e.Submissions = &Submissions{log: log, clock: e.clock, submissions: e.submissions}
	e.Reputation = &Reputation{log: log, clock: e.clock, participants: e.participants, events: e.events}
	e.Ledger = &Ledger{cfg: cfg, log: log, clock: e.clock, participants: e.participants, submissions: e.submissions}
	e.Gate = &Gate{log: log, participants: e.participants, submissions: e.submissions, policies: e.policies}
	e.Aggregator = &Aggregator{
		cfg:          cfg,
		log:          log,
		clock:        e.clock,
		participants: e.participants,
		submissions:  e.submissions,
		reputation:   e.Reputation,
		events:       e.events,
		onFinalized:  e.autoArchive,
	}

	workers := cfg.ArchiveWorkers
	if workers <= 0 {
		workers = 1
	}
	e.archivePool = pond.NewPool(workers)
	return e
}

// Close drains pending archive dispatches and releases the event publisher.
// Safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.archivePool.StopAndWait()
		err = e.events.Close()
	})
	return err
}

// SetPolicy installs or replaces the archive policy row for its content
// class. Administrative operation.
func (e *Engine) SetPolicy(p models.ArchivePolicy) error {
	if p.ContentClass == "" {
		return fmt.Errorf("%w: policy content class is required", ErrValidation)
	}
	if p.MinValidationScore < 0 || p.MinValidationScore > 100 {
		return fmt.Errorf("%w: min validation score %.1f out of range [0,100]", ErrValidation, p.MinValidationScore)
	}
	if p.MinReputation < models.ReputationMin || p.MinReputation > models.ReputationMax {
		return fmt.Errorf("%w: min reputation %d out of range [%d,%d]",
			ErrValidation, p.MinReputation, models.ReputationMin, models.ReputationMax)
	}
	e.policies.Set(p)
	e.log.Info("archive policy set",
		zap.String("content_class", p.ContentClass),
		zap.Float64("min_score", p.MinValidationScore),
		zap.Int("min_reputation", p.MinReputation),
		zap.Bool("auto_archive", p.AutoArchive))
	return nil
}

// FundPool credits the community archival pool.
func (e *Engine) FundPool(amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: funding amount must be positive", ErrValidation)
	}
	balance := e.pool.Fund(amount)
	e.log.Info("community pool funded",
		zap.Uint64("amount", amount),
		zap.Uint64("balance", balance))
	return balance, nil
}

// PoolBalance returns the community pool balance.
func (e *Engine) PoolBalance() uint64 {
	return e.pool.Balance()
}

// SlashParticipant is the administrative response to detected malicious
// validation: it reduces the stake and applies the malicious reputation
// penalty in one call.
func (e *Engine) SlashParticipant(ctx context.Context, addr string, amount uint64) error {
	if _, err := e.Ledger.Slash(addr, amount); err != nil {
		return err
	}
	if _, err := e.Reputation.Update(ctx, addr, models.OutcomeMalicious); err != nil {
		return err
	}
	return nil
}

// autoArchive runs after finalization. Verified submissions whose content
// class policy requests auto-archival are evaluated by the gate and, when
// eligible, handed to the storage collaborator on the dispatch pool.
func (e *Engine) autoArchive(_ context.Context, sub *models.Submission) {
	if sub.Outcome != models.OutcomeVerified {
		return
	}
	policy, ok := e.policies.Get(sub.ContentClass)
	if !ok || !policy.AutoArchive {
		return
	}
	decision, err := e.Gate.Evaluate(sub.Fingerprint)
	if err != nil {
		e.log.Warn("auto-archive evaluation failed",
			zap.String("fingerprint", sub.Fingerprint),
			zap.Error(err))
		return
	}
	if !decision.Eligible {
		e.log.Info("auto-archive skipped",
			zap.String("fingerprint", sub.Fingerprint),
			zap.String("reason", decision.Reason))
		return
	}
	if e.archiver == nil {
		e.log.Debug("no archiver configured, skipping dispatch",
			zap.String("fingerprint", sub.Fingerprint))
		return
	}
	e.archivePool.Submit(func() {
		e.dispatchArchive(decision)
	})
}

// dispatchArchive invokes the storage collaborator for one eligible
// decision. Community-funded policies debit the pool first; an empty pool
// cancels the dispatch.
func (e *Engine) dispatchArchive(decision *Decision) {
	if decision.Policy.CommunityFunded {
		if _, err := e.pool.Debit(e.cfg.ArchiveFundingCost); err != nil {
			e.log.Warn("community pool cannot fund archival",
				zap.String("fingerprint", decision.Fingerprint),
				zap.Uint64("cost", e.cfg.ArchiveFundingCost),
				zap.Error(err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	contentID, err := e.archiver.Archive(ctx, decision.Fingerprint, decision.Policy.StorageDuration, decision.Policy.CommunityFunded)
	if err != nil {
		e.log.Warn("archive dispatch failed",
			zap.String("fingerprint", decision.Fingerprint),
			zap.Error(err))
		return
	}
	e.log.Info("submission archived",
		zap.String("fingerprint", decision.Fingerprint),
		zap.String("content_id", contentID),
		zap.Duration("duration", decision.Policy.StorageDuration))
	e.events.Archived(ctx, decision.Fingerprint, contentID)
}
