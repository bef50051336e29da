package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// TestRecordVoteLifecycle covers scenario B: intake in Submitted, first vote
// moves to Validating, the vote satisfying the per-class minimums finalizes
// with the reputation-weighted mean and the Verified classification.
func TestRecordVoteLifecycle(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	auto, community := registerPair(t, e)
	ctx := context.Background()

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)

	status, err := e.Submissions.Status("f1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, status.State)

	sub, err := e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(90, 95), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateValidating, sub.State)
	assert.InDelta(t, 90.0, sub.RunningScore, 1e-9)

	sub, err = e.Aggregator.RecordVote(ctx, "f1", community, models.BooleanVerdict(true), "ev-2")
	require.NoError(t, err)
	assert.Equal(t, models.StateFinalized, sub.State)
	require.NotNil(t, sub.FinalScore)
	// Both voters start at reputation 500, so equal weights: mean of 90 and 100.
	assert.InDelta(t, 95.0, *sub.FinalScore, 1e-9)
	assert.Equal(t, models.OutcomeVerified, sub.Outcome)

	// Finalization credited both voters as correct: 500 -> 510.
	for _, addr := range []string{auto, community} {
		p, perr := e.Registry.Info(addr)
		require.NoError(t, perr)
		assert.Equal(t, 510, p.Reputation, addr)
	}

	status, err = e.Submissions.Status("f1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.AutomatedVotes)
	assert.Equal(t, 1, status.CommunityVotes)
}

// TestRecordVoteDuplicate covers scenario C: one vote per participant per
// submission, enforced as a conflict.
func TestRecordVoteDuplicate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinCommunityVotes = 2 // keep f1 unfinalized after the first vote
	e, _ := newTestEngine(t, cfg)
	auto, _ := registerPair(t, e)
	ctx := context.Background()

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)

	_, err = e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(80, 90), "ev")
	require.NoError(t, err)

	_, err = e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(10, 90), "ev")
	require.ErrorIs(t, err, ErrDuplicateVote)
	require.ErrorIs(t, err, ErrConflict)
}

func TestRecordVoteRejections(t *testing.T) {
	cfg := DefaultConfig()
	e, _ := newTestEngine(t, cfg)
	auto, community := registerPair(t, e)
	ctx := context.Background()

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)

	t.Run("unknown submission", func(t *testing.T) {
		_, err := e.Aggregator.RecordVote(ctx, "missing", auto, models.ScoredVerdict(50, 50), "")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown participant", func(t *testing.T) {
		_, err := e.Aggregator.RecordVote(ctx, "f1", "stranger", models.BooleanVerdict(true), "")
		require.ErrorIs(t, err, ErrNotActiveParticipant)
		require.ErrorIs(t, err, ErrAuthorization)
	})

	t.Run("deactivated participant", func(t *testing.T) {
		_, err := e.Registry.Register("sleepy", models.ClassCommunity, 100, "")
		require.NoError(t, err)
		require.NoError(t, e.Registry.Deactivate("sleepy"))
		_, err = e.Aggregator.RecordVote(ctx, "f1", "sleepy", models.BooleanVerdict(true), "")
		require.ErrorIs(t, err, ErrNotActiveParticipant)
	})

	t.Run("class verdict mismatch", func(t *testing.T) {
		_, err := e.Aggregator.RecordVote(ctx, "f1", auto, models.BooleanVerdict(true), "")
		require.ErrorIs(t, err, ErrValidation)
		_, err = e.Aggregator.RecordVote(ctx, "f1", community, models.ScoredVerdict(50, 50), "")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("vote after finalization", func(t *testing.T) {
		_, err := e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(90, 95), "")
		require.NoError(t, err)
		sub, err := e.Aggregator.RecordVote(ctx, "f1", community, models.BooleanVerdict(true), "")
		require.NoError(t, err)
		require.Equal(t, models.StateFinalized, sub.State)

		_, err = e.Registry.Register("late", models.ClassCommunity, 100, "")
		require.NoError(t, err)
		_, err = e.Aggregator.RecordVote(ctx, "f1", "late", models.BooleanVerdict(false), "")
		require.ErrorIs(t, err, ErrAlreadyFinalized)
	})
}

// TestWeightedScore verifies the reputation weighting: a floored low-weight
// voter moves the aggregate less than a high-reputation one.
func TestWeightedScore(t *testing.T) {
	votes := []models.VoteRecord{
		{Normalized: 100, Weight: 0.9},
		{Normalized: 0, Weight: 0.1},
	}
	assert.InDelta(t, 90.0, weightedScore(votes), 1e-9)
	assert.Zero(t, weightedScore(nil))
}

// TestFinalizationOutcomes drives final scores into each classification
// band and checks the resulting reputation deltas per voter.
func TestFinalizationOutcomes(t *testing.T) {
	tests := []struct {
		name          string
		autoScore     uint8
		communityVote bool
		wantOutcome   models.Outcome
		wantAutoRep   int // reputation after finalization, from 500
		wantCommRep   int
	}{
		{
			name:          "verified, both correct",
			autoScore:     90,
			communityVote: true,
			wantOutcome:   models.OutcomeVerified,
			wantAutoRep:   510,
			wantCommRep:   510,
		},
		{
			name:          "rejected, both correct",
			autoScore:     10,
			communityVote: false,
			wantOutcome:   models.OutcomeRejected,
			wantAutoRep:   510,
			wantCommRep:   510,
		},
		{
			name:          "uncertain, participation only",
			autoScore:     90,
			communityVote: false,
			wantOutcome:   models.OutcomeUncertain,
			wantAutoRep:   501,
			wantCommRep:   501,
		},
		{
			name:          "rejected, dissenting automated vote penalized",
			autoScore:     40,
			communityVote: false,
			wantOutcome:   models.OutcomeRejected,
			wantAutoRep:   495,
			wantCommRep:   510,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, DefaultConfig())
			auto, community := registerPair(t, e)
			ctx := context.Background()

			_, err := e.Submissions.Submit("f1", "submitter-1", "media")
			require.NoError(t, err)
			_, err = e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(tt.autoScore, 90), "")
			require.NoError(t, err)
			sub, err := e.Aggregator.RecordVote(ctx, "f1", community, models.BooleanVerdict(tt.communityVote), "")
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, sub.Outcome)
			p, _ := e.Registry.Info(auto)
			assert.Equal(t, tt.wantAutoRep, p.Reputation)
			p, _ = e.Registry.Info(community)
			assert.Equal(t, tt.wantCommRep, p.Reputation)
		})
	}
}

// TestConcurrentVoting hammers one submission from many goroutines and
// checks the serialization guarantees: every recorded vote is unique,
// exactly one writer performs the finalization, and votes arriving after it
// fail with the already-finalized conflict.
func TestConcurrentVoting(t *testing.T) {
	const voters = 24

	cfg := DefaultConfig()
	cfg.MinAutomatedVotes = 1
	cfg.MinCommunityVotes = 10
	e, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)

	auto := "auto-0"
	_, err = e.Registry.Register(auto, models.ClassAutomated, cfg.MinStakeAutomated, "")
	require.NoError(t, err)
	_, err = e.Aggregator.RecordVote(ctx, "f1", auto, models.ScoredVerdict(90, 95), "")
	require.NoError(t, err)

	addrs := make([]string, voters)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("community-%d", i)
		_, err := e.Registry.Register(addrs[i], models.ClassCommunity, cfg.MinStakeCommunity, "")
		require.NoError(t, err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		tooLate   int
	)
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			_, err := e.Aggregator.RecordVote(ctx, "f1", addr, models.BooleanVerdict(true), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrAlreadyFinalized):
				tooLate++
			}
		}(addr)
	}
	wg.Wait()

	assert.Equal(t, voters, succeeded+tooLate)
	assert.Equal(t, cfg.MinCommunityVotes, succeeded)

	sub, err := e.Submissions.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFinalized, sub.State)
	assert.Len(t, sub.Votes, succeeded+1)

	seen := map[string]bool{}
	for _, v := range sub.Votes {
		assert.False(t, seen[v.Voter], "duplicate vote from %s", v.Voter)
		seen[v.Voter] = true
	}
}

// TestConcurrentDuplicateVote races one participant casting the same vote
// from many goroutines: exactly one may land.
func TestConcurrentDuplicateVote(t *testing.T) {
	const attempts = 16

	cfg := DefaultConfig()
	cfg.MinCommunityVotes = 5 // far from finalizing
	e, _ := newTestEngine(t, cfg)
	_, community := registerPair(t, e)
	ctx := context.Background()

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Aggregator.RecordVote(ctx, "f1", community, models.BooleanVerdict(true), "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrDuplicateVote)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	sub, err := e.Submissions.Get("f1")
	require.NoError(t, err)
	assert.Len(t, sub.Votes, 1)
}

func TestSubmitDuplicate(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	_, err := e.Submissions.Submit("f1", "submitter-1", "media")
	require.NoError(t, err)
	_, err = e.Submissions.Submit("f1", "submitter-2", "media")
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	require.ErrorIs(t, err, ErrConflict)
}
