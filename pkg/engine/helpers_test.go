package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// fakeClock is a manually advanced time source shared by an engine under
// test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeArchiver records archive requests for assertions.
type fakeArchiver struct {
	mu    sync.Mutex
	calls []archiveCall
	err   error
}

type archiveCall struct {
	fingerprint     string
	duration        time.Duration
	communityFunded bool
}

func (a *fakeArchiver) Archive(_ context.Context, fingerprint string, duration time.Duration, communityFunded bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.calls = append(a.calls, archiveCall{fingerprint, duration, communityFunded})
	return "cid-" + fingerprint, nil
}

func (a *fakeArchiver) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	e := New(cfg, zap.NewNop(), opts...)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e, clock
}

// registerPair registers one automated and one community assessor at the
// class stake minimums.
func registerPair(t *testing.T, e *Engine) (auto, community string) {
	t.Helper()
	auto, community = "assessor-auto", "assessor-community"
	_, err := e.Registry.Register(auto, models.ClassAutomated, e.cfg.MinStakeAutomated, "ml-v2")
	require.NoError(t, err)
	_, err = e.Registry.Register(community, models.ClassCommunity, e.cfg.MinStakeCommunity, "general")
	require.NoError(t, err)
	return auto, community
}
