package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verinet-labs/verinetx/pkg/models"
)

// TestRegisterStakeMinimums verifies the class-tiered stake floors: below
// the minimum registration fails with the insufficient-stake error, at or
// above it succeeds.
func TestRegisterStakeMinimums(t *testing.T) {
	tests := []struct {
		name    string
		class   models.ParticipantClass
		stake   uint64
		wantErr error
	}{
		{
			name:    "automated below minimum",
			class:   models.ClassAutomated,
			stake:   999,
			wantErr: ErrInsufficientStake,
		},
		{
			name:  "automated at minimum",
			class: models.ClassAutomated,
			stake: 1000,
		},
		{
			name:  "automated above minimum",
			class: models.ClassAutomated,
			stake: 5000,
		},
		{
			name:    "community below minimum",
			class:   models.ClassCommunity,
			stake:   99,
			wantErr: ErrInsufficientStake,
		},
		{
			name:  "community at minimum",
			class: models.ClassCommunity,
			stake: 100,
		},
		{
			name:    "community stake does not satisfy automated tier",
			class:   models.ClassAutomated,
			stake:   100,
			wantErr: ErrInsufficientStake,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, DefaultConfig())
			p, err := e.Registry.Register("addr-1", tt.class, tt.stake, "tag")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.ParticipantActive, p.Status)
			assert.Equal(t, models.ReputationInitial, p.Reputation)
			assert.Equal(t, tt.stake, p.Stake)
			assert.Empty(t, p.Voted)
		})
	}
}

// TestRegisterDuplicate covers scenario A: a second registration of the same
// identity fails with the already-registered conflict.
func TestRegisterDuplicate(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	_, err := e.Registry.Register("addr-1", models.ClassAutomated, 1000, "ml")
	require.NoError(t, err)

	_, err = e.Registry.Register("addr-1", models.ClassAutomated, 1000, "ml")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	require.ErrorIs(t, err, ErrConflict)

	// Still registered while deactivated: stake is held until withdrawal.
	require.NoError(t, e.Registry.Deactivate("addr-1"))
	_, err = e.Registry.Register("addr-1", models.ClassAutomated, 1000, "ml")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

// TestRegisterAfterWithdrawal verifies a withdrawn record is reinitialized
// in place: fresh reputation and empty vote history, same address.
func TestRegisterAfterWithdrawal(t *testing.T) {
	e, clock := newTestEngine(t, DefaultConfig())

	_, err := e.Registry.Register("addr-1", models.ClassCommunity, 100, "general")
	require.NoError(t, err)
	require.NoError(t, e.Registry.Deactivate("addr-1"))
	clock.Advance(e.cfg.Cooldown + time.Minute)
	_, err = e.Ledger.Withdraw("addr-1")
	require.NoError(t, err)

	p, err := e.Registry.Register("addr-1", models.ClassAutomated, 2000, "ml")
	require.NoError(t, err)
	assert.Equal(t, models.ClassAutomated, p.Class)
	assert.Equal(t, models.ReputationInitial, p.Reputation)
	assert.Equal(t, uint64(2000), p.Stake)
}

func TestRegisterValidation(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	_, err := e.Registry.Register("", models.ClassAutomated, 1000, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.Registry.Register("addr-1", "mystery", 1000, "")
	require.ErrorIs(t, err, ErrValidation)
}

// TestDeactivateStartsCooldown verifies deactivation flips the status and
// stamps the cooldown deadline from the call-time clock.
func TestDeactivateStartsCooldown(t *testing.T) {
	e, clock := newTestEngine(t, DefaultConfig())

	_, err := e.Registry.Register("addr-1", models.ClassCommunity, 100, "")
	require.NoError(t, err)
	require.NoError(t, e.Registry.Deactivate("addr-1"))

	p, err := e.Registry.Info("addr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantDeactivated, p.Status)
	require.NotNil(t, p.CooldownUntil)
	assert.Equal(t, clock.Now().Add(e.cfg.Cooldown), *p.CooldownUntil)

	// Deactivating twice is rejected.
	err = e.Registry.Deactivate("addr-1")
	require.ErrorIs(t, err, ErrNotActiveParticipant)
}

func TestInfoUnknownParticipant(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	_, err := e.Registry.Info("nobody")
	require.ErrorIs(t, err, ErrNotFound)
}
