package engine

import (
	"time"

	"github.com/verinet-labs/verinetx/pkg/utils"
)

// Config carries every tunable threshold in the engine. Zero values are not
// meaningful; construct with DefaultConfig or FromEnv.
type Config struct {
	// Stake minimums per class, integer micro-units.
	MinStakeAutomated uint64
	MinStakeCommunity uint64

	// Cooldown window after deactivation during which withdrawal is blocked.
	Cooldown time.Duration

	// Per-class vote minimums that trigger finalization. Both must be met.
	MinAutomatedVotes int
	MinCommunityVotes int

	// Outcome thresholds on the 0-100 final score scale.
	VerifiedThreshold float64
	RejectedThreshold float64

	// Floor for the reputation-derived vote weight.
	WeightFloor float64

	// Base rewards per class, integer micro-units.
	BaseRewardAutomated uint64
	BaseRewardCommunity uint64

	// Archive dispatch pool.
	ArchiveWorkers int

	// Flat amount debited from the community pool per community-funded
	// archive dispatch.
	ArchiveFundingCost uint64
}

func DefaultConfig() Config {
	return Config{
		MinStakeAutomated:   1000,
		MinStakeCommunity:   100,
		Cooldown:            72 * time.Hour,
		MinAutomatedVotes:   1,
		MinCommunityVotes:   1,
		VerifiedThreshold:   75,
		RejectedThreshold:   25,
		WeightFloor:         0.10,
		BaseRewardAutomated: 50,
		BaseRewardCommunity: 20,
		ArchiveWorkers:      4,
		ArchiveFundingCost:  10,
	}
}

// FromEnv builds a Config from environment variables, falling back to
// DefaultConfig values.
func FromEnv() Config {
	def := DefaultConfig()
	return Config{
		MinStakeAutomated:   utils.EnvUint64("MIN_STAKE_AUTOMATED", def.MinStakeAutomated),
		MinStakeCommunity:   utils.EnvUint64("MIN_STAKE_COMMUNITY", def.MinStakeCommunity),
		Cooldown:            utils.EnvDuration("WITHDRAW_COOLDOWN", def.Cooldown),
		MinAutomatedVotes:   utils.EnvInt("MIN_AUTOMATED_VOTES", def.MinAutomatedVotes),
		MinCommunityVotes:   utils.EnvInt("MIN_COMMUNITY_VOTES", def.MinCommunityVotes),
		VerifiedThreshold:   utils.EnvFloat("VERIFIED_THRESHOLD", def.VerifiedThreshold),
		RejectedThreshold:   utils.EnvFloat("REJECTED_THRESHOLD", def.RejectedThreshold),
		WeightFloor:         utils.EnvFloat("VOTE_WEIGHT_FLOOR", def.WeightFloor),
		BaseRewardAutomated: utils.EnvUint64("BASE_REWARD_AUTOMATED", def.BaseRewardAutomated),
		BaseRewardCommunity: utils.EnvUint64("BASE_REWARD_COMMUNITY", def.BaseRewardCommunity),
		ArchiveWorkers:      utils.EnvInt("ARCHIVE_WORKERS", def.ArchiveWorkers),
		ArchiveFundingCost:  utils.EnvUint64("ARCHIVE_FUNDING_COST", def.ArchiveFundingCost),
	}
}

// minStake returns the registration stake floor for the class.
func (c Config) minStake(automated bool) uint64 {
	if automated {
		return c.MinStakeAutomated
	}
	return c.MinStakeCommunity
}
