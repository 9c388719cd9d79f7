// Package scoring holds the configurable tables behind the gamification
// engine: level thresholds, per-type job rewards, and the simulated
// processing cost. Values are injectable configuration, not runtime state.
package scoring

import (
	"time"

	"github.com/soundrise/creator-api/internal/domain/model"
)

// Reward is the credit issued for a completed job.
type Reward struct {
	Points       int64
	TimeSavedSec int64
}

// typeRates holds the per-minute reward rates for one job type.
type typeRates struct {
	pointsPerMinute int64
	// savedFactor estimates how many seconds of manual work one second of
	// processed input replaces.
	savedFactor int64
}

// Policy computes rewards, simulated processing delays, and levels.
// The zero value is not usable; construct via DefaultPolicy or NewPolicy.
type Policy struct {
	levelThresholds []int64
	rates           map[model.JobType]typeRates
	proMultiplier   int64
}

// PolicyConfig overrides parts of the default policy. Nil/empty fields keep
// the defaults.
type PolicyConfig struct {
	LevelThresholds []int64
	ProMultiplier   int64
}

// DefaultPolicy returns the shipped reward and level tables.
func DefaultPolicy() *Policy {
	return NewPolicy(PolicyConfig{})
}

// NewPolicy builds a Policy from config, falling back to defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	thresholds := cfg.LevelThresholds
	if len(thresholds) == 0 {
		// Strictly increasing; level = count of thresholds <= pointsTotal.
		thresholds = []int64{100, 300, 700, 1500, 3000, 6000, 12000, 25000, 50000, 100000}
	}
	mult := cfg.ProMultiplier
	if mult <= 0 {
		mult = 2
	}
	return &Policy{
		levelThresholds: thresholds,
		rates: map[model.JobType]typeRates{
			model.JobTypeEnhance:    {pointsPerMinute: 10, savedFactor: 4},
			model.JobTypeMaster:     {pointsPerMinute: 15, savedFactor: 6},
			model.JobTypeTranscribe: {pointsPerMinute: 12, savedFactor: 8},
			model.JobTypeStemSplit:  {pointsPerMinute: 20, savedFactor: 10},
		},
		proMultiplier: mult,
	}
}

// Level returns the level for a points total: the count of thresholds at or
// below it. Monotonically non-decreasing in points.
func (p *Policy) Level(points int64) int {
	level := 0
	for _, t := range p.levelThresholds {
		if points < t {
			break
		}
		level++
	}
	return level
}

// NextThreshold returns the points needed for the next level, or -1 when the
// user has reached the top of the table.
func (p *Policy) NextThreshold(points int64) int64 {
	for _, t := range p.levelThresholds {
		if points < t {
			return t
		}
	}
	return -1
}

// JobReward computes the deterministic credit for a completed job from its
// type, tier, and input duration. Pro tier multiplies points only; time
// saved reflects the work replaced regardless of tier.
func (p *Policy) JobReward(jobType model.JobType, tier model.Tier, inputDurationSec int) Reward {
	rates, ok := p.rates[jobType]
	if !ok || inputDurationSec <= 0 {
		return Reward{}
	}

	minutes := int64((inputDurationSec + 59) / 60)
	points := minutes * rates.pointsPerMinute
	if tier == model.TierPro {
		points *= p.proMultiplier
	}
	return Reward{
		Points:       points,
		TimeSavedSec: int64(inputDurationSec) * rates.savedFactor,
	}
}

// ProcessingDelay approximates real processing time for the simulated
// driver: a fixed spin-up plus a duration-proportional component, halved
// for pro tier. Clamped so tests and dev loops stay fast.
func (p *Policy) ProcessingDelay(jobType model.JobType, tier model.Tier, inputDurationSec int) time.Duration {
	base := 2 * time.Second
	proportional := time.Duration(inputDurationSec/30) * time.Second
	delay := base + proportional
	if tier == model.TierPro {
		delay /= 2
	}
	if delay > 45*time.Second {
		delay = 45 * time.Second
	}
	return delay
}

// ReferralPoints is the credit issued to a referrer when a referral
// completes.
const ReferralPoints int64 = 250

// CreationPoints is the credit issued for publishing a creation.
const CreationPoints int64 = 50
