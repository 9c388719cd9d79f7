package metrics

import (
	"time"

	"github.com/soundrise/creator-api/internal/observability/statsd"
)

// LeaderboardMetric captures one leaderboard view computation.
type LeaderboardMetric struct {
	Type     string
	Period   string
	Rows     int
	Duration time.Duration
}

// EmitLeaderboardRecompute emits metrics for one cache miss recompute.
func EmitLeaderboardRecompute(sink statsd.Sink, in LeaderboardMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"board_type": in.Type,
		"period":     in.Period,
	}
	sink.Count("leaderboard.recompute", 1, tags)
	sink.Gauge("leaderboard.rows", float64(in.Rows), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("leaderboard.recompute_duration", in.Duration, CloneTags(tags))
	}
}

// EmitRateLimitDenied counts one rejected request per action class.
func EmitRateLimitDenied(sink statsd.Sink, action string) {
	if sink == nil {
		return
	}
	sink.Count("ratelimit.denied", 1, map[string]string{"action": action})
}
