package types

// Completion policy. The metric that counts toward completion depends on the
// video source: a Drive embed always reports position 0, so accumulated
// watch time stands in for the playback position there. This is the only
// place that decision lives; heartbeat ingestion and every analytics/export
// view call through here.

// CompletionMetric returns the measurement compared against the 90%
// threshold for the given source.
func CompletionMetric(source string, p *VideoProgress) int {
	if source == SourceDrive {
		return p.WatchTimeSeconds
	}
	return p.MaxPosition
}

// CompletionReached reports whether the record qualifies as completed:
// duration is known and the metric covers at least 90% of it. Integer math
// keeps the threshold exact (metric 90 on duration 100 qualifies, 89 does
// not).
func CompletionReached(source string, durationSeconds int, p *VideoProgress) bool {
	if durationSeconds <= 0 {
		return false
	}
	return 10*CompletionMetric(source, p) >= 9*durationSeconds
}

// CompletionPercent is the metric as a percentage of duration, rounded and
// clamped to [0,100]. A zero duration always yields 0.
func CompletionPercent(source string, durationSeconds int, p *VideoProgress) int {
	if durationSeconds <= 0 {
		return 0
	}
	metric := CompletionMetric(source, p)
	if metric <= 0 {
		return 0
	}
	pct := (100*metric + durationSeconds/2) / durationSeconds
	if pct > 100 {
		return 100
	}
	return pct
}
