package http

import "testing"

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	metrics := &securityMetrics{}

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1", metrics) {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if rl.allow("10.0.0.1", metrics) {
		t.Fatalf("request 61 should be limited")
	}
	if metrics.rateLimitHits != 1 {
		t.Fatalf("expected 1 recorded hit, got %d", metrics.rateLimitHits)
	}

	// Another client is unaffected.
	if !rl.allow("10.0.0.2", metrics) {
		t.Fatalf("different client should not be limited")
	}
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := newRateLimiter()
	rl.stop()
	rl.stop() // must not panic
}
