package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedTimeDifference is the default replay window.
const DefaultAllowedTimeDifference = 600000 * time.Millisecond

// IsFresh reports whether a claimed millisecond timestamp lies within window of now.
// The check is symmetric, so clock skew in either direction is tolerated.
func IsFresh(claimedMillis, nowMillis, windowMillis int64) bool {
	if windowMillis < 0 {
		return false
	}
	// Bounds saturate so timestamps near the int64 limits cannot wrap into the window.
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if nowMillis >= math.MinInt64+windowMillis {
		lo = nowMillis - windowMillis
	}
	if nowMillis <= math.MaxInt64-windowMillis {
		hi = nowMillis + windowMillis
	}
	return claimedMillis >= lo && claimedMillis <= hi
}

// ReplayGuard rejects requests whose timestamp is outside the allowed window.
type ReplayGuard struct {
	window time.Duration
	now    func() time.Time
}

// NewReplayGuard creates a ReplayGuard. A non-positive window selects the default.
func NewReplayGuard(window time.Duration) *ReplayGuard {
	if window <= 0 {
		window = DefaultAllowedTimeDifference
	}
	return &ReplayGuard{
		window: window,
		now:    time.Now,
	}
}

// Check parses raw as epoch milliseconds and verifies it is fresh.
func (g *ReplayGuard) Check(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("timestamp is missing")
	}
	claimed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is not numeric", raw)
	}
	if !IsFresh(claimed, g.now().UnixMilli(), g.window.Milliseconds()) {
		return claimed, fmt.Errorf("timestamp %d is outside the %s window", claimed, g.window)
	}
	return claimed, nil
}
