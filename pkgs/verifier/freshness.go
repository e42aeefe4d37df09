package verifier

import (
	"math"
	"time"
)

// Freshness classifies a submission timestamp against the verifier clock.
type Freshness int

const (
	Fresh Freshness = iota
	TooFarFuture
	TooStale
)

// CheckFreshness bounds the claimed unix timestamp to the window
// [now-maxAge, now+maxSkew], both ends inclusive. The comparison runs on
// signed seconds so a timestamp slightly ahead of the verifier clock still
// lands inside the window; claimed values beyond the signed range are
// future-dated by definition.
func CheckFreshness(claimed uint64, now time.Time, maxSkew, maxAge time.Duration) Freshness {
	if claimed > math.MaxInt64 {
		return TooFarFuture
	}
	ts := int64(claimed)
	nowSec := now.Unix()
	if ts > nowSec+int64(maxSkew/time.Second) {
		return TooFarFuture
	}
	if nowSec-ts > int64(maxAge/time.Second) {
		return TooStale
	}
	return Fresh
}
