package verifier

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckFreshnessBoundaries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	maxSkew := 60 * time.Second
	maxAge := 300 * time.Second

	cases := []struct {
		name    string
		claimed uint64
		want    Freshness
	}{
		{"current", 1_700_000_000, Fresh},
		{"oldest accepted", 1_700_000_000 - 300, Fresh},
		{"one second too old", 1_700_000_000 - 301, TooStale},
		{"newest accepted", 1_700_000_000 + 60, Fresh},
		{"one second too new", 1_700_000_000 + 61, TooFarFuture},
		{"ancient", 1, TooStale},
		{"beyond signed range", math.MaxInt64 + 1, TooFarFuture},
		{"max uint64", math.MaxUint64, TooFarFuture},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckFreshness(tc.claimed, now, maxSkew, maxAge))
		})
	}
}

func TestCheckFreshnessSkewDoesNotUnderflow(t *testing.T) {
	// A timestamp ahead of the verifier clock but inside the skew window
	// must be accepted, not misread as an enormous age.
	now := time.Unix(1_700_000_000, 0)
	got := CheckFreshness(1_700_000_030, now, 60*time.Second, 300*time.Second)
	assert.Equal(t, Fresh, got)
}
