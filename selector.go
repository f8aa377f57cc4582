package mediarouter

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

var errNoCandidates = fmt.Errorf("%w: no candidates", ErrInvalidProvider)

// ClockSelector rotates across candidates using the current unix second.
// Uploads started in the same second land on the same slot.
type ClockSelector struct {
	Now func() time.Time
}

func (s ClockSelector) Select(_ context.Context, candidates []ProviderID) (ProviderID, error) {
	if len(candidates) == 0 {
		return 0, errNoCandidates
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	sec := now().Unix()
	if sec < 0 {
		sec = -sec
	}
	return candidates[sec%int64(len(candidates))], nil
}

// RoundRobinSelector rotates across candidates with an in-process counter.
type RoundRobinSelector struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector) Select(_ context.Context, candidates []ProviderID) (ProviderID, error) {
	if len(candidates) == 0 {
		return 0, errNoCandidates
	}

	n := s.next.Add(1) - 1
	return candidates[n%uint64(len(candidates))], nil
}

// RandomSelector picks a candidate uniformly at random.
type RandomSelector struct{}

func (RandomSelector) Select(_ context.Context, candidates []ProviderID) (ProviderID, error) {
	if len(candidates) == 0 {
		return 0, errNoCandidates
	}
	return candidates[rand.IntN(len(candidates))], nil
}

// FixedSelector always picks the same slot when it is a candidate,
// otherwise the first candidate.
type FixedSelector ProviderID

func (s FixedSelector) Select(_ context.Context, candidates []ProviderID) (ProviderID, error) {
	for _, c := range candidates {
		if c == ProviderID(s) {
			return c, nil
		}
	}
	if len(candidates) == 0 {
		return 0, errNoCandidates
	}
	return candidates[0], nil
}
