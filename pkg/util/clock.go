package util

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// NonceSource hands out millisecond timestamps for signing. Each nonce is
// strictly greater than the previous one even if the clock stalls or
// several actions are signed within the same millisecond.
type NonceSource struct {
	clock Clock
	mu    sync.Mutex
	last  uint64
}

func NewNonceSource(clock Clock) *NonceSource {
	if clock == nil {
		clock = RealClock{}
	}
	return &NonceSource{clock: clock}
}

func (n *NonceSource) Next() uint64 {
	now := uint64(n.clock.Now().UnixMilli())

	n.mu.Lock()
	defer n.mu.Unlock()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}
