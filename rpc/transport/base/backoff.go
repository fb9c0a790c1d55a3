package base

import (
	"github.com/ValentinKolb/dSock/rpc/common"
	"sync"
	"time"
)

// reconnectBackoff computes the delay between reconnection attempts.
//
// Every disconnect multiplies the delay by the factor (capped at max) and
// (re)starts the stability timer. When the stability timer expires without a
// further disconnect, the delay goes back to the base interval.
type reconnectBackoff struct {
	mu         sync.Mutex
	base       time.Duration
	max        time.Duration
	factor     float64
	resetAfter time.Duration
	current    time.Duration
	resetTimer *time.Timer
	resetID    uint64
}

func newReconnectBackoff(opts common.Options) *reconnectBackoff {
	factor := opts.ReconnectIntervalFactor
	if factor < 1.0 {
		factor = 1.0
	}
	return &reconnectBackoff{
		base:       opts.ReconnectInterval,
		max:        opts.ReconnectIntervalMax,
		factor:     factor,
		resetAfter: opts.ReconnectResetAfter,
		current:    opts.ReconnectInterval,
	}
}

// Next is called on every disconnect and returns the delay before the next attempt
func (b *reconnectBackoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := time.Duration(float64(b.current) * b.factor)
	if b.max > 0 && next > b.max {
		next = b.max
	}
	b.current = next

	if b.resetTimer != nil {
		b.resetTimer.Stop()
	}
	b.resetID++
	id := b.resetID
	b.resetTimer = time.AfterFunc(b.resetAfter, func() { b.reset(id) })

	return next
}

// Current returns the delay that was returned by the last call to Next
func (b *reconnectBackoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Stop cancels a pending stability reset
func (b *reconnectBackoff) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resetTimer != nil {
		b.resetTimer.Stop()
		b.resetTimer = nil
	}
	b.resetID++
}

func (b *reconnectBackoff) reset(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id != b.resetID {
		return
	}
	b.current = b.base
	b.resetTimer = nil
}
