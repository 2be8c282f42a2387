package websocket

import (
	"math/rand"
	"time"
)

// DefaultReconnectDelay is used when Backoff.Delay is unset.
const DefaultReconnectDelay = 5 * time.Second

// FixedBackoff waits d before every retry.
func FixedBackoff(d time.Duration) Backoff {
	return Backoff{Delay: d}
}

// CappedBackoff doubles the wait from d up to max.
func CappedBackoff(d, max time.Duration) Backoff {
	return Backoff{Delay: d, Max: max, Factor: 2.0}
}

// Next returns the wait for the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	wait := b.Delay
	if wait <= 0 {
		wait = DefaultReconnectDelay
	}

	if b.Max > wait {
		factor := b.Factor
		if factor <= 1 {
			factor = 2.0
		}
		for i := 1; i < attempt; i++ {
			next := time.Duration(float64(wait) * factor)
			if next >= b.Max {
				wait = b.Max
				break
			}
			wait = next
		}
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := b.Jitter
	if jitter > 1 {
		jitter = 1
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}
