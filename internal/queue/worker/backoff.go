package worker

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// backoff doubles per attempt, capped, with a little jitter so a burst
// of failures does not retry in lockstep.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	if attempt > 16 {
		attempt = 16
	}

	d := backoffBase << uint(attempt)

	if d <= 0 || d > backoffCap {
		d = backoffCap
	}

	return d + time.Duration(rand.Intn(250))*time.Millisecond
}
