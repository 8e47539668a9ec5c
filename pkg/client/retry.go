package client

import (
	"math/rand"
	"net/http"
	"time"
)

// retryPolicy bounds how often and how patiently a request is repeated.
type retryPolicy struct {
	max     int
	waitMin time.Duration
	waitMax time.Duration
}

var defaultRetryPolicy = retryPolicy{
	max:     3,
	waitMin: 500 * time.Millisecond,
	waitMax: 5 * time.Second,
}

// backoff doubles waitMin per attempt up to waitMax and adds up to 25%
// jitter.  attempt starts at 1.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := p.waitMin
	for i := 1; i < attempt && d < p.waitMax; i++ {
		d *= 2
	}
	if d > p.waitMax {
		d = p.waitMax
	}
	if j := int64(d / 4); j > 0 {
		d += time.Duration(rand.Int63n(j))
	}
	return d
}

// retryable reports whether an answer with status may succeed on retry.
// 429 is handled separately through Retry-After.
func (p retryPolicy) retryable(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

//Personal.AI order the ending
