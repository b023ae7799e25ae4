package api

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimitState is the process-lifetime throttling memory shared by every
// call through one client: the end of the current rate-limited window, and
// whether the one-time user notice has fired. Instance-scoped so independent
// sessions (and tests) don't share state.
type rateLimitState struct {
	mu       sync.Mutex
	until    time.Time
	notified bool
}

// wait returns how long a new request must hold off before hitting the
// network. Zero when no window is active.
func (r *rateLimitState) wait(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Before(r.until) {
		return r.until.Sub(now)
	}
	return 0
}

// extend records a rate-limited window. Unrelated calls consult it before
// issuing their own request, so a single 429 throttles the whole client
// instead of every caller piling onto the server.
func (r *rateLimitState) extend(until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if until.After(r.until) {
		r.until = until
	}
}

func (r *rateLimitState) limitedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.until
}

// firstNotice reports true exactly once per client lifetime.
func (r *rateLimitState) firstNotice() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notified {
		return false
	}
	r.notified = true
	return true
}

// parseRetryAfter interprets a Retry-After header value, which is either a
// count of seconds or an HTTP-date. An HTTP-date is converted to the
// remaining delta from now. Returns false when the header is absent or
// unparseable.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// backoffDelay computes the fallback retry delay for attempt n (0-based):
// base * 2^n plus a random jitter in [0, jitter).
func backoffDelay(base, jitter time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if jitter > 0 {
		d += time.Duration(rand.Int63n(int64(jitter)))
	}
	return d
}
