package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client request rates and daily quotas using fixed
// windows that open with the first request of each window.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64

	clients map[string]*UserUsage
}

// window counts events since start.
type window struct {
	start time.Time
	count int64
}

func (w *window) roll(now time.Time, length time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= length {
		w.start = now
		w.count = 0
	}
}

// UserUsage is a snapshot of one client's consumption.
type UserUsage struct {
	minute, hour, day window
	data              int64 // bytes in the current day window
	lastSeen          time.Time
}

// RequestsLastMinute returns the request count of the current minute window.
func (u *UserUsage) RequestsLastMinute() int { return int(u.minute.count) }

// RequestsLastHour returns the request count of the current hour window.
func (u *UserUsage) RequestsLastHour() int { return int(u.hour.count) }

// RequestsToday returns the request count of the current day window.
func (u *UserUsage) RequestsToday() int { return int(u.day.count) }

// DataToday returns the bytes uploaded in the current day window.
func (u *UserUsage) DataToday() int64 { return u.data }

// NewRateLimiter creates a rate limiter; zero disables a limit.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		now:               time.Now,
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*UserUsage),
	}
}

// CheckRateLimit records one request of dataSize bytes from userID, or
// returns a *RateLimitError / *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(userID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[userID]
	if !ok {
		u = &UserUsage{}
		rl.clients[userID] = u
	}
	u.minute.roll(now, time.Minute)
	u.hour.roll(now, time.Hour)
	if u.day.start.IsZero() || now.Sub(u.day.start) >= 24*time.Hour {
		u.data = 0
	}
	u.day.roll(now, 24*time.Hour)

	if rl.requestsPerMinute > 0 && u.minute.count >= int64(rl.requestsPerMinute) {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute,
			RetryAfter: u.minute.start.Add(time.Minute).Sub(now)}
	}
	if rl.requestsPerHour > 0 && u.hour.count >= int64(rl.requestsPerHour) {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour,
			RetryAfter: u.hour.start.Add(time.Hour).Sub(now)}
	}
	resets := u.day.start.Add(24 * time.Hour)
	if rl.maxRequestsPerDay > 0 && u.day.count >= int64(rl.maxRequestsPerDay) {
		return &QuotaExceededError{Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: u.day.count, Resets: resets}
	}
	if rl.maxDataPerDay > 0 && u.data+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: u.data, Resets: resets}
	}

	u.minute.count++
	u.hour.count++
	u.day.count++
	u.data += dataSize
	u.lastSeen = now
	return nil
}

// GetUsage returns a copy of a client's usage; unknown clients get zero usage.
func (rl *RateLimiter) GetUsage(userID string) *UserUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[userID]; ok {
		c := *u
		return &c
	}
	return &UserUsage{}
}

// Prune forgets clients idle for longer than a day and returns how many were dropped.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for id, u := range rl.clients {
		if now.Sub(u.lastSeen) > 24*time.Hour {
			delete(rl.clients, id)
			n++
		}
	}
	return n
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
