// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// maxLockout caps the doubling backoff.
	maxLockout = 24 * time.Hour
	// maxTrackedIPs empties the per-IP limiter table when exceeded.
	maxTrackedIPs = 10000
	sweepInterval = 10 * time.Minute
)

// LoginProtectionConfig configures LoginProtection. Zero fields take the
// values of DefaultLoginProtectionConfig.
type LoginProtectionConfig struct {
	IPRateLimit       float64 // token requests per second per client IP
	IPBurst           int
	MaxFailedAttempts int           // failures within AttemptWindow that lock an account
	LockoutDuration   time.Duration // first lockout; each further one doubles
	AttemptWindow     time.Duration
	Logger            *slog.Logger
}

// DefaultLoginProtectionConfig allows one token request every two seconds
// per IP with a burst of five, and locks an account for 15 minutes after
// five failures within 15 minutes.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// lockoutPolicy decides when an account locks and for how long.
type lockoutPolicy struct {
	threshold int
	base      time.Duration
	window    time.Duration
}

// duration is the length of the lockout that follows prior earlier ones.
func (p lockoutPolicy) duration(prior int) time.Duration {
	d := p.base
	for ; prior > 0 && d < maxLockout; prior-- {
		d *= 2
	}
	return min(d, maxLockout)
}

// accountRecord is the failure history of one account.
type accountRecord struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

func (r *accountRecord) windowOpen(now time.Time, window time.Duration) bool {
	return now.Sub(r.windowStart) <= window
}

// lockoutBook holds account records keyed by normalized email.
type lockoutBook struct {
	mu      sync.RWMutex
	records map[string]*accountRecord
}

func (b *lockoutBook) lookup(key string) (accountRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.records[key]
	if !ok {
		return accountRecord{}, false
	}
	return *r, true
}

func (b *lockoutBook) forget(key string) {
	b.mu.Lock()
	delete(b.records, key)
	b.mu.Unlock()
}

// sweep drops records that are neither locked nor inside their window.
func (b *lockoutBook) sweep(now time.Time, window time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for key, r := range b.records {
		if !now.Before(r.lockedUntil) && !r.windowOpen(now, window) {
			delete(b.records, key)
			dropped++
		}
	}
	return dropped
}

func (b *lockoutBook) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// LoginProtection throttles the token endpoint per client IP and locks
// accounts after repeated failed logins.
type LoginProtection struct {
	ips    *limiterCache[string]
	book   lockoutBook
	policy lockoutPolicy
	logger *slog.Logger

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewLoginProtection creates a LoginProtection and starts its sweeper.
// Call Close to stop it.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		ips:  newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		book: lockoutBook{records: make(map[string]*accountRecord)},
		policy: lockoutPolicy{
			threshold: cfg.MaxFailedAttempts,
			base:      cfg.LockoutDuration,
			window:    cfg.AttemptWindow,
		},
		logger: cfg.Logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go lp.sweepLoop()
	return lp
}

// Close stops the sweeper. It is safe to call more than once.
func (lp *LoginProtection) Close() {
	lp.once.Do(func() { close(lp.stop) })
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAccountLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	r, ok := lp.book.lookup(accountKey(email))
	if !ok {
		return false, 0
	}
	if left := r.lockedUntil.Sub(lp.now()); left > 0 {
		return true, left
	}
	return false, 0
}

// RecordFailedAttempt counts a failed login for email. When the failure
// reaches the threshold the account locks and the lockout length is
// returned.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	key := accountKey(email)
	now := lp.now()

	lp.book.mu.Lock()
	defer lp.book.mu.Unlock()

	r, ok := lp.book.records[key]
	if !ok {
		r = &accountRecord{}
		lp.book.records[key] = r
	}
	if r.failures == 0 || !r.windowOpen(now, lp.policy.window) {
		r.failures = 0
		r.windowStart = now
	}
	r.failures++

	if r.failures < lp.policy.threshold {
		lp.logger.Debug("failed login recorded", "email", key, "failures", r.failures)
		return false, 0
	}

	d := lp.policy.duration(r.lockouts)
	r.lockedUntil = now.Add(d)
	r.lockouts++
	r.failures = 0
	lp.logger.Warn("account locked after failed logins", "email", key, "lockouts", r.lockouts, "duration", d)
	return true, d
}

// RecordSuccessfulLogin forgets the failure history of email.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.book.forget(accountKey(email))
}

// RemainingAttempts is how many more failures email may have before it locks.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	r, ok := lp.book.lookup(accountKey(email))
	if !ok || r.failures == 0 || !r.windowOpen(lp.now(), lp.policy.window) {
		return lp.policy.threshold
	}
	return max(lp.policy.threshold-r.failures, 0)
}

func (lp *LoginProtection) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lp.sweep()
		case <-lp.stop:
			return
		}
	}
}

func (lp *LoginProtection) sweep() {
	if lp.ips.clearIfExceeds(maxTrackedIPs) {
		lp.logger.Info("login rate limiters reset", "limit", maxTrackedIPs)
	}
	if n := lp.book.sweep(lp.now(), lp.policy.window); n > 0 {
		lp.logger.Debug("stale login records dropped", "count", n)
	}
}

// Middleware limits POST requests per client IP. Mount it on the token
// route only.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				if ip := getClientIP(r); !lp.ips.get(ip).Allow() {
					lp.logger.Warn("login rate limit exceeded", "ip", ip)
					WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
						"Too many login attempts. Please wait a moment and try again.", nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
