// Package quota tracks a process-wide daily budget of external LLM
// requests and enforces a minimum spacing between consecutive calls.
// The Ledger is constructed once per process and passed by reference to
// every worker and the scheduler; all state lives behind its mutex.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cardforge/cardforge-api/internal/config"
)

// Reasons reported by Check when a request cannot proceed.
const (
	ReasonQuotaExhausted = "quota exhausted"
	ReasonRateLimited    = "rate limited"
)

// warningThreshold is the remaining-budget fraction under which
// ValidateProcessing still allows processing but attaches a warning.
const warningThreshold = 0.1

// Status is a point-in-time view of the ledger.
type Status struct {
	Remaining      int       `json:"remaining"`
	Used           int       `json:"used"`
	Limit          int       `json:"limit"`
	ResetTime      time.Time `json:"reset_time"`
	CanMakeRequest bool      `json:"can_make_request"`
}

// CheckResult is the outcome of a pre-flight quota check.
type CheckResult struct {
	CanProceed bool
	Reason     string
	WaitTime   time.Duration
}

// Advisory is a user-facing pre-flight estimate for a whole job.
// It does not reserve quota.
type Advisory struct {
	CanProcess bool   `json:"can_process"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Ledger gate-checks and records every external LLM call against a
// rolling daily budget. The budget resets lazily at local midnight: the
// first access observing now >= resetTime reinitializes the counters.
type Ledger struct {
	mu sync.Mutex

	limit       int
	minInterval time.Duration

	used        int
	resetTime   time.Time
	lastRequest time.Time

	now    func() time.Time
	logger *slog.Logger
}

// NewLedger creates a Ledger from configuration. If logger is nil, the
// default logger is used.
func NewLedger(cfg config.QuotaConfig, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		limit:       cfg.DailyLimit,
		minInterval: cfg.MinRequestInterval,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "quota_ledger")),
	}
	l.resetTime = nextMidnight(l.now())
	return l
}

// Status returns the current quota state, applying a lazy reset first.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfDueLocked()
	return l.statusLocked()
}

// Check reports whether requestCount calls may proceed right now.
// When it cannot, the result carries the reason and how long to wait:
// until the daily reset for exhaustion, or the remaining spacing for
// rate limiting.
func (l *Ledger) Check(requestCount int) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfDueLocked()

	now := l.now()
	remaining := l.remainingLocked()

	if remaining < requestCount {
		return CheckResult{
			CanProceed: false,
			Reason:     ReasonQuotaExhausted,
			WaitTime:   l.resetTime.Sub(now),
		}
	}

	if l.minInterval > 0 && !l.lastRequest.IsZero() {
		if elapsed := now.Sub(l.lastRequest); elapsed < l.minInterval {
			return CheckResult{
				CanProceed: false,
				Reason:     ReasonRateLimited,
				WaitTime:   l.minInterval - elapsed,
			}
		}
	}

	return CheckResult{CanProceed: true}
}

// Record increments the usage counter. It must be called exactly once per
// actually-issued external call, including calls that failed provider-side
// after transmission, so our count never trails the provider's.
func (l *Ledger) Record(requestCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfDueLocked()
	l.used += requestCount
	l.lastRequest = l.now()

	l.logger.Debug("recorded quota usage",
		slog.Int("request_count", requestCount),
		slog.Int("used", l.used),
		slog.Int("limit", l.limit))
}

// WaitForRateLimit blocks for the given duration or until the context is
// cancelled, whichever comes first.
func (l *Ledger) WaitForRateLimit(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ValidateProcessing is an advisory pre-flight estimate used by the
// scheduler before accepting large jobs. It does not reserve quota, so
// two jobs validated back to back can still race for the same budget.
func (l *Ledger) ValidateProcessing(estimatedRequests int) Advisory {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfDueLocked()
	status := l.statusLocked()

	if !status.CanMakeRequest {
		hoursToReset := int(math.Ceil(l.resetTime.Sub(l.now()).Hours()))
		return Advisory{
			CanProcess: false,
			Message:    "daily API quota exhausted",
			Suggestion: fmt.Sprintf("quota resets in about %d hours (%s)",
				hoursToReset, l.resetTime.Format(time.RFC3339)),
		}
	}

	if status.Remaining < estimatedRequests {
		return Advisory{
			CanProcess: false,
			Message: fmt.Sprintf("insufficient quota: need about %d requests, %d remaining",
				estimatedRequests, status.Remaining),
			Suggestion: "reduce the document size or retry after the daily reset",
		}
	}

	if float64(status.Remaining) < float64(l.limit)*warningThreshold {
		return Advisory{
			CanProcess: true,
			Message: fmt.Sprintf("processing possible but quota is running low (%d remaining)",
				status.Remaining),
			Suggestion: "consider postponing large documents until tomorrow",
		}
	}

	return Advisory{
		CanProcess: true,
		Message: fmt.Sprintf("processing possible: about %d requests, %d remaining",
			estimatedRequests, status.Remaining),
	}
}

func (l *Ledger) statusLocked() Status {
	remaining := l.remainingLocked()
	return Status{
		Remaining:      remaining,
		Used:           l.used,
		Limit:          l.limit,
		ResetTime:      l.resetTime,
		CanMakeRequest: remaining > 0,
	}
}

func (l *Ledger) remainingLocked() int {
	if r := l.limit - l.used; r > 0 {
		return r
	}
	return 0
}

// resetIfDueLocked applies the lazy daily reset. Callers must hold l.mu.
func (l *Ledger) resetIfDueLocked() {
	now := l.now()
	if now.Before(l.resetTime) {
		return
	}

	l.logger.Info("daily quota reset",
		slog.Int("used_before_reset", l.used),
		slog.Time("next_reset", nextMidnight(now)))

	l.used = 0
	l.lastRequest = time.Time{}
	l.resetTime = nextMidnight(now)
}

// nextMidnight returns the next local midnight boundary strictly after t.
func nextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
