package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/config"
)

func newTestLedger(limit int, minInterval time.Duration) (*Ledger, *time.Time) {
	l := NewLedger(config.QuotaConfig{
		DailyLimit:         limit,
		MinRequestInterval: minInterval,
	}, nil)

	// Freeze the clock at mid-day so the lazy reset never fires unless a
	// test advances past midnight on purpose.
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)
	l.now = func() time.Time { return now }
	l.resetTime = nextMidnight(now)
	return l, &now
}

func TestStatusIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(10, 0)

	for i := 0; i < 5; i++ {
		status := l.Status()
		assert.Equal(t, 0, status.Used)
		assert.Equal(t, 10, status.Remaining)
		assert.True(t, status.CanMakeRequest)
	}
}

func TestRecordIncrementsUsage(t *testing.T) {
	l, _ := newTestLedger(10, 0)

	l.Record(1)
	l.Record(3)

	status := l.Status()
	assert.Equal(t, 4, status.Used)
	assert.Equal(t, 6, status.Remaining)
}

func TestCheckQuotaExhausted(t *testing.T) {
	l, _ := newTestLedger(5, 0)
	l.Record(5)

	result := l.Check(1)
	assert.False(t, result.CanProceed)
	assert.Equal(t, ReasonQuotaExhausted, result.Reason)
	assert.Greater(t, result.WaitTime, time.Duration(0))
}

func TestCheckInsufficientForBatch(t *testing.T) {
	l, _ := newTestLedger(5, 0)
	l.Record(3)

	assert.False(t, l.Check(3).CanProceed)
	assert.True(t, l.Check(2).CanProceed)
}

func TestCheckRateLimited(t *testing.T) {
	l, now := newTestLedger(10, 100*time.Millisecond)

	l.Record(1)

	// 40ms later the minimum interval has not elapsed.
	*now = now.Add(40 * time.Millisecond)
	result := l.Check(1)
	assert.False(t, result.CanProceed)
	assert.Equal(t, ReasonRateLimited, result.Reason)
	assert.Equal(t, 60*time.Millisecond, result.WaitTime)

	// After the interval the check passes again.
	*now = now.Add(60 * time.Millisecond)
	assert.True(t, l.Check(1).CanProceed)
}

func TestLazyResetAtMidnight(t *testing.T) {
	l, now := newTestLedger(5, 0)
	l.Record(5)
	require.False(t, l.Check(1).CanProceed)

	// Cross the midnight boundary: the next check must observe a reset
	// before evaluating.
	*now = now.Add(13 * time.Hour)
	result := l.Check(1)
	assert.True(t, result.CanProceed)

	status := l.Status()
	assert.Equal(t, 0, status.Used)
	assert.True(t, status.ResetTime.After(*now))
}

func TestUsedNeverExceedsLimitBetweenResets(t *testing.T) {
	l, _ := newTestLedger(5, 0)

	issued := 0
	for i := 0; i < 20; i++ {
		if l.Check(1).CanProceed {
			l.Record(1)
			issued++
		}
	}

	assert.Equal(t, 5, issued)
	assert.Equal(t, 5, l.Status().Used)
}

func TestConcurrentCheckAndRecord(t *testing.T) {
	l := NewLedger(config.QuotaConfig{DailyLimit: 1000}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if l.Check(1).CanProceed {
					l.Record(1)
				}
			}
		}()
	}
	wg.Wait()

	status := l.Status()
	assert.Equal(t, 400, status.Used)
	assert.LessOrEqual(t, status.Used, status.Limit)
}

func TestWaitForRateLimit(t *testing.T) {
	l, _ := newTestLedger(10, 0)

	// Zero or negative waits return immediately.
	assert.NoError(t, l.WaitForRateLimit(context.Background(), 0))

	// Cancelled context interrupts the wait.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.WaitForRateLimit(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateProcessing(t *testing.T) {
	t.Run("exhausted", func(t *testing.T) {
		l, _ := newTestLedger(5, 0)
		l.Record(5)

		adv := l.ValidateProcessing(1)
		assert.False(t, adv.CanProcess)
		assert.NotEmpty(t, adv.Suggestion)
	})

	t.Run("insufficient for estimate", func(t *testing.T) {
		l, _ := newTestLedger(10, 0)
		l.Record(8)

		adv := l.ValidateProcessing(5)
		assert.False(t, adv.CanProcess)
	})

	t.Run("low quota warning", func(t *testing.T) {
		l, _ := newTestLedger(100, 0)
		l.Record(95)

		adv := l.ValidateProcessing(2)
		assert.True(t, adv.CanProcess)
		assert.NotEmpty(t, adv.Suggestion)
	})

	t.Run("plenty available", func(t *testing.T) {
		l, _ := newTestLedger(100, 0)

		adv := l.ValidateProcessing(10)
		assert.True(t, adv.CanProcess)
		assert.Empty(t, adv.Suggestion)
	})
}
