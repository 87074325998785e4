package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
// Implementations must be idempotent (IncrBy can be called repeatedly).
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// usageWindow tracks token consumption for one rolling period.
// A limit of 0 means unlimited.
type usageWindow struct {
	period   string // "daily" or "monthly", part of the store key
	layout   string // time layout of the key suffix
	truncate func(time.Time) time.Time
	limit    int64
	used     int64
	start    time.Time
}

func (w *usageWindow) key(provider string, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, provider, w.period, t.Format(w.layout))
}

// rollover zeroes the counter when the period boundary has passed.
func (w *usageWindow) rollover(now time.Time) {
	if cur := w.truncate(now); cur.After(w.start) {
		w.used = 0
		w.start = cur
	}
}

func (w *usageWindow) exceeded() bool {
	return w.limit > 0 && w.used >= w.limit
}

// remaining returns tokens left in the window, -1 when unlimited.
func (w *usageWindow) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	if left := w.limit - w.used; left > 0 {
		return left
	}
	return 0
}

// BudgetTracker enforces daily and monthly token budgets. The hot path
// (Check) is purely in-memory; Record updates counters in-memory first and
// then writes behind to the store when one is attached, so a slow or dead
// Redis never stalls an embedding call.
type BudgetTracker struct {
	mu       sync.Mutex
	day      usageWindow
	month    usageWindow
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits.
// A limit of 0 disables that window.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		day: usageWindow{
			period: "daily", layout: "2006-01-02",
			truncate: dayStart, limit: dailyLimit, start: dayStart(now),
		},
		month: usageWindow{
			period: "monthly", layout: "2006-01",
			truncate: monthStart, limit: monthlyLimit, start: monthStart(now),
		},
		action:   action,
		provider: provider,
		logger:   logger,
	}
}

// WithStore attaches a persistence store and seeds the in-memory counters
// from it, so budgets survive process restarts.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := time.Now().UTC()

	for _, w := range []*usageWindow{&b.day, &b.month} {
		val, err := store.Get(ctx, w.key(b.provider, now))
		if err != nil {
			b.logger.Warn("Failed to load budget counter from store",
				zap.String("period", w.period), zap.Error(err))
			continue
		}
		w.used = val
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

// Check verifies the budget allows a new request. In-memory only.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	b.day.rollover(now)
	b.month.rollover(now)

	if !b.day.exceeded() && !b.month.exceeded() {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.used),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record registers consumed tokens after a request completed.
func (b *BudgetTracker) Record(tokens int64) {
	now := time.Now().UTC()

	b.mu.Lock()
	var keys []string
	for _, w := range []*usageWindow{&b.day, &b.month} {
		w.rollover(now)
		w.used += tokens
		keys = append(keys, w.key(b.provider, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind with its own deadline so the caller never waits on Redis.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter",
				zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 { return b.remainingIn(&b.day) }

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 { return b.remainingIn(&b.month) }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 { return b.usedIn(&b.day) }

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 { return b.usedIn(&b.month) }

func (b *BudgetTracker) remainingIn(w *usageWindow) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.rollover(time.Now().UTC())
	return w.remaining()
}

func (b *BudgetTracker) usedIn(w *usageWindow) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.rollover(time.Now().UTC())
	return w.used
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
