package llm

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
)

// DefaultBudget is the built-in invocation ceiling when neither the
// environment nor the config file set one (spec §4.8).
const DefaultBudget = 20

const budgetEnvVar = "XCHECKER_OPENROUTER_BUDGET"

// ResolveBudget applies the precedence env > config > default. An
// empty or non-numeric env value falls through to configValue; a
// non-positive configValue falls through to DefaultBudget.
func ResolveBudget(configValue int) int {
	if raw := os.Getenv(budgetEnvVar); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	if configValue > 0 {
		return configValue
	}
	return DefaultBudget
}

// BudgetedBackend wraps an inner Backend and counts every Invoke call
// — success or failure — against a fixed limit. The counter is a
// monotonic atomic fetch-add: budget is about attempted cost, not
// successful cost, so a transient provider failure still consumes a
// slot and a retry loop can't bypass the cap.
type BudgetedBackend struct {
	inner Backend
	limit int
	count atomic.Int64
}

// NewBudgetedBackend wraps inner with a limit already resolved via
// ResolveBudget.
func NewBudgetedBackend(inner Backend, limit int) *BudgetedBackend {
	return &BudgetedBackend{inner: inner, limit: limit}
}

// Used returns the number of Invoke calls counted so far.
func (b *BudgetedBackend) Used() int64 { return b.count.Load() }

// Limit returns the configured ceiling.
func (b *BudgetedBackend) Limit() int { return b.limit }

// Invoke counts the call against the budget before ever reaching the
// inner backend: on the call that would exceed the limit, it returns
// BudgetExceeded without invoking inner at all.
func (b *BudgetedBackend) Invoke(ctx context.Context, inv LlmInvocation) (*LlmResult, *LlmError) {
	attempted := b.count.Add(1)
	if int(attempted) > b.limit {
		return nil, &LlmError{Kind: ErrBudgetExceeded, Limit: b.limit, Attempted: int(attempted)}
	}
	return b.inner.Invoke(ctx, inv)
}
