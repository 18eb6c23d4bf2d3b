// Package quota accounts generation tokens and post counts against
// per-tenant limits. Reservations for the same tenant are serialized so
// concurrent runs cannot jointly overshoot a limit.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"autoblogger/internal/ports"
)

// Status is the result of a pre-flight quota check. Remaining values are
// -1 when the corresponding limit is unlimited.
type Status struct {
	TokensAvailable bool
	PostsAvailable  bool
	TokensRemaining int
	PostsRemaining  int
}

// OK reports whether both budgets can absorb the checked amounts.
func (s Status) OK() bool {
	return s.TokensAvailable && s.PostsAvailable
}

// Ledger guards tenant quota state behind the store's atomic adjustment.
type Ledger struct {
	store  ports.TenantStore
	logger *slog.Logger

	mu      sync.Mutex
	tenants map[uuid.UUID]*sync.Mutex
}

func NewLedger(store ports.TenantStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		logger:  logger,
		tenants: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Check reports whether the tenant could afford the given amounts right
// now. It takes no reservation: the answer may go stale, which is why
// Reserve re-checks against the limits.
func (l *Ledger) Check(ctx context.Context, tenantID uuid.UUID, tokensNeeded, postsNeeded int) (Status, error) {
	tenant, err := l.store.Tenant(ctx, tenantID)
	if err != nil {
		return Status{}, fmt.Errorf("load tenant: %w", err)
	}

	return Status{
		TokensAvailable: tenant.HasTokens(tokensNeeded),
		PostsAvailable:  tenant.HasPosts(postsNeeded),
		TokensRemaining: tenant.TokensRemaining(),
		PostsRemaining:  tenant.PostsRemaining(),
	}, nil
}

// Reserve commits both deltas together, or neither. It returns
// domain.ErrQuotaExceeded when either resulting total would exceed its
// limit. Calls for the same tenant are serialized.
func (l *Ledger) Reserve(ctx context.Context, tenantID uuid.UUID, tokensDelta, postsDelta int) error {
	mu := l.tenantLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	if err := l.store.AdjustTenantUsage(ctx, tenantID, tokensDelta, postsDelta); err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}

	l.logger.Debug("quota reserved",
		"tenant", tenantID, "tokens", tokensDelta, "posts", postsDelta)
	return nil
}

// Refund releases a reservation after a failed run. Best-effort: the
// caller only logs a refund failure.
func (l *Ledger) Refund(ctx context.Context, tenantID uuid.UUID, tokensDelta, postsDelta int) error {
	mu := l.tenantLock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	if err := l.store.AdjustTenantUsage(ctx, tenantID, -tokensDelta, -postsDelta); err != nil {
		return fmt.Errorf("refund quota: %w", err)
	}
	return nil
}

func (l *Ledger) tenantLock(tenantID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	mu, ok := l.tenants[tenantID]
	if !ok {
		mu = &sync.Mutex{}
		l.tenants[tenantID] = mu
	}
	return mu
}
