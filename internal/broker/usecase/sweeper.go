package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerService "github.com/pbarbosa/tenantvault/internal/broker/service"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// sweepConcurrency bounds how many backend drops run at once per pass.
const sweepConcurrency = 4

// SweeperConfig carries the tunables for the revocation sweeper.
type SweeperConfig struct {
	Interval       time.Duration
	BatchSize      int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Sweeper drives lease revocation to completion. Each pass queues expired
// active leases, then retries every due revocation; a lease row is deleted
// only after the backend confirmed the principal is gone.
type Sweeper struct {
	roleRepo   RoleRepository
	leaseRepo  LeaseRepository
	connectors map[brokerDomain.Backend]brokerService.Connector
	cfg        SweeperConfig
}

// Start runs sweep passes until the context is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "lease sweeper started", slog.Duration("interval", s.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "lease sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := s.leaseRepo.MarkExpiredRevoking(ctx, now, s.cfg.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to queue expired leases", slog.String("error", err.Error()))
	} else if expired > 0 {
		slog.InfoContext(ctx, "queued expired leases for revocation", slog.Int64("count", expired))
	}

	due, err := s.leaseRepo.ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list due revocations", slog.String("error", err.Error()))
		return
	}

	// Each lease handles its own failure by scheduling a retry, so the
	// group only bounds concurrency.
	var g errgroup.Group
	g.SetLimit(sweepConcurrency)
	for _, lease := range due {
		g.Go(func() error {
			s.revokeOne(ctx, lease, now)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Sweeper) revokeOne(ctx context.Context, lease *brokerDomain.Lease, now time.Time) {
	role, err := s.roleRepo.Get(ctx, lease.DomainID, lease.RoleName)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Without the role there is no connection string left to drop
			// the principal with. Role removal refuses while leases exist,
			// so this only happens after manual intervention.
			slog.WarnContext(ctx, "dropping lease for removed role",
				slog.String("lease_id", lease.ID.String()),
				slog.String("principal", lease.Principal),
			)
			if err := s.leaseRepo.Delete(ctx, lease.ID); err != nil {
				slog.ErrorContext(ctx, "failed to delete orphaned lease", slog.String("error", err.Error()))
			}
			return
		}
		s.scheduleRetry(ctx, lease, now, err)
		return
	}

	connector, ok := s.connectors[role.Backend]
	if !ok {
		s.scheduleRetry(ctx, lease, now,
			apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported credential backend: "+string(role.Backend)))
		return
	}

	if err := connector.DestroyPrincipal(ctx, role.ConnectionString, lease.Principal); err != nil {
		s.scheduleRetry(ctx, lease, now, err)
		return
	}

	if err := s.leaseRepo.Delete(ctx, lease.ID); err != nil {
		slog.ErrorContext(ctx, "failed to delete revoked lease",
			slog.String("lease_id", lease.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.InfoContext(ctx, "lease revoked",
		slog.String("lease_id", lease.ID.String()),
		slog.String("principal", lease.Principal),
	)
}

func (s *Sweeper) scheduleRetry(ctx context.Context, lease *brokerDomain.Lease, now time.Time, cause error) {
	delay := backoffDelay(s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, lease.Retries)

	slog.WarnContext(ctx, "lease revocation attempt failed",
		slog.String("lease_id", lease.ID.String()),
		slog.Int("retries", lease.Retries+1),
		slog.Duration("next_attempt_in", delay),
		slog.String("error", cause.Error()),
	)

	if err := s.leaseRepo.ScheduleRetry(ctx, lease.ID, lease.Retries+1, now.Add(delay)); err != nil {
		slog.ErrorContext(ctx, "failed to schedule revocation retry", slog.String("error", err.Error()))
	}
}

// backoffDelay doubles the base delay per prior retry, capped at max.
func backoffDelay(base, max time.Duration, retries int) time.Duration {
	delay := base
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// NewSweeper creates a new Sweeper with the provided dependencies.
func NewSweeper(
	roleRepo RoleRepository,
	leaseRepo LeaseRepository,
	connectors map[brokerDomain.Backend]brokerService.Connector,
	cfg SweeperConfig,
) *Sweeper {
	return &Sweeper{
		roleRepo:   roleRepo,
		leaseRepo:  leaseRepo,
		connectors: connectors,
		cfg:        cfg,
	}
}
