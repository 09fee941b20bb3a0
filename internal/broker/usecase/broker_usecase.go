package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerService "github.com/pbarbosa/tenantvault/internal/broker/service"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// BrokerConfig carries the tunables for credential issuance and revocation.
type BrokerConfig struct {
	LeaseTTL             time.Duration
	LeaseMaxTTL          time.Duration
	IssueRetryAttempts   int
	IssueRetryDelay      time.Duration
	RevokeRetryBaseDelay time.Duration
	RevokeRetryMaxDelay  time.Duration
}

// brokerUseCase implements BrokerUseCase.
type brokerUseCase struct {
	roleRepo   RoleRepository
	leaseRepo  LeaseRepository
	connectors map[brokerDomain.Backend]brokerService.Connector
	creds      brokerService.CredentialService
	cfg        BrokerConfig
}

// Issue mints a fresh principal for the role. Backend failures are retried a
// bounded number of times; if the lease row cannot be written after the
// principal exists, the principal is dropped again so nothing leaks.
func (b *brokerUseCase) Issue(
	ctx context.Context,
	rules policyDomain.RuleSet,
	domainID, roleName string,
) (*IssueCredentialOutput, error) {
	if !rules.Allows(policyDomain.CredentialPath(domainID, roleName), policyDomain.ReadCapability) {
		return nil, apperrors.ErrPermissionDenied
	}

	role, err := b.roleRepo.Get(ctx, domainID, roleName)
	if err != nil {
		return nil, err
	}

	connector, ok := b.connectors[role.Backend]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported credential backend: "+string(role.Backend))
	}

	principal, err := b.creds.GeneratePrincipal(role.Name)
	if err != nil {
		return nil, err
	}
	password, err := b.creds.GeneratePassword()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(role.DefaultTTL)

	if err := b.createWithRetry(ctx, connector, role.ConnectionString, principal, password, expiresAt); err != nil {
		return nil, err
	}

	lease := &brokerDomain.Lease{
		ID:            uuid.Must(uuid.NewV7()),
		DomainID:      domainID,
		RoleName:      role.Name,
		Principal:     principal,
		State:         brokerDomain.ActiveLease,
		IssuedAt:      now,
		ExpiresAt:     expiresAt,
		MaxExpiresAt:  now.Add(role.MaxTTL),
		NextAttemptAt: expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := b.leaseRepo.Create(ctx, lease); err != nil {
		if dropErr := connector.DestroyPrincipal(ctx, role.ConnectionString, principal); dropErr != nil {
			slog.ErrorContext(ctx, "orphaned principal after lease write failure",
				slog.String("principal", principal),
				slog.String("error", dropErr.Error()),
			)
		}
		return nil, err
	}

	return &IssueCredentialOutput{Lease: lease, Username: principal, Password: password}, nil
}

// Renew extends an active lease by the role's default lease duration.
func (b *brokerUseCase) Renew(
	ctx context.Context,
	rules policyDomain.RuleSet,
	leaseID uuid.UUID,
) (*brokerDomain.Lease, error) {
	lease, err := b.leaseRepo.Get(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !rules.Allows(policyDomain.CredentialPath(lease.DomainID, lease.RoleName), policyDomain.ReadCapability) {
		return nil, apperrors.ErrPermissionDenied
	}

	role, err := b.roleRepo.Get(ctx, lease.DomainID, lease.RoleName)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// A removed role falls back to the configured default TTL.
	ttl := b.cfg.LeaseTTL
	if role != nil {
		ttl = role.DefaultTTL
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	if expiresAt.After(lease.MaxExpiresAt) {
		return nil, brokerDomain.ErrLeaseMaxTTLExceeded
	}

	renewed, err := b.leaseRepo.Renew(ctx, leaseID, expiresAt, lease.RenewCount+1)
	if err != nil {
		return nil, err
	}
	if !renewed {
		return nil, brokerDomain.ErrLeaseNotActive
	}

	if role != nil {
		connector, ok := b.connectors[role.Backend]
		if ok {
			if err := connector.ExtendPrincipal(ctx, role.ConnectionString, lease.Principal, expiresAt); err != nil {
				slog.WarnContext(ctx, "failed to extend backend principal expiry",
					slog.String("lease_id", leaseID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	updated := *lease
	updated.ExpiresAt = expiresAt
	updated.RenewCount = lease.RenewCount + 1
	updated.UpdatedAt = now
	return &updated, nil
}

// Revoke queues the lease and attempts the backend drop right away. A
// failed drop leaves the lease queued; the sweeper retries with backoff.
func (b *brokerUseCase) Revoke(
	ctx context.Context,
	rules policyDomain.RuleSet,
	leaseID uuid.UUID,
) error {
	lease, err := b.leaseRepo.Get(ctx, leaseID)
	if err != nil {
		return err
	}
	if !rules.Allows(policyDomain.CredentialPath(lease.DomainID, lease.RoleName), policyDomain.ReadCapability) {
		return apperrors.ErrPermissionDenied
	}

	// The attempt time is pushed into the future so a sweep running during
	// the inline drop does not pick the lease up as due.
	now := time.Now().UTC()
	marked, err := b.leaseRepo.MarkRevoking(ctx, leaseID, now.Add(b.cfg.RevokeRetryBaseDelay))
	if err != nil {
		return err
	}
	if !marked {
		slog.InfoContext(ctx, "lease already queued for revocation", slog.String("lease_id", leaseID.String()))
		return nil
	}

	if err := b.destroyLease(ctx, lease); err != nil {
		slog.WarnContext(ctx, "backend revocation failed, lease queued for retry",
			slog.String("lease_id", leaseID.String()),
			slog.String("error", err.Error()),
		)
		return b.leaseRepo.ScheduleRetry(ctx, leaseID, 1, now.Add(b.cfg.RevokeRetryBaseDelay))
	}

	return b.leaseRepo.Delete(ctx, leaseID)
}

// RevokeDomainLeases queues every active lease of a domain for revocation.
func (b *brokerUseCase) RevokeDomainLeases(ctx context.Context, domainID string) (int64, error) {
	return b.leaseRepo.MarkDomainRevoking(ctx, domainID, time.Now().UTC())
}

// RegisterRole registers a credential role for a domain. Zero TTLs inherit
// the configured lease defaults.
func (b *brokerUseCase) RegisterRole(
	ctx context.Context,
	input RegisterRoleInput,
) (*brokerDomain.Role, error) {
	switch input.Backend {
	case brokerDomain.PostgresBackend, brokerDomain.MySQLBackend:
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported credential backend: "+string(input.Backend))
	}
	if input.Name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "role name is required")
	}
	if input.ConnectionString == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "connection string is required")
	}

	defaultTTL := input.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = b.cfg.LeaseTTL
	}
	maxTTL := input.MaxTTL
	if maxTTL <= 0 {
		maxTTL = b.cfg.LeaseMaxTTL
	}
	if defaultTTL > maxTTL {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "default ttl exceeds max ttl")
	}

	now := time.Now().UTC()
	role := &brokerDomain.Role{
		ID:               uuid.Must(uuid.NewV7()),
		DomainID:         input.DomainID,
		Name:             input.Name,
		Backend:          input.Backend,
		ConnectionString: input.ConnectionString,
		DefaultTTL:       defaultTTL,
		MaxTTL:           maxTTL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := b.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// RemoveRole deletes a role. Roles with live leases cannot be removed; the
// connection string is still needed to finish revoking them.
func (b *brokerUseCase) RemoveRole(ctx context.Context, domainID, name string) error {
	count, err := b.leaseRepo.CountByRole(ctx, domainID, name)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Wrap(apperrors.ErrConflict, "role still has live leases")
	}
	return b.roleRepo.Delete(ctx, domainID, name)
}

// GetRole retrieves a credential role.
func (b *brokerUseCase) GetRole(ctx context.Context, domainID, name string) (*brokerDomain.Role, error) {
	return b.roleRepo.Get(ctx, domainID, name)
}

// ListRoles lists the credential roles of a domain.
func (b *brokerUseCase) ListRoles(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Role, error) {
	return b.roleRepo.List(ctx, domainID, offset, limit)
}

// ListLeases lists the leases of a domain.
func (b *brokerUseCase) ListLeases(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Lease, error) {
	return b.leaseRepo.ListByDomain(ctx, domainID, offset, limit)
}

func (b *brokerUseCase) createWithRetry(
	ctx context.Context,
	connector brokerService.Connector,
	connectionString, principal, password string,
	validUntil time.Time,
) error {
	attempts := b.cfg.IssueRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.cfg.IssueRetryDelay):
			}
		}
		err = connector.CreatePrincipal(ctx, connectionString, principal, password, validUntil)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "credential backend create failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func (b *brokerUseCase) destroyLease(ctx context.Context, lease *brokerDomain.Lease) error {
	role, err := b.roleRepo.Get(ctx, lease.DomainID, lease.RoleName)
	if err != nil {
		return err
	}
	connector, ok := b.connectors[role.Backend]
	if !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported credential backend: "+string(role.Backend))
	}
	return connector.DestroyPrincipal(ctx, role.ConnectionString, lease.Principal)
}

// NewBrokerUseCase creates a new BrokerUseCase with the provided dependencies.
func NewBrokerUseCase(
	roleRepo RoleRepository,
	leaseRepo LeaseRepository,
	connectors map[brokerDomain.Backend]brokerService.Connector,
	creds brokerService.CredentialService,
	cfg BrokerConfig,
) BrokerUseCase {
	return &brokerUseCase{
		roleRepo:   roleRepo,
		leaseRepo:  leaseRepo,
		connectors: connectors,
		creds:      creds,
		cfg:        cfg,
	}
}
