package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// policyUseCase implements PolicyUseCase backed by the domain registry.
type policyUseCase struct {
	txManager  database.TxManager
	domainRepo DomainRepository
	roleLister CredentialRoleLister
}

// Resolve composes the domain's rule set inside a transaction so a concurrent
// registry update is never observed partially. The returned set is normalized
// and safe to snapshot into a session.
func (p *policyUseCase) Resolve(ctx context.Context, domainID string) (policyDomain.RuleSet, error) {
	var rules policyDomain.RuleSet

	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		d, err := p.domainRepo.Get(txCtx, domainID)
		if err != nil {
			return err
		}

		roles, err := p.roleLister.ListRoleNames(txCtx, domainID)
		if err != nil {
			return err
		}

		rules = d.ComposeRules(roles)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rules, nil
}

// RegisterDomain onboards a new tenant domain.
func (p *policyUseCase) RegisterDomain(
	ctx context.Context,
	input RegisterDomainInput,
) (*policyDomain.Domain, error) {
	if err := validateDomainID(input.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Namespace) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "namespace is required")
	}
	prefixes, err := normalizePrefixes(input.SecretPathPrefixes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &policyDomain.Domain{
		ID:                 input.ID,
		Description:        input.Description,
		Namespace:          input.Namespace,
		SecretPathPrefixes: prefixes,
		DenyPatterns:       input.DenyPatterns,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := p.domainRepo.Create(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

// UpdateDomain replaces the mutable rule material of a registered domain.
// The update happens inside a transaction, so an in-flight Resolve sees
// either the old or the new state, never a mix.
func (p *policyUseCase) UpdateDomain(
	ctx context.Context,
	domainID string,
	input UpdateDomainInput,
) (*policyDomain.Domain, error) {
	prefixes, err := normalizePrefixes(input.SecretPathPrefixes)
	if err != nil {
		return nil, err
	}

	var updated *policyDomain.Domain
	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		d, err := p.domainRepo.Get(txCtx, domainID)
		if err != nil {
			return err
		}

		d.Description = input.Description
		d.SecretPathPrefixes = prefixes
		d.DenyPatterns = input.DenyPatterns
		d.UpdatedAt = time.Now().UTC()

		if err := p.domainRepo.Update(txCtx, d); err != nil {
			return err
		}

		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RemoveDomain deletes a domain registration. Offboarding orchestration
// (lease revocation, secret backup) must run before calling this.
func (p *policyUseCase) RemoveDomain(ctx context.Context, domainID string) error {
	return p.domainRepo.Delete(ctx, domainID)
}

// GetDomain retrieves a domain registration by ID.
func (p *policyUseCase) GetDomain(ctx context.Context, domainID string) (*policyDomain.Domain, error) {
	return p.domainRepo.Get(ctx, domainID)
}

// ListDomains retrieves registered domains ordered by ID with pagination.
func (p *policyUseCase) ListDomains(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Domain, error) {
	return p.domainRepo.List(ctx, offset, limit)
}

// validateDomainID checks the shape of a domain identifier.
func validateDomainID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "domain id is required")
	}
	if strings.ContainsAny(id, "/:* ") {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "domain id must not contain '/', ':', '*' or spaces")
	}
	return nil
}

// normalizePrefixes trims slashes and rejects wildcard characters in declared
// secret path prefixes. Prefixes are literal paths; wildcards belong to rules.
func normalizePrefixes(prefixes []string) ([]string, error) {
	out := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix = strings.Trim(strings.TrimSpace(prefix), "/")
		if prefix == "" {
			continue
		}
		if strings.Contains(prefix, "*") {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "secret path prefix must not contain wildcards")
		}
		out = append(out, prefix)
	}
	if len(out) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "at least one secret path prefix is required")
	}
	return out, nil
}

// NewPolicyUseCase creates a new PolicyUseCase with the provided dependencies.
func NewPolicyUseCase(
	txManager database.TxManager,
	domainRepo DomainRepository,
	roleLister CredentialRoleLister,
) PolicyUseCase {
	return &policyUseCase{
		txManager:  txManager,
		domainRepo: domainRepo,
		roleLister: roleLister,
	}
}
