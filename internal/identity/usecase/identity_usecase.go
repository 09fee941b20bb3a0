package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	identityService "github.com/pbarbosa/tenantvault/internal/identity/service"
)

// identityUseCase implements IdentityUseCase.
type identityUseCase struct {
	trustDomainRepo TrustDomainRepository
	bindingRepo     BindingRepository
	verifier        identityService.AssertionVerifier
	policyResolver  PolicyResolver
	domainGetter    DomainGetter
	sessionIssuer   SessionIssuer
}

// Login authenticates a workload from its identity assertion.
//
// The flow is verify, bind, resolve, issue:
//  1. The assertion's issuer selects the registered trust domain.
//  2. The verifier validates the assertion in the trust domain's mode.
//  3. The verified claims must match exactly one identity binding.
//  4. The bound domain's rule set is resolved and snapshotted into a
//     new session.
//
// Verification and binding failures are logged with their specific cause
// but propagate as ErrUnauthorized so a caller cannot probe which check
// rejected the assertion. An ambiguous binding propagates as ErrConflict;
// it is a registration mistake that must surface. Identity failures are
// never retried here.
func (i *identityUseCase) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	issuer, err := extractIssuer(input.Assertion)
	if err != nil {
		slog.InfoContext(ctx, "login rejected", "cause", "unparseable assertion")
		return nil, identityDomain.ErrInvalidSignature
	}

	trustDomain, err := i.trustDomainRepo.GetByIssuer(ctx, issuer)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			slog.InfoContext(ctx, "login rejected", "cause", "unknown issuer", "issuer", issuer)
			return nil, identityDomain.ErrUnknownIssuer
		}
		return nil, err
	}

	claims, err := i.verifier.Verify(ctx, input.Assertion, trustDomain)
	if err != nil {
		slog.InfoContext(ctx, "login rejected", "cause", err, "issuer", issuer)
		return nil, err
	}

	domainID, err := i.bind(ctx, claims)
	if err != nil {
		slog.InfoContext(
			ctx,
			"login rejected",
			"cause", err,
			"issuer", issuer,
			"subject", claims.Subject,
		)
		return nil, err
	}

	rules, err := i.policyResolver.Resolve(ctx, domainID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := i.sessionIssuer.Issue(ctx, domainID, rules)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(
		ctx,
		"login succeeded",
		"issuer", issuer,
		"subject", claims.Subject,
		"domain_id", domainID,
	)

	return &LoginOutput{
		Token:     token,
		ExpiresAt: expiresAt,
		DomainID:  domainID,
		Subject:   claims.Subject,
	}, nil
}

// bind matches verified claims against the issuer's registered bindings.
// Exactly one binding must match; ties are never broken by priority.
func (i *identityUseCase) bind(ctx context.Context, claims *identityDomain.Claims) (string, error) {
	bindings, err := i.bindingRepo.ListByIssuer(ctx, claims.Issuer)
	if err != nil {
		return "", err
	}

	var matched *identityDomain.Binding
	for _, binding := range bindings {
		if !binding.Matches(claims) {
			continue
		}
		if matched != nil {
			return "", identityDomain.ErrAmbiguousBinding
		}
		matched = binding
	}
	if matched == nil {
		return "", identityDomain.ErrNoMatchingBinding
	}

	return matched.DomainID, nil
}

// RegisterTrustDomain registers an external identity provider.
func (i *identityUseCase) RegisterTrustDomain(
	ctx context.Context,
	input RegisterTrustDomainInput,
) (*identityDomain.TrustDomain, error) {
	if strings.TrimSpace(input.Issuer) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "issuer is required")
	}

	switch input.Mode {
	case identityDomain.OfflineVerification:
		if len(input.PublicKeysPEM) == 0 {
			return nil, apperrors.Wrap(
				apperrors.ErrInvalidInput,
				"offline trust domain requires at least one public key",
			)
		}
	case identityDomain.LiveVerification:
		parsed, err := url.Parse(input.ReviewURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, apperrors.Wrap(
				apperrors.ErrInvalidInput,
				"live trust domain requires a valid http(s) review url",
			)
		}
	default:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown verification mode %q", input.Mode)
	}

	now := time.Now().UTC()
	trustDomain := &identityDomain.TrustDomain{
		ID:            uuid.Must(uuid.NewV7()),
		Issuer:        input.Issuer,
		Mode:          input.Mode,
		PublicKeysPEM: input.PublicKeysPEM,
		ReviewURL:     input.ReviewURL,
		Audiences:     input.Audiences,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := i.trustDomainRepo.Create(ctx, trustDomain); err != nil {
		return nil, err
	}

	return trustDomain, nil
}

// RemoveTrustDomain deletes a trust domain registration.
func (i *identityUseCase) RemoveTrustDomain(ctx context.Context, issuer string) error {
	return i.trustDomainRepo.Delete(ctx, issuer)
}

// ListTrustDomains retrieves all registered trust domains.
func (i *identityUseCase) ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error) {
	return i.trustDomainRepo.ListTrustDomains(ctx)
}

// RegisterBinding binds a claim shape to a tenant domain. The subject
// pattern's namespace segment must equal the bound domain's declared
// namespace, so a binding can never grant a workload from one namespace
// access to another namespace's domain.
func (i *identityUseCase) RegisterBinding(
	ctx context.Context,
	input RegisterBindingInput,
) (*identityDomain.Binding, error) {
	if _, err := i.trustDomainRepo.GetByIssuer(ctx, input.Issuer); err != nil {
		return nil, err
	}
	if len(input.BoundAudiences) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "at least one bound audience is required")
	}

	patternNamespace, err := identityDomain.SubjectPatternNamespace(input.BoundSubjectPattern)
	if err != nil {
		return nil, err
	}

	domain, err := i.domainGetter.GetDomain(ctx, input.DomainID)
	if err != nil {
		return nil, err
	}
	if patternNamespace != domain.Namespace {
		return nil, apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"subject pattern namespace %q does not match domain namespace %q",
			patternNamespace, domain.Namespace,
		)
	}

	now := time.Now().UTC()
	binding := &identityDomain.Binding{
		ID:                  uuid.Must(uuid.NewV7()),
		Issuer:              input.Issuer,
		DomainID:            input.DomainID,
		BoundAudiences:      input.BoundAudiences,
		BoundSubjectPattern: input.BoundSubjectPattern,
		BoundClaims:         input.BoundClaims,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := i.bindingRepo.Create(ctx, binding); err != nil {
		return nil, err
	}

	return binding, nil
}

// RemoveBinding deletes an identity binding.
func (i *identityUseCase) RemoveBinding(ctx context.Context, id uuid.UUID) error {
	return i.bindingRepo.Delete(ctx, id)
}

// ListBindings retrieves identity bindings with pagination.
func (i *identityUseCase) ListBindings(
	ctx context.Context,
	offset, limit int,
) ([]*identityDomain.Binding, error) {
	return i.bindingRepo.List(ctx, offset, limit)
}

// extractIssuer reads the issuer claim without verifying the assertion.
// Selection only; all trust decisions happen in the verifier afterwards.
func extractIssuer(assertion string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(assertion, jwt.MapClaims{})
	if err != nil {
		return "", apperrors.Wrap(err, "failed to parse assertion")
	}

	issuer, err := token.Claims.GetIssuer()
	if err != nil || issuer == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "assertion missing issuer claim")
	}

	return issuer, nil
}

// NewIdentityUseCase creates a new IdentityUseCase with the provided dependencies.
func NewIdentityUseCase(
	trustDomainRepo TrustDomainRepository,
	bindingRepo BindingRepository,
	verifier identityService.AssertionVerifier,
	policyResolver PolicyResolver,
	domainGetter DomainGetter,
	sessionIssuer SessionIssuer,
) IdentityUseCase {
	return &identityUseCase{
		trustDomainRepo: trustDomainRepo,
		bindingRepo:     bindingRepo,
		verifier:        verifier,
		policyResolver:  policyResolver,
		domainGetter:    domainGetter,
		sessionIssuer:   sessionIssuer,
	}
}
