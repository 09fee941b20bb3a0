package app

import (
	"context"
	"fmt"
	"time"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionHTTP "github.com/pbarbosa/tenantvault/internal/session/http"
	sessionRepository "github.com/pbarbosa/tenantvault/internal/session/repository"
	sessionService "github.com/pbarbosa/tenantvault/internal/session/service"
	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// sessionIssuer adapts the session use case to the identity module's
// issuer contract.
type sessionIssuer struct {
	sessions sessionUseCase.SessionUseCase
}

func (s *sessionIssuer) Issue(
	ctx context.Context,
	domainID string,
	rules policyDomain.RuleSet,
) (string, time.Time, error) {
	output, err := s.sessions.Issue(ctx, domainID, rules)
	if err != nil {
		return "", time.Time{}, err
	}
	return output.PlainToken, output.Session.ExpiresAt, nil
}

// TokenService returns the bearer token service.
func (c *Container) TokenService() sessionService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = sessionService.NewTokenService()
	})
	return c.tokenService
}

// SessionRepository returns the session repository based on database driver.
func (c *Container) SessionRepository() (sessionUseCase.SessionRepository, error) {
	var err error
	c.sessionRepositoryInit.Do(func() {
		c.sessionRepository, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepository"]; exists {
		return nil, storedErr
	}
	return c.sessionRepository, nil
}

// SessionUseCase returns the session use case.
func (c *Container) SessionUseCase() (sessionUseCase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUC, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUC, nil
}

// SessionHandler returns the HTTP handler for session self-service operations.
func (c *Container) SessionHandler() (*sessionHTTP.SessionHandler, error) {
	var err error
	c.sessionHandlerInit.Do(func() {
		c.sessionHandler, err = c.initSessionHandler()
		if err != nil {
			c.initErrors["sessionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionHandler"]; exists {
		return nil, storedErr
	}
	return c.sessionHandler, nil
}

// initSessionRepository creates the session repository based on the database driver.
func (c *Container) initSessionRepository() (sessionUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return sessionRepository.NewPostgreSQLSessionRepository(db), nil
	case "mysql":
		return sessionRepository.NewMySQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSessionUseCase creates the session use case with all its dependencies.
func (c *Container) initSessionUseCase() (sessionUseCase.SessionUseCase, error) {
	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session use case: %w", err)
	}

	baseUseCase := sessionUseCase.NewSessionUseCase(c.config, sessionRepo, c.TokenService())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for session use case: %w", err)
		}
		return sessionUseCase.NewSessionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSessionHandler creates the session HTTP handler with all its dependencies.
func (c *Container) initSessionHandler() (*sessionHTTP.SessionHandler, error) {
	sessionUC, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for session handler: %w", err)
	}

	return sessionHTTP.NewSessionHandler(sessionUC, c.Logger()), nil
}
