package app

import (
	"fmt"

	identityHTTP "github.com/pbarbosa/tenantvault/internal/identity/http"
	identityRepository "github.com/pbarbosa/tenantvault/internal/identity/repository"
	identityService "github.com/pbarbosa/tenantvault/internal/identity/service"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
)

// KeyCache returns the verification key cache for offline trust domains.
// The server command runs its refresh loop; CLI commands can use it one-shot.
func (c *Container) KeyCache() (*identityService.KeyCache, error) {
	var err error
	c.keyCacheInit.Do(func() {
		c.keyCache, err = c.initKeyCache()
		if err != nil {
			c.initErrors["keyCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyCache"]; exists {
		return nil, storedErr
	}
	return c.keyCache, nil
}

// Verifier returns the mode-dispatching assertion verifier.
func (c *Container) Verifier() (identityService.AssertionVerifier, error) {
	var err error
	c.verifierInit.Do(func() {
		c.verifier, err = c.initVerifier()
		if err != nil {
			c.initErrors["verifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifier"]; exists {
		return nil, storedErr
	}
	return c.verifier, nil
}

// TrustDomainRepository returns the trust domain repository based on database driver.
func (c *Container) TrustDomainRepository() (identityUseCase.TrustDomainRepository, error) {
	var err error
	c.trustDomainRepositoryInit.Do(func() {
		c.trustDomainRepository, err = c.initTrustDomainRepository()
		if err != nil {
			c.initErrors["trustDomainRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["trustDomainRepository"]; exists {
		return nil, storedErr
	}
	return c.trustDomainRepository, nil
}

// BindingRepository returns the binding repository based on database driver.
func (c *Container) BindingRepository() (identityUseCase.BindingRepository, error) {
	var err error
	c.bindingRepositoryInit.Do(func() {
		c.bindingRepository, err = c.initBindingRepository()
		if err != nil {
			c.initErrors["bindingRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bindingRepository"]; exists {
		return nil, storedErr
	}
	return c.bindingRepository, nil
}

// IdentityUseCase returns the identity use case.
func (c *Container) IdentityUseCase() (identityUseCase.IdentityUseCase, error) {
	var err error
	c.identityUseCaseInit.Do(func() {
		c.identityUC, err = c.initIdentityUseCase()
		if err != nil {
			c.initErrors["identityUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identityUseCase"]; exists {
		return nil, storedErr
	}
	return c.identityUC, nil
}

// LoginHandler returns the HTTP handler for workload authentication.
func (c *Container) LoginHandler() (*identityHTTP.LoginHandler, error) {
	var err error
	c.loginHandlerInit.Do(func() {
		c.loginHandler, err = c.initLoginHandler()
		if err != nil {
			c.initErrors["loginHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["loginHandler"]; exists {
		return nil, storedErr
	}
	return c.loginHandler, nil
}

// TrustDomainHandler returns the HTTP handler for trust domain administration.
func (c *Container) TrustDomainHandler() (*identityHTTP.TrustDomainHandler, error) {
	var err error
	c.trustDomainHandlerInit.Do(func() {
		c.trustDomainHandler, err = c.initTrustDomainHandler()
		if err != nil {
			c.initErrors["trustDomainHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["trustDomainHandler"]; exists {
		return nil, storedErr
	}
	return c.trustDomainHandler, nil
}

// BindingHandler returns the HTTP handler for binding administration.
func (c *Container) BindingHandler() (*identityHTTP.BindingHandler, error) {
	var err error
	c.bindingHandlerInit.Do(func() {
		c.bindingHandler, err = c.initBindingHandler()
		if err != nil {
			c.initErrors["bindingHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bindingHandler"]; exists {
		return nil, storedErr
	}
	return c.bindingHandler, nil
}

// initKeyCache creates the verification key cache backed by the trust
// domain repository.
func (c *Container) initKeyCache() (*identityService.KeyCache, error) {
	trustDomainRepo, err := c.TrustDomainRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get trust domain repository for key cache: %w", err)
	}

	return identityService.NewKeyCache(trustDomainRepo), nil
}

// initVerifier creates the assertion verifier with offline and live modes.
func (c *Container) initVerifier() (identityService.AssertionVerifier, error) {
	keyCache, err := c.KeyCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get key cache for verifier: %w", err)
	}

	offline := identityService.NewOfflineVerifier(keyCache, c.config.IdentityNamespaceClaim)
	live := identityService.NewLiveVerifier(c.config.IdentityLiveTimeout, c.config.IdentityNamespaceClaim)

	return identityService.NewVerifier(offline, live), nil
}

// initTrustDomainRepository creates the trust domain repository based on the database driver.
func (c *Container) initTrustDomainRepository() (identityUseCase.TrustDomainRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for trust domain repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLTrustDomainRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLTrustDomainRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBindingRepository creates the binding repository based on the database driver.
func (c *Container) initBindingRepository() (identityUseCase.BindingRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for binding repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLBindingRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLBindingRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initIdentityUseCase creates the identity use case with all its dependencies.
func (c *Container) initIdentityUseCase() (identityUseCase.IdentityUseCase, error) {
	trustDomainRepo, err := c.TrustDomainRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get trust domain repository for identity use case: %w", err)
	}

	bindingRepo, err := c.BindingRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get binding repository for identity use case: %w", err)
	}

	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for identity use case: %w", err)
	}

	policyUC, err := c.PolicyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for identity use case: %w", err)
	}

	sessionUC, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for identity use case: %w", err)
	}

	baseUseCase := identityUseCase.NewIdentityUseCase(
		trustDomainRepo,
		bindingRepo,
		verifier,
		policyUC,
		policyUC,
		&sessionIssuer{sessions: sessionUC},
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for identity use case: %w", err)
		}
		return identityUseCase.NewIdentityUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initLoginHandler creates the login HTTP handler with all its dependencies.
func (c *Container) initLoginHandler() (*identityHTTP.LoginHandler, error) {
	identityUC, err := c.IdentityUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity use case for login handler: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for login handler: %w", err)
	}

	return identityHTTP.NewLoginHandler(identityUC, auditUC, c.Logger()), nil
}

// initTrustDomainHandler creates the trust domain HTTP handler with all its dependencies.
func (c *Container) initTrustDomainHandler() (*identityHTTP.TrustDomainHandler, error) {
	identityUC, err := c.IdentityUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity use case for trust domain handler: %w", err)
	}

	return identityHTTP.NewTrustDomainHandler(identityUC, c.Logger()), nil
}

// initBindingHandler creates the binding HTTP handler with all its dependencies.
func (c *Container) initBindingHandler() (*identityHTTP.BindingHandler, error) {
	identityUC, err := c.IdentityUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity use case for binding handler: %w", err)
	}

	return identityHTTP.NewBindingHandler(identityUC, c.Logger()), nil
}
