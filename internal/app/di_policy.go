package app

import (
	"fmt"

	policyHTTP "github.com/pbarbosa/tenantvault/internal/policy/http"
	policyRepository "github.com/pbarbosa/tenantvault/internal/policy/repository"
	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
)

// DomainRepository returns the tenant domain repository based on database driver.
func (c *Container) DomainRepository() (policyUseCase.DomainRepository, error) {
	var err error
	c.domainRepositoryInit.Do(func() {
		c.domainRepository, err = c.initDomainRepository()
		if err != nil {
			c.initErrors["domainRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["domainRepository"]; exists {
		return nil, storedErr
	}
	return c.domainRepository, nil
}

// PolicyUseCase returns the policy use case.
func (c *Container) PolicyUseCase() (policyUseCase.PolicyUseCase, error) {
	var err error
	c.policyUseCaseInit.Do(func() {
		c.policyUC, err = c.initPolicyUseCase()
		if err != nil {
			c.initErrors["policyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyUseCase"]; exists {
		return nil, storedErr
	}
	return c.policyUC, nil
}

// DomainHandler returns the HTTP handler for tenant domain administration.
func (c *Container) DomainHandler() (*policyHTTP.DomainHandler, error) {
	var err error
	c.domainHandlerInit.Do(func() {
		c.domainHandler, err = c.initDomainHandler()
		if err != nil {
			c.initErrors["domainHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["domainHandler"]; exists {
		return nil, storedErr
	}
	return c.domainHandler, nil
}

// initDomainRepository creates the tenant domain repository based on the database driver.
func (c *Container) initDomainRepository() (policyUseCase.DomainRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for domain repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return policyRepository.NewPostgreSQLDomainRepository(db), nil
	case "mysql":
		return policyRepository.NewMySQLDomainRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPolicyUseCase creates the policy use case with all its dependencies.
func (c *Container) initPolicyUseCase() (policyUseCase.PolicyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for policy use case: %w", err)
	}

	domainRepo, err := c.DomainRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get domain repository for policy use case: %w", err)
	}

	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for policy use case: %w", err)
	}

	return policyUseCase.NewPolicyUseCase(txManager, domainRepo, roleRepo), nil
}

// initDomainHandler creates the domain HTTP handler with all its dependencies.
func (c *Container) initDomainHandler() (*policyHTTP.DomainHandler, error) {
	policyUC, err := c.PolicyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for domain handler: %w", err)
	}

	brokerUC, err := c.BrokerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker use case for domain handler: %w", err)
	}

	kvUC, err := c.KVUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv use case for domain handler: %w", err)
	}

	return policyHTTP.NewDomainHandler(policyUC, brokerUC, kvUC, c.Logger()), nil
}
