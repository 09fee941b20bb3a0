package app

import (
	"fmt"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerHTTP "github.com/pbarbosa/tenantvault/internal/broker/http"
	brokerRepository "github.com/pbarbosa/tenantvault/internal/broker/repository"
	brokerService "github.com/pbarbosa/tenantvault/internal/broker/service"
	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
)

// CredentialService returns the username and password generator for
// brokered principals.
func (c *Container) CredentialService() brokerService.CredentialService {
	c.credentialServiceInit.Do(func() {
		c.credentialService = brokerService.NewCredentialService()
	})
	return c.credentialService
}

// Connectors returns the credential backend connectors keyed by backend type.
func (c *Container) Connectors() map[brokerDomain.Backend]brokerService.Connector {
	c.connectorsInit.Do(func() {
		c.connectors = map[brokerDomain.Backend]brokerService.Connector{
			brokerDomain.PostgresBackend: brokerService.NewPostgresConnector(),
			brokerDomain.MySQLBackend:    brokerService.NewMySQLConnector(),
		}
	})
	return c.connectors
}

// RoleRepository returns the credential role repository based on database driver.
func (c *Container) RoleRepository() (brokerUseCase.RoleRepository, error) {
	var err error
	c.roleRepositoryInit.Do(func() {
		c.roleRepository, err = c.initRoleRepository()
		if err != nil {
			c.initErrors["roleRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleRepository"]; exists {
		return nil, storedErr
	}
	return c.roleRepository, nil
}

// LeaseRepository returns the lease repository based on database driver.
func (c *Container) LeaseRepository() (brokerUseCase.LeaseRepository, error) {
	var err error
	c.leaseRepositoryInit.Do(func() {
		c.leaseRepository, err = c.initLeaseRepository()
		if err != nil {
			c.initErrors["leaseRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["leaseRepository"]; exists {
		return nil, storedErr
	}
	return c.leaseRepository, nil
}

// BrokerUseCase returns the broker use case.
func (c *Container) BrokerUseCase() (brokerUseCase.BrokerUseCase, error) {
	var err error
	c.brokerUseCaseInit.Do(func() {
		c.brokerUC, err = c.initBrokerUseCase()
		if err != nil {
			c.initErrors["brokerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["brokerUseCase"]; exists {
		return nil, storedErr
	}
	return c.brokerUC, nil
}

// Sweeper returns the lease revocation sweeper.
func (c *Container) Sweeper() (*brokerUseCase.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// CredentialHandler returns the HTTP handler for credential and lease operations.
func (c *Container) CredentialHandler() (*brokerHTTP.CredentialHandler, error) {
	var err error
	c.credentialHandlerInit.Do(func() {
		c.credentialHandler, err = c.initCredentialHandler()
		if err != nil {
			c.initErrors["credentialHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["credentialHandler"]; exists {
		return nil, storedErr
	}
	return c.credentialHandler, nil
}

// RoleHandler returns the HTTP handler for credential role administration.
func (c *Container) RoleHandler() (*brokerHTTP.RoleHandler, error) {
	var err error
	c.roleHandlerInit.Do(func() {
		c.roleHandler, err = c.initRoleHandler()
		if err != nil {
			c.initErrors["roleHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["roleHandler"]; exists {
		return nil, storedErr
	}
	return c.roleHandler, nil
}

// initRoleRepository creates the role repository based on the database driver.
func (c *Container) initRoleRepository() (brokerUseCase.RoleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for role repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return brokerRepository.NewPostgreSQLRoleRepository(db), nil
	case "mysql":
		return brokerRepository.NewMySQLRoleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLeaseRepository creates the lease repository based on the database driver.
func (c *Container) initLeaseRepository() (brokerUseCase.LeaseRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for lease repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return brokerRepository.NewPostgreSQLLeaseRepository(db), nil
	case "mysql":
		return brokerRepository.NewMySQLLeaseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBrokerUseCase creates the broker use case with all its dependencies.
func (c *Container) initBrokerUseCase() (brokerUseCase.BrokerUseCase, error) {
	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for broker use case: %w", err)
	}

	leaseRepo, err := c.LeaseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get lease repository for broker use case: %w", err)
	}

	baseUseCase := brokerUseCase.NewBrokerUseCase(
		roleRepo,
		leaseRepo,
		c.Connectors(),
		c.CredentialService(),
		brokerUseCase.BrokerConfig{
			LeaseTTL:             c.config.LeaseTTL,
			LeaseMaxTTL:          c.config.LeaseMaxTTL,
			IssueRetryAttempts:   c.config.IssueRetryAttempts,
			IssueRetryDelay:      c.config.IssueRetryDelay,
			RevokeRetryBaseDelay: c.config.RevokeRetryBaseDelay,
			RevokeRetryMaxDelay:  c.config.RevokeRetryMaxDelay,
		},
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for broker use case: %w", err)
		}
		return brokerUseCase.NewBrokerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSweeper creates the lease revocation sweeper with all its dependencies.
func (c *Container) initSweeper() (*brokerUseCase.Sweeper, error) {
	roleRepo, err := c.RoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get role repository for sweeper: %w", err)
	}

	leaseRepo, err := c.LeaseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get lease repository for sweeper: %w", err)
	}

	return brokerUseCase.NewSweeper(
		roleRepo,
		leaseRepo,
		c.Connectors(),
		brokerUseCase.SweeperConfig{
			Interval:       c.config.SweepInterval,
			BatchSize:      c.config.SweepBatchSize,
			RetryBaseDelay: c.config.RevokeRetryBaseDelay,
			RetryMaxDelay:  c.config.RevokeRetryMaxDelay,
		},
	), nil
}

// initCredentialHandler creates the credential HTTP handler with all its dependencies.
func (c *Container) initCredentialHandler() (*brokerHTTP.CredentialHandler, error) {
	brokerUC, err := c.BrokerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker use case for credential handler: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for credential handler: %w", err)
	}

	return brokerHTTP.NewCredentialHandler(brokerUC, auditUC, c.Logger()), nil
}

// initRoleHandler creates the role HTTP handler with all its dependencies.
func (c *Container) initRoleHandler() (*brokerHTTP.RoleHandler, error) {
	brokerUC, err := c.BrokerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker use case for role handler: %w", err)
	}

	return brokerHTTP.NewRoleHandler(brokerUC, c.Logger()), nil
}
