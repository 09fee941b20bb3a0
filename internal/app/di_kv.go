package app

import (
	"context"
	"fmt"

	kvHTTP "github.com/pbarbosa/tenantvault/internal/kv/http"
	kvRepository "github.com/pbarbosa/tenantvault/internal/kv/repository"
	kvService "github.com/pbarbosa/tenantvault/internal/kv/service"
	kvUseCase "github.com/pbarbosa/tenantvault/internal/kv/usecase"
)

// Keeper returns the encryption keeper protecting secret values at rest.
func (c *Container) Keeper() (kvService.Keeper, error) {
	var err error
	c.keeperInit.Do(func() {
		c.keeper, err = kvService.OpenKeeper(context.Background(), c.config)
		if err != nil {
			c.initErrors["keeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keeper"]; exists {
		return nil, storedErr
	}
	return c.keeper, nil
}

// SecretRepository returns the versioned secret repository based on database driver.
func (c *Container) SecretRepository() (kvUseCase.SecretRepository, error) {
	var err error
	c.secretRepositoryInit.Do(func() {
		c.secretRepository, err = c.initSecretRepository()
		if err != nil {
			c.initErrors["secretRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretRepository"]; exists {
		return nil, storedErr
	}
	return c.secretRepository, nil
}

// KVUseCase returns the kv use case.
func (c *Container) KVUseCase() (kvUseCase.KVUseCase, error) {
	var err error
	c.kvUseCaseInit.Do(func() {
		c.kvUC, err = c.initKVUseCase()
		if err != nil {
			c.initErrors["kvUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvUseCase"]; exists {
		return nil, storedErr
	}
	return c.kvUC, nil
}

// SecretHandler returns the HTTP handler for secret store operations.
func (c *Container) SecretHandler() (*kvHTTP.SecretHandler, error) {
	var err error
	c.secretHandlerInit.Do(func() {
		c.secretHandler, err = c.initSecretHandler()
		if err != nil {
			c.initErrors["secretHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretHandler"]; exists {
		return nil, storedErr
	}
	return c.secretHandler, nil
}

// initSecretRepository creates the secret repository based on the database driver.
func (c *Container) initSecretRepository() (kvUseCase.SecretRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for secret repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return kvRepository.NewPostgreSQLSecretRepository(db), nil
	case "mysql":
		return kvRepository.NewMySQLSecretRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKVUseCase creates the kv use case with all its dependencies.
func (c *Container) initKVUseCase() (kvUseCase.KVUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for kv use case: %w", err)
	}

	secretRepo, err := c.SecretRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret repository for kv use case: %w", err)
	}

	keeper, err := c.Keeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get keeper for kv use case: %w", err)
	}

	baseUseCase := kvUseCase.NewKVUseCase(txManager, secretRepo, keeper)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for kv use case: %w", err)
		}
		return kvUseCase.NewKVUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSecretHandler creates the secret HTTP handler with all its dependencies.
func (c *Container) initSecretHandler() (*kvHTTP.SecretHandler, error) {
	kvUC, err := c.KVUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv use case for secret handler: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for secret handler: %w", err)
	}

	return kvHTTP.NewSecretHandler(kvUC, auditUC, c.Logger()), nil
}
