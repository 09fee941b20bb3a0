package app

import (
	"fmt"

	auditHTTP "github.com/pbarbosa/tenantvault/internal/audit/http"
	auditRepository "github.com/pbarbosa/tenantvault/internal/audit/repository"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
)

// DecisionLogRepository returns the decision log repository based on database driver.
func (c *Container) DecisionLogRepository() (auditUseCase.DecisionLogRepository, error) {
	var err error
	c.decisionLogRepositoryInit.Do(func() {
		c.decisionLogRepository, err = c.initDecisionLogRepository()
		if err != nil {
			c.initErrors["decisionLogRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["decisionLogRepository"]; exists {
		return nil, storedErr
	}
	return c.decisionLogRepository, nil
}

// AuditUseCase returns the audit use case.
func (c *Container) AuditUseCase() (auditUseCase.AuditUseCase, error) {
	var err error
	c.auditUseCaseInit.Do(func() {
		c.auditUC, err = c.initAuditUseCase()
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUC, nil
}

// DecisionLogHandler returns the HTTP handler for decision log retrieval.
func (c *Container) DecisionLogHandler() (*auditHTTP.DecisionLogHandler, error) {
	var err error
	c.decisionLogHandlerInit.Do(func() {
		c.decisionLogHandler, err = c.initDecisionLogHandler()
		if err != nil {
			c.initErrors["decisionLogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["decisionLogHandler"]; exists {
		return nil, storedErr
	}
	return c.decisionLogHandler, nil
}

// initDecisionLogRepository creates the decision log repository based on the database driver.
func (c *Container) initDecisionLogRepository() (auditUseCase.DecisionLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for decision log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLDecisionLogRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLDecisionLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditUseCase creates the audit use case with all its dependencies.
func (c *Container) initAuditUseCase() (auditUseCase.AuditUseCase, error) {
	decisionLogRepo, err := c.DecisionLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get decision log repository for audit use case: %w", err)
	}

	return auditUseCase.NewAuditUseCase(decisionLogRepo), nil
}

// initDecisionLogHandler creates the decision log HTTP handler with all its dependencies.
func (c *Container) initDecisionLogHandler() (*auditHTTP.DecisionLogHandler, error) {
	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for decision log handler: %w", err)
	}

	return auditHTTP.NewDecisionLogHandler(auditUC, c.Logger()), nil
}
