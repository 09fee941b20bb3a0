// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pbarbosa/tenantvault/internal/config"
	"github.com/pbarbosa/tenantvault/internal/database"
	"github.com/pbarbosa/tenantvault/internal/http"
	"github.com/pbarbosa/tenantvault/internal/metrics"

	auditHTTP "github.com/pbarbosa/tenantvault/internal/audit/http"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerHTTP "github.com/pbarbosa/tenantvault/internal/broker/http"
	brokerService "github.com/pbarbosa/tenantvault/internal/broker/service"
	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
	identityHTTP "github.com/pbarbosa/tenantvault/internal/identity/http"
	identityService "github.com/pbarbosa/tenantvault/internal/identity/service"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
	kvHTTP "github.com/pbarbosa/tenantvault/internal/kv/http"
	kvService "github.com/pbarbosa/tenantvault/internal/kv/service"
	kvUseCase "github.com/pbarbosa/tenantvault/internal/kv/usecase"
	policyHTTP "github.com/pbarbosa/tenantvault/internal/policy/http"
	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
	sessionHTTP "github.com/pbarbosa/tenantvault/internal/session/http"
	sessionService "github.com/pbarbosa/tenantvault/internal/session/service"
	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Services
	tokenService      sessionService.TokenService
	keeper            kvService.Keeper
	keyCache          *identityService.KeyCache
	verifier          identityService.AssertionVerifier
	credentialService brokerService.CredentialService
	connectors        map[brokerDomain.Backend]brokerService.Connector

	// Repositories
	domainRepository      policyUseCase.DomainRepository
	trustDomainRepository identityUseCase.TrustDomainRepository
	bindingRepository     identityUseCase.BindingRepository
	sessionRepository     sessionUseCase.SessionRepository
	secretRepository      kvUseCase.SecretRepository
	roleRepository        brokerUseCase.RoleRepository
	leaseRepository       brokerUseCase.LeaseRepository
	decisionLogRepository auditUseCase.DecisionLogRepository

	// Use Cases
	policyUC   policyUseCase.PolicyUseCase
	identityUC identityUseCase.IdentityUseCase
	sessionUC  sessionUseCase.SessionUseCase
	kvUC       kvUseCase.KVUseCase
	brokerUC   brokerUseCase.BrokerUseCase
	auditUC    auditUseCase.AuditUseCase

	// Workers
	sweeper *brokerUseCase.Sweeper

	// HTTP handlers
	loginHandler       *identityHTTP.LoginHandler
	trustDomainHandler *identityHTTP.TrustDomainHandler
	bindingHandler     *identityHTTP.BindingHandler
	sessionHandler     *sessionHTTP.SessionHandler
	secretHandler      *kvHTTP.SecretHandler
	credentialHandler  *brokerHTTP.CredentialHandler
	roleHandler        *brokerHTTP.RoleHandler
	domainHandler      *policyHTTP.DomainHandler
	decisionLogHandler *auditHTTP.DecisionLogHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                        sync.Mutex
	loggerInit                sync.Once
	dbInit                    sync.Once
	txManagerInit             sync.Once
	metricsProviderInit       sync.Once
	businessMetricsInit       sync.Once
	tokenServiceInit          sync.Once
	keeperInit                sync.Once
	keyCacheInit              sync.Once
	verifierInit              sync.Once
	credentialServiceInit     sync.Once
	connectorsInit            sync.Once
	domainRepositoryInit      sync.Once
	trustDomainRepositoryInit sync.Once
	bindingRepositoryInit     sync.Once
	sessionRepositoryInit     sync.Once
	secretRepositoryInit      sync.Once
	roleRepositoryInit        sync.Once
	leaseRepositoryInit       sync.Once
	decisionLogRepositoryInit sync.Once
	policyUseCaseInit         sync.Once
	identityUseCaseInit       sync.Once
	sessionUseCaseInit        sync.Once
	kvUseCaseInit             sync.Once
	brokerUseCaseInit         sync.Once
	auditUseCaseInit          sync.Once
	sweeperInit               sync.Once
	loginHandlerInit          sync.Once
	trustDomainHandlerInit    sync.Once
	bindingHandlerInit        sync.Once
	sessionHandlerInit        sync.Once
	secretHandlerInit         sync.Once
	credentialHandlerInit     sync.Once
	roleHandlerInit           sync.Once
	domainHandlerInit         sync.Once
	decisionLogHandlerInit    sync.Once
	httpServerInit            sync.Once
	metricsServerInit         sync.Once
	initErrors                map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
// Returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Returns a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the API HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance.
// Returns nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.keeper != nil {
		if err := c.keeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("keeper close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	registrar, err := c.routeRegistrar()
	if err != nil {
		return nil, err
	}

	opts := []http.Option{
		http.WithCORS(c.config.CORSEnabled, c.config.CORSAllowOrigins),
	}

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		opts = append(opts, http.WithMiddleware(
			metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace),
		))
	}

	opts = append(opts, http.WithRoutes(registrar))

	return http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger, opts...), nil
}

// initMetricsServer creates the metrics HTTP server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
