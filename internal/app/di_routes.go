package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	identityHTTP "github.com/pbarbosa/tenantvault/internal/identity/http"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionHTTP "github.com/pbarbosa/tenantvault/internal/session/http"
)

// routeRegistrar assembles every module handler and returns the route
// registration function for the API server. The data plane (kv, creds) is
// gated by the session's own rule set inside the use cases; only the admin
// plane carries explicit capability checks on sys resources.
func (c *Container) routeRegistrar() (func(*gin.Engine), error) {
	logger := c.Logger()

	sessionUC, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for routes: %w", err)
	}

	loginHandler, err := c.LoginHandler()
	if err != nil {
		return nil, err
	}
	trustDomainHandler, err := c.TrustDomainHandler()
	if err != nil {
		return nil, err
	}
	bindingHandler, err := c.BindingHandler()
	if err != nil {
		return nil, err
	}
	sessionHandler, err := c.SessionHandler()
	if err != nil {
		return nil, err
	}
	secretHandler, err := c.SecretHandler()
	if err != nil {
		return nil, err
	}
	credentialHandler, err := c.CredentialHandler()
	if err != nil {
		return nil, err
	}
	roleHandler, err := c.RoleHandler()
	if err != nil {
		return nil, err
	}
	domainHandler, err := c.DomainHandler()
	if err != nil {
		return nil, err
	}
	decisionLogHandler, err := c.DecisionLogHandler()
	if err != nil {
		return nil, err
	}

	cfg := c.config

	return func(router *gin.Engine) {
		v1 := router.Group("/v1")

		// Login is the only unauthenticated endpoint; it is rate limited
		// per client IP.
		login := v1.Group("")
		if cfg.RateLimitLoginEnabled {
			login.Use(identityHTTP.LoginRateLimitMiddleware(
				cfg.RateLimitLoginRequestsPerSec,
				cfg.RateLimitLoginBurst,
				logger,
			))
		}
		login.POST("/login", loginHandler.LoginHandler)

		authenticated := v1.Group("")
		authenticated.Use(sessionHTTP.AuthenticationMiddleware(sessionUC, logger))
		if cfg.RateLimitEnabled {
			authenticated.Use(sessionHTTP.RateLimitMiddleware(
				cfg.RateLimitRequestsPerSec,
				cfg.RateLimitBurst,
				logger,
			))
		}

		// Session self-service.
		authenticated.GET("/session", sessionHandler.GetHandler)
		authenticated.POST("/session/renew", sessionHandler.RenewHandler)
		authenticated.POST("/session/revoke", sessionHandler.RevokeHandler)

		// Versioned secret store.
		authenticated.POST("/kv/*path", secretHandler.CreateOrUpdateHandler)
		authenticated.GET("/kv/*path", secretHandler.GetHandler)
		authenticated.DELETE("/kv/*path", secretHandler.DeleteHandler)
		authenticated.POST("/kv-undelete/*path", secretHandler.UndeleteHandler)
		authenticated.POST("/kv-destroy/*path", secretHandler.DestroyHandler)
		authenticated.GET("/kv-list", secretHandler.ListHandler)

		// Dynamic credentials.
		authenticated.POST("/creds/:domain_id/:role", credentialHandler.IssueHandler)
		authenticated.POST("/leases/:id/renew", credentialHandler.RenewHandler)
		authenticated.DELETE("/leases/:id", credentialHandler.RevokeHandler)

		admin := authenticated.Group("/admin")

		domains := admin.Group("/domains")
		domains.POST("",
			sessionHTTP.AuthorizationMiddleware("sys/domains", policyDomain.CreateCapability, logger),
			domainHandler.CreateHandler)
		domains.GET("",
			sessionHTTP.AuthorizationMiddleware("sys/domains", policyDomain.ReadCapability, logger),
			domainHandler.ListHandler)
		domains.GET("/:id",
			sessionHTTP.AuthorizationMiddleware("sys/domains", policyDomain.ReadCapability, logger),
			domainHandler.GetHandler)
		domains.PUT("/:id",
			sessionHTTP.AuthorizationMiddleware("sys/domains", policyDomain.UpdateCapability, logger),
			domainHandler.UpdateHandler)
		domains.DELETE("/:id",
			sessionHTTP.AuthorizationMiddleware("sys/domains", policyDomain.DeleteCapability, logger),
			domainHandler.DeleteHandler)

		trustDomains := admin.Group("/trust-domains")
		trustDomains.POST("",
			sessionHTTP.AuthorizationMiddleware("sys/trust-domains", policyDomain.CreateCapability, logger),
			trustDomainHandler.CreateHandler)
		trustDomains.GET("",
			sessionHTTP.AuthorizationMiddleware("sys/trust-domains", policyDomain.ReadCapability, logger),
			trustDomainHandler.ListHandler)
		trustDomains.DELETE("",
			sessionHTTP.AuthorizationMiddleware("sys/trust-domains", policyDomain.DeleteCapability, logger),
			trustDomainHandler.DeleteHandler)

		bindings := admin.Group("/bindings")
		bindings.POST("",
			sessionHTTP.AuthorizationMiddleware("sys/bindings", policyDomain.CreateCapability, logger),
			bindingHandler.CreateHandler)
		bindings.GET("",
			sessionHTTP.AuthorizationMiddleware("sys/bindings", policyDomain.ReadCapability, logger),
			bindingHandler.ListHandler)
		bindings.DELETE("/:id",
			sessionHTTP.AuthorizationMiddleware("sys/bindings", policyDomain.DeleteCapability, logger),
			bindingHandler.DeleteHandler)

		roles := admin.Group("/roles")
		roles.POST("",
			sessionHTTP.AuthorizationMiddleware("sys/roles", policyDomain.CreateCapability, logger),
			roleHandler.CreateHandler)
		roles.GET("",
			sessionHTTP.AuthorizationMiddleware("sys/roles", policyDomain.ReadCapability, logger),
			roleHandler.ListHandler)
		roles.GET("/:domain_id/:name",
			sessionHTTP.AuthorizationMiddleware("sys/roles", policyDomain.ReadCapability, logger),
			roleHandler.GetHandler)
		roles.DELETE("/:domain_id/:name",
			sessionHTTP.AuthorizationMiddleware("sys/roles", policyDomain.DeleteCapability, logger),
			roleHandler.DeleteHandler)

		admin.GET("/leases",
			sessionHTTP.AuthorizationMiddleware("sys/leases", policyDomain.ReadCapability, logger),
			credentialHandler.ListLeasesHandler)

		admin.GET("/decision-logs",
			sessionHTTP.AuthorizationMiddleware("sys/decision-logs", policyDomain.ReadCapability, logger),
			decisionLogHandler.ListHandler)
	}, nil
}
