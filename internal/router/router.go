package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/merit-go-api/internal/config"
	"github.com/noah-isme/merit-go-api/internal/handler"
	"github.com/noah-isme/merit-go-api/internal/middleware"
	"github.com/noah-isme/merit-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	CreditHandler     *handler.CreditHandler
	AuditHandler      *handler.AuditHandler
	DocumentHandler   *handler.DocumentHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	rateLimit := middleware.RateLimit("api", cfg.RateLimitMax, cfg.RateLimitWindow)

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware, rateLimit)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.CreditHandler != nil {
		students := api.Group("/students", jwtMiddleware, rateLimit)
		deps.CreditHandler.RegisterStudentRoutes(students)

		ledger := api.Group("/credits", jwtMiddleware, rateLimit, middleware.RequireRole("admin"))
		deps.CreditHandler.RegisterLedgerRoutes(ledger)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AuditHandler.Register(audit)
	}

	if deps.DocumentHandler != nil {
		documents := api.Group("/documents", jwtMiddleware, rateLimit)
		deps.DocumentHandler.Register(documents)
	}
}
