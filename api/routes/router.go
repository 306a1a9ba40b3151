// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"raffle/internal/access"
	"raffle/internal/checkout"
	"raffle/internal/sales"
	"raffle/internal/shared/config"
	"raffle/internal/shared/database"
	"raffle/internal/shared/middleware"
	"raffle/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Services are the long lived domain services built in main
type Services struct {
	Checkout checkout.Service
	Sales    sales.Service
	Access   access.Service
}

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	services Services
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, services Services) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		services: services,
	}
}

// SetupRoutes configures all application routes. The browser client calls
// them at the root, so there is no versioned prefix.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	r.setupAccessRoutes(engine)
	checkoutController := r.setupCheckoutRoutes(engine)

	// Operator routes need the token issued by /verify_password
	operator := engine.Group("")
	operator.Use(middleware.JWTAuthWithConfig(r.config), middleware.RequireRole(access.RoleOperator))
	{
		checkout.SetupOperatorRoutes(operator, checkoutController)
		r.setupSalesRoutes(operator.Group("/admin"))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}

// setupAccessRoutes configures the password gate and public key routes
func (r *Router) setupAccessRoutes(rg gin.IRoutes) {
	accessController := access.NewController(r.services.Access)
	access.SetupAccessRoutes(rg, accessController)
}

// setupCheckoutRoutes configures the reservation and payment routes
func (r *Router) setupCheckoutRoutes(rg gin.IRoutes) *checkout.Controller {
	// Redis backs idempotent retries when available; otherwise they only
	// survive for the process lifetime
	var store cache.Service
	if redisClient := r.db.GetRedisClient(); redisClient != nil {
		store = cache.NewService(redisClient)
	} else {
		store = cache.NewMemoryService()
	}
	idempotency := cache.IdempotencyMiddleware(cache.NewIdempotencyStore(store, r.config.Redis.IdempotencyTTL))

	checkoutController := checkout.NewController(r.services.Checkout)
	checkout.SetupCheckoutRoutes(rg, checkoutController, idempotency)
	return checkoutController
}

// setupSalesRoutes configures the sales ledger routes
func (r *Router) setupSalesRoutes(admin *gin.RouterGroup) {
	salesController := sales.NewController(r.services.Sales)
	sales.SetupSalesRoutes(admin, salesController)
}
