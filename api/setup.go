package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	orderHandlers "backend/api/handlers/orders"
	productHandlers "backend/api/handlers/products"
	storeHandlers "backend/api/handlers/stores"
	"backend/internal/config"
	"backend/internal/logger"
	"backend/internal/middleware"
	"backend/internal/store"
	"backend/internal/tenancy"
)

// SetupRouter wires the gin router. Storefront routes run behind the
// store-resolution middleware; admin routes stay unscoped.
func SetupRouter(db *gorm.DB, registry *tenancy.Registry, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	storeService := store.NewService(db, registry, logger.Get())

	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	storeHandler := storeHandlers.NewHandler(storeService)
	productHandler := productHandlers.NewHandler(db)
	orderHandler := orderHandlers.NewHandler(db)

	// Administrative endpoints operate across stores.
	admin := router.Group("/admin")
	{
		adminStores := admin.Group("/stores")
		adminStores.POST("", storeHandler.Create)
		adminStores.GET("", storeHandler.List)
		adminStores.GET("/:id", storeHandler.Get)
		adminStores.GET("/:id/products", storeHandler.Products)
		adminStores.DELETE("/:id", storeHandler.Delete)
	}

	// Storefront endpoints see only the resolved store's data.
	api := router.Group("/api")
	api.Use(middleware.StoreContext(storeService), middleware.RequireStore())
	{
		products := api.Group("/products")
		products.GET("", productHandler.List)
		products.GET("/:slug", productHandler.Get)
		products.POST("", productHandler.Create)

		orders := api.Group("/orders")
		orders.GET("", orderHandler.List)
		orders.GET("/:number", orderHandler.Get)
		orders.POST("", orderHandler.Create)
	}

	return router
}

// RequestLogger logs every request with latency and status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// HealthCheck reports liveness.
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "storefront",
		})
	}
}

// ReadinessCheck reports readiness including database connectivity.
func ReadinessCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{"status": "not_ready", "reason": "database connection error"})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "not_ready", "reason": "database ping failed"})
			return
		}
		c.JSON(200, gin.H{"status": "ready", "database": "connected"})
	}
}
