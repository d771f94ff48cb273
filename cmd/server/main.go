package main

import (
	"context"                            // context package is needed for Redis operations
	"log"                                // log package is needed for logging
	"voucher_vault/internal/api"        // Custom package for API handlers
	"voucher_vault/internal/config"     // Custom package for configuration
	"voucher_vault/internal/middleware" // Custom package for middleware

	// For loading .env files
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Voucher routes (protected by JWT)
	voucherGroup := r.Group("/vouchers")
	// Protect voucher routes with JWT middleware and inject Redis client into context
	voucherGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	voucherGroup.GET("", api.ListVouchersHandler(db, redisClient))              // Filtered, searched, sorted list
	voucherGroup.POST("", api.AddVoucherHandler(db))                            // Add endpoint
	voucherGroup.PUT("/:id", api.EditVoucherHandler(db))                        // Edit endpoint
	voucherGroup.DELETE("/:id", api.DeleteVoucherHandler(db))                   // Delete endpoint
	voucherGroup.POST("/:id/use", api.PartialUseHandler(db))                    // Partial redemption endpoint
	voucherGroup.POST("/:id/toggle", api.ToggleVoucherHandler(db))              // Toggle endpoint
	voucherGroup.GET("/export", api.ExportVouchersHandler(db, redisClient))     // XLSX export endpoint
	voucherGroup.POST("/import", api.ImportVouchersHandler(db))                 // XLSX bulk import endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware, inject Redis client
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db), func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	})
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))           // List users endpoint
	adminGroup.GET("/vouchers", api.ListAllVouchersHandler(db, redisClient)) // List all vouchers endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
