package main

import (
	"context" // context package is needed for Redis operations
	"time"    // Redis ping timeout

	"group_savings/internal/api"    // Custom package for API handlers
	"group_savings/internal/config" // Custom package for configuration
	"group_savings/internal/db"     // Custom package for database setup
	"group_savings/internal/ledger" // Custom package for the savings ledger
	"group_savings/internal/mailer" // Custom package for outgoing mail
	"group_savings/internal/otp"    // Custom package for password reset codes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is required") // Refuse to sign tokens with an empty key
	}

	// Connect to the database and refuse to run on an old schema
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.CheckSchema(gdb); err != nil {
		logrus.Fatalf("schema check failed: %v", err)
	}

	// Setup Redis client, optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err = redisClient.Ping(ctx).Result()
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("Redis unreachable, running without cache") // Ledger and middleware are nil-safe
			_ = redisClient.Close()
			redisClient = nil
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, balance cache and sign-out revocation are disabled")
	}

	// Outgoing mail
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host: cfg.SMTPHost, // SMTP host, empty disables mail
		Port: cfg.SMTPPort, // SMTP port
		User: cfg.SMTPUser, // SMTP user
		Pass: cfg.SMTPPass, // SMTP password
		From: cfg.MailFrom, // Sender address
	})
	if cfg.SMTPHost == "" {
		logrus.Warn("SMTP_HOST not set, password reset codes will not be mailed")
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

	api.RegisterRoutes(r, api.Deps{
		DB:        gdb,                                // Relational store
		Redis:     redisClient,                        // Optional cache
		Ledger:    ledger.New(gdb, redisClient),       // Savings ledger
		OTP:       otp.New(gdb, sender, cfg.SiteName), // Password reset codes
		JWTSecret: cfg.JWTSecret,                      // Token signing key
	})

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {            // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
