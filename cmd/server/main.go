package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/config"
	"gym_backoffice_echo/internal/handlers"
	"gym_backoffice_echo/internal/metrics"
	apiMiddleware "gym_backoffice_echo/internal/middleware"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/session"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// Initialize Database
	db, err := services.InitDB(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; without it every read goes to the database
	var redisCache *services.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, caching disabled: %v", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}
	cache := services.NewCache(redisCache, cfg.CacheTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedger(reg)

	accounts := services.NewAccountService(db, cache)
	deps := handlers.Dependencies{
		Accounts:     accounts,
		Directory:    services.NewDirectoryService(db, cache),
		Catalog:      services.NewCatalogService(db, cache),
		Ledger:       services.NewLedgerService(db, cache, ledgerMetrics),
		Reports:      services.NewReportService(db),
		Sessions:     session.NewManager(cfg.JWTSecret, cfg.SessionTTL),
		SecureCookie: cfg.IsProduction(),
	}

	if cfg.BootstrapAdmin() {
		if err := accounts.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminDNI, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to create initial administrator: %v", err)
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = apiMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	handlers.RegisterRoutes(e, deps)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
	e.GET("/healthz", healthz(db, redisCache))

	log.Printf("Server starting on port %s", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func healthz(db *gorm.DB, redisCache *services.RedisCache) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok"}
		code := http.StatusOK

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}

		// Redis only degrades caching, so it never fails the check
		if redisCache != nil {
			status["redis"] = "ok"
			if err := redisCache.Ping(ctx); err != nil {
				status["redis"] = "unavailable"
			}
		}
		return c.JSON(code, status)
	}
}
