package handlers

import (
	"github.com/labstack/echo/v4"

	authMiddleware "gym_backoffice_echo/internal/middleware"
	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/session"
)

// Dependencies are the services the HTTP API is built on
type Dependencies struct {
	Accounts     *services.AccountService
	Directory    *services.DirectoryService
	Catalog      *services.CatalogService
	Ledger       *services.LedgerService
	Reports      *services.ReportService
	Sessions     *session.Manager
	SecureCookie bool
}

// RegisterRoutes mounts the API on e
func RegisterRoutes(e *echo.Echo, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Accounts, deps.Sessions, deps.SecureCookie)
	userHandler := NewUserHandler(deps.Accounts)
	socioHandler := NewSocioHandler(deps.Directory)
	shareHandler := NewShareHandler(deps.Catalog)
	paymentHandler := NewPaymentHandler(deps.Ledger)
	reportHandler := NewReportHandler(deps.Reports)

	adminOnly := authMiddleware.RequireRole(models.UserRoleAdmin)

	// Public routes
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	// Protected routes
	protected := e.Group("")
	protected.Use(authMiddleware.RequireAuth(deps.Sessions, deps.Accounts))
	protected.GET("/auth/me", authHandler.Me)

	// User routes
	protected.GET("/users", userHandler.ListUsers, adminOnly)
	protected.GET("/users/:id", userHandler.GetUser, adminOnly)
	protected.POST("/users", userHandler.StoreUser, adminOnly)
	protected.PUT("/users/:id", userHandler.UpdateUser, adminOnly)
	protected.DELETE("/users/:id", userHandler.DeleteUser, adminOnly)

	// Socio routes
	protected.GET("/trainers", socioHandler.ListTrainers)
	protected.GET("/socios", socioHandler.ListSocios)
	protected.GET("/socios/:id", socioHandler.GetSocio)
	protected.POST("/socios", socioHandler.StoreSocio)
	protected.PUT("/socios/:id", socioHandler.UpdateSocio)
	protected.DELETE("/socios/:id", socioHandler.DeleteSocio)

	// Share routes
	protected.GET("/shares", shareHandler.ListShares)
	protected.GET("/shares/:id", shareHandler.GetShare)
	protected.POST("/shares", shareHandler.StoreShare, adminOnly)
	protected.PUT("/shares/:id", shareHandler.UpdateShare, adminOnly)
	protected.DELETE("/shares/:id", shareHandler.DeleteShare, adminOnly)

	// Payment routes
	protected.GET("/payments", paymentHandler.ListPayments)
	protected.POST("/payments/generate", paymentHandler.GeneratePayments)
	protected.PATCH("/payments/:id/toggle", paymentHandler.TogglePaid)
	protected.PATCH("/payments/:id", paymentHandler.ReassignShare)
	protected.DELETE("/payments/:id", paymentHandler.DeletePayment)

	// Report routes
	protected.GET("/reports/summary", reportHandler.Summary, adminOnly)
}
