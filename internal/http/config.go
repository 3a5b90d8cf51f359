package http

import (
	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/services"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Auth            *auth.Service
	Accounts        *services.AccountService
	Catalog         *services.CatalogService
	Loans           *services.LoanService
	Reservations    *services.ReservationService
	Recommendations *services.RecommendationService
	Notifications   *services.NotificationService

	// Audit log (optional)
	Auditor *audit.Service

	// Identity and sign-in protection
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter

	// Health check target (optional)
	Database Pinger

	CORS config.CORS

	// Application info
	Version string
}
