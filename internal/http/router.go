package http

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// corsMiddleware allows the configured origins, or every origin when none are
// set or the list contains "*".
func corsMiddleware(cfg config.CORS) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.CORS))

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	identity := cfg.AuthMiddleware
	if identity == nil {
		identity = auth.NewMiddleware(nil, config.Auth{Mode: config.AuthModeNone})
	}
	router.Use(identity.Handler())

	staff := identity.RequireRole(entities.UserRoleAdmin, entities.UserRoleLibrarian)
	adminOnly := identity.RequireRole(entities.UserRoleAdmin)

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Authentication and two-factor endpoints
	if cfg.Auth != nil {
		authController := NewAuthController(cfg.Auth, cfg.RateLimiter)
		router.POST("/register", authController.Register)
		router.POST("/signin", authController.SignIn)
		router.POST("/enable-2fa", authController.EnableTwoFactor)
		router.POST("/verify-2fa", authController.VerifyTwoFactor)
		router.POST("/disable-2fa", authController.DisableTwoFactor)
		router.POST("/verify-login-2fa", authController.VerifyLoginTwoFactor)
		router.GET("/profile/:user_id", authController.Profile)
	}

	// Catalog endpoints
	if cfg.Catalog != nil {
		booksController := NewBooksController(cfg.Catalog)
		router.GET("/books/available", booksController.AvailableBooks)
		router.GET("/books/all", booksController.AllBooks)
		router.GET("/books/id", booksController.GetBook)
		router.GET("/books/searchtext", booksController.SearchBooks)
		router.POST("/books/create", staff, booksController.CreateBook)
		router.PUT("/books/update", staff, booksController.UpdateBook)
		router.DELETE("/books/delete", staff, booksController.DeleteBook)
	}

	// User administration endpoints
	if cfg.Accounts != nil {
		usersController := NewUsersController(cfg.Accounts)
		router.GET("/user/all", usersController.ListUsers)
		router.GET("/user/searchtext", usersController.SearchUsers)
		router.GET("/user/role", usersController.UsersByRole)
		router.GET("/user/with-loans", usersController.UsersWithLoans)
		router.GET("/user/with-overdue", usersController.UsersWithOverdue)
		router.GET("/user/:user_id", usersController.GetUser)
		router.PUT("/editUsers/:user_id", usersController.EditUser)
		router.DELETE("/users/:user_id", usersController.DeleteUser)
	}

	// Loan lifecycle endpoints
	if cfg.Loans != nil {
		loansController := NewLoansController(cfg.Loans)
		router.GET("/loans/all", loansController.AllLoans)
		router.GET("/loans/complete", loansController.CompleteLoans)
		router.GET("/loans/status/filter", loansController.LoansByStatus)
		router.GET("/loans/overdue/all", loansController.OverdueLoans)
		router.GET("/loans/:loan_id", loansController.GetLoan)
		router.POST("/loans/create", staff, loansController.CreateLoan)
		router.PUT("/loans/return", staff, loansController.ReturnLoan)
		router.PUT("/loans/update-due-date", staff, loansController.UpdateDueDate)
		router.DELETE("/loans/delete", staff, loansController.DeleteLoan)
		router.GET("/user/:user_id/loans", loansController.UserLoans)
	}

	// Reservation endpoints
	if cfg.Reservations != nil {
		reservationsController := NewReservationsController(cfg.Reservations)
		router.POST("/reservations/create", reservationsController.CreateReservation)
		router.GET("/user/:user_id/reservations", reservationsController.UserReservations)
	}

	// Recommendation endpoints
	if cfg.Recommendations != nil {
		recommendationsController := NewRecommendationsController(cfg.Recommendations)
		router.POST("/recommendation", recommendationsController.SubmitRecommendation)
		router.GET("/recommendation/:userId", recommendationsController.GetRecommendations)
	}

	// Notification endpoints
	if cfg.Notifications != nil {
		notificationsController := NewNotificationsController(cfg.Notifications)
		router.GET("/notifications/books-due", notificationsController.BooksDue)
		router.GET("/notifications/upcoming-returns", notificationsController.UpcomingReturns)
		router.POST("/notifications/send-overdue", staff, notificationsController.SendOverdue)
		router.POST("/notifications/send-reminders", staff, notificationsController.SendReminders)
	}

	// Audit log
	if cfg.Auditor != nil {
		auditController := NewAuditController(cfg.Auditor)
		router.GET("/audit/events", adminOnly, auditController.GetAuditEvents)
		router.GET("/audit/:entity_type/:entity_id", adminOnly, auditController.GetEntityHistory)
	}

	return router
}
