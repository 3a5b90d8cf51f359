package entrypoint

import (
	"fmt"
	"log"

	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/database"
	auditrepo "github.com/librarydesk/librarydesk/internal/database/audit"
	"github.com/librarydesk/librarydesk/internal/database/books"
	"github.com/librarydesk/librarydesk/internal/database/loans"
	"github.com/librarydesk/librarydesk/internal/database/notifications"
	"github.com/librarydesk/librarydesk/internal/database/recommendations"
	"github.com/librarydesk/librarydesk/internal/database/reservations"
	"github.com/librarydesk/librarydesk/internal/database/users"
	http_controllers "github.com/librarydesk/librarydesk/internal/http"
	"github.com/librarydesk/librarydesk/internal/notify"
	"github.com/librarydesk/librarydesk/internal/services"
	"github.com/librarydesk/librarydesk/internal/twofactor"
)

// App holds the wired services shared by the server and the CLI commands.
type App struct {
	Config *config.Config
	DB     *database.Database

	Users   *users.Repository
	Auditor *audit.Service
	Tokens  *auth.TokenIssuer

	Auth            *auth.Service
	Accounts        *services.AccountService
	Catalog         *services.CatalogService
	Loans           *services.LoanService
	Reservations    *services.ReservationService
	Recommendations *services.RecommendationService
	Notifications   *services.NotificationService

	closeSender func() error
}

// NewApp opens the database and builds every service from cfg.
// Callers must Close the app.
func NewApp(cfg *config.Config) (*App, error) {
	box, err := twofactor.NewSecretBox(cfg.TwoFactor.EncryptionKey)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Generated token signing secret (set AUTH_JWT_SECRET to keep tokens valid across restarts)")
	}

	sender, closeSender, err := notify.NewSender(cfg.Notify)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize notification sender: %w", err)
	}

	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	loanRepo := loans.NewRepository(db.DB)

	issuer := cfg.TwoFactor.Issuer
	if issuer == "" {
		issuer = config.DefaultTwoFactorIssuer
	}

	authService := auth.NewService(userRepo, tokens, twofactor.NewGenerator(issuer, cfg.TwoFactor.BackupCodeCount), auditor, cfg.Auth)
	authService.SetSecretBox(box)

	return &App{
		Config:  cfg,
		DB:      db,
		Users:   userRepo,
		Auditor: auditor,
		Tokens:  tokens,

		Auth:            authService,
		Accounts:        services.NewAccountService(userRepo, auditor, cfg.Auth.BcryptCost),
		Catalog:         services.NewCatalogService(bookRepo, auditor),
		Loans:           services.NewLoanService(loanRepo, userRepo, bookRepo, auditor),
		Reservations:    services.NewReservationService(reservations.NewRepository(db.DB), userRepo, bookRepo, auditor, cfg.Library.ReservationHold),
		Recommendations: services.NewRecommendationService(recommendations.NewRepository(db.DB), userRepo, bookRepo, loanRepo),
		Notifications:   services.NewNotificationService(notifications.NewRepository(db.DB), sender, auditor, cfg.Library.DueSoonWindow),

		closeSender: closeSender,
	}, nil
}

// RouterConfig assembles the HTTP dependencies. The caller owns limiter.
func (a *App) RouterConfig(limiter *auth.RateLimiter, version string) http_controllers.RouterConfig {
	return http_controllers.RouterConfig{
		Auth:            a.Auth,
		Accounts:        a.Accounts,
		Catalog:         a.Catalog,
		Loans:           a.Loans,
		Reservations:    a.Reservations,
		Recommendations: a.Recommendations,
		Notifications:   a.Notifications,
		Auditor:         a.Auditor,
		AuthMiddleware:  auth.NewMiddleware(a.Tokens, a.Config.Auth),
		RateLimiter:     limiter,
		Database:        a.DB,
		CORS:            a.Config.CORS,
		Version:         version,
	}
}

// Close flushes pending audit events and releases the sender and database.
func (a *App) Close() {
	a.Auditor.Wait()
	if a.closeSender != nil {
		if err := a.closeSender(); err != nil {
			log.Printf("Error closing notification sender: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
