package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
	"github.com/librarydesk/librarydesk/internal/twofactor"
)

const testPassword = "secret"

// capturingSender records dispatched digests.
type capturingSender struct {
	mu   sync.Mutex
	sent []entities.UserDigest
}

func (s *capturingSender) Send(_ context.Context, digest entities.UserDigest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, digest)
	return nil
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	tokens  *auth.TokenIssuer
	sender  *capturingSender
	auditor *audit.Service
}

// newTestServer wires the full router against a fresh SQLite database seeded with
// an admin (A001), a librarian (L001), two students (S10000001 Ann, S10000002 Ben)
// and two available books (B1 Dune, B2 Emma).
func newTestServer(t *testing.T, mode config.AuthMode) *testServer {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)

	authCfg := config.Auth{
		Mode:             mode,
		JWTSecret:        "test-secret",
		JWTIssuer:        "librarydesk-test",
		BcryptCost:       4,
		MaxLoginAttempts: 3,
	}

	hash, err := auth.HashPassword(testPassword, authCfg.BcryptCost)
	require.NoError(t, err)
	for _, u := range []entities.User{
		{UserID: "A001", Name: "Admin", Email: "admin@example.com", PasswordHash: hash, Role: entities.UserRoleAdmin},
		{UserID: "L001", Name: "Libby", Email: "libby@example.com", PasswordHash: hash, Role: entities.UserRoleLibrarian},
		{UserID: "S10000001", Name: "Ann", Email: "ann@example.com", PasswordHash: hash, Role: entities.UserRoleStudent},
		{UserID: "S10000002", Name: "Ben", Email: "ben@example.com", PasswordHash: hash, Role: entities.UserRoleStudent},
	} {
		u := u
		require.NoError(t, db.DB.Create(&u).Error)
	}
	for _, b := range []entities.Book{
		{BookID: "B1", Title: "Dune", Author: "Frank Herbert", Category: "SF", AvailableCopies: 1, Status: entities.BookStatusAvailable},
		{BookID: "B2", Title: "Emma", Author: "Jane Austen", Category: "Classics", AvailableCopies: 1, Status: entities.BookStatusAvailable},
	} {
		b := b
		require.NoError(t, db.DB.Create(&b).Error)
	}

	tokens, err := auth.NewTokenIssuer(authCfg)
	require.NoError(t, err)
	limiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(authCfg))
	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	sender := &capturingSender{}

	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	loanRepo := loans.NewRepository(db.DB)

	router := NewRouter(RouterConfig{
		Auth:            auth.NewService(userRepo, tokens, twofactor.NewGenerator(config.DefaultTwoFactorIssuer, 5), auditor, authCfg),
		Accounts:        services.NewAccountService(userRepo, auditor, authCfg.BcryptCost),
		Catalog:         services.NewCatalogService(bookRepo, auditor),
		Loans:           services.NewLoanService(loanRepo, userRepo, bookRepo, auditor),
		Reservations:    services.NewReservationService(reservations.NewRepository(db.DB), userRepo, bookRepo, auditor, 0),
		Recommendations: services.NewRecommendationService(recommendations.NewRepository(db.DB), userRepo, bookRepo, loanRepo),
		Notifications:   services.NewNotificationService(notifications.NewRepository(db.DB), sender, auditor, 0),
		Auditor:         auditor,
		AuthMiddleware:  auth.NewMiddleware(tokens, authCfg),
		RateLimiter:     limiter,
		Database:        db,
		Version:         "test",
	})

	t.Cleanup(func() {
		limiter.Stop()
		auditor.Wait()
		db.Close()
	})

	return &testServer{router: router, db: db.DB, tokens: tokens, sender: sender, auditor: auditor}
}

// do sends a JSON request. A nil body sends no body; token may be empty.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// tokenFor issues an access token for a seeded user.
func (s *testServer) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	var user entities.User
	require.NoError(t, s.db.Where("user_id = ?", userID).First(&user).Error)
	token, err := s.tokens.Issue(&user)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
