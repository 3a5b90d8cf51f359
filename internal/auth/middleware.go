package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// Context keys for identity data
const (
	ContextKeyUserID = "auth_user_id"
	ContextKeyRole   = "auth_role"
)

// DefaultPublicPaths are reachable without a token in token mode.
var DefaultPublicPaths = []string{"/signin", "/register", "/verify-login-2fa", "/health", "/ping"}

// Middleware resolves the caller identity of HTTP requests.
type Middleware struct {
	tokens      *TokenIssuer
	mode        config.AuthMode
	publicPaths map[string]bool
}

// NewMiddleware creates a new identity middleware.
func NewMiddleware(tokens *TokenIssuer, cfg config.Auth) *Middleware {
	publicPaths := make(map[string]bool, len(DefaultPublicPaths))
	for _, p := range DefaultPublicPaths {
		publicPaths[p] = true
	}

	mode := cfg.Mode
	if mode == "" {
		mode = config.AuthModeNone
	}

	return &Middleware{
		tokens:      tokens,
		mode:        mode,
		publicPaths: publicPaths,
	}
}

// Handler returns a Gin middleware handler.
//
// A valid Bearer token always identifies the caller. A malformed or expired
// token is rejected with 401 in both modes. Without a token, requests pass in
// "none" mode and are rejected in "token" mode unless the path is public.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if present {
			claims, err := m.parse(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid or expired token",
				})
				return
			}
			c.Set(ContextKeyUserID, claims.Subject)
			c.Set(ContextKeyRole, entities.UserRole(claims.Role))
			c.Next()
			return
		}

		if m.mode == config.AuthModeToken && !m.isPublicPath(c.Request.URL.Path) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Next()
	}
}

func (m *Middleware) parse(token string) (*Claims, error) {
	if m.tokens == nil {
		return nil, ErrInvalidToken
	}
	return m.tokens.Parse(token)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// present is true whenever an Authorization header was sent.
func bearerToken(c *gin.Context) (token string, present bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[strings.TrimSuffix(path, "/")] || m.publicPaths[path]
}

// RequireRole returns a middleware that requires one of the given roles.
// It only applies in token mode; in "none" mode callers are not authenticated.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if m.mode == config.AuthModeNone {
			c.Next()
			return
		}

		if !roleSet[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the token subject from the context.
// Returns "" when the request carried no token.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// GetUserRole retrieves the role claim from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// ActorID returns the acting user for an administrative request: the token
// subject when authenticated, otherwise the identifier supplied in the body.
func ActorID(c *gin.Context, fromBody string) string {
	if id := GetUserID(c); id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}
