package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// AuthController serves registration, sign-in and two-factor endpoints.
type AuthController struct {
	service *auth.Service
	limiter *auth.RateLimiter
}

func NewAuthController(service *auth.Service, limiter *auth.RateLimiter) *AuthController {
	return &AuthController{service: service, limiter: limiter}
}

type registerRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Course     string `json:"course"`
	Department string `json:"department"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type twoFactorRequest struct {
	Email  string `json:"email"`
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

// userSummary is the identity returned after a two-factor sign-in.
type userSummary struct {
	UserID string            `json:"user_id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
}

func summarize(u *entities.User) userSummary {
	return userSummary{UserID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Register creates an account.
// POST /register
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	user, err := ac.service.Register(c.Request.Context(), auth.RegisterInput{
		Email:      req.Email,
		Name:       req.Name,
		Password:   req.Password,
		Phone:      req.Phone,
		Role:       entities.UserRole(strings.ToLower(strings.TrimSpace(req.Role))),
		Course:     req.Course,
		Department: req.Department,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			respondBadRequest(c, "Email, name, and password are required")
		case errors.Is(err, auth.ErrEmailInvalid):
			respondBadRequest(c, "Invalid email format")
		case errors.Is(err, auth.ErrInvalidRole):
			respondBadRequest(c, "Invalid role. Must be: student, librarian, admin, or lecturer")
		case errors.Is(err, auth.ErrEmailExists):
			respondBadRequest(c, "Email already exists")
		default:
			respondInternalError(c, err, "register", "Unable to register")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Registration successful",
		"user":    user,
	})
}

// SignIn checks a password and returns an access token, or asks for a second factor.
// POST /signin
func (ac *AuthController) SignIn(c *gin.Context) {
	var req credentialsRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	email := auth.NormalizeEmail(req.Email)
	ip := c.ClientIP()

	if !ac.allow(c, ip, email) {
		return
	}

	result, err := ac.service.SignIn(c.Request.Context(), email, req.Password, ip)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			respondBadRequest(c, "Email and password are required")
		case errors.Is(err, auth.ErrInvalidCredentials):
			ac.fail(c, ip, email, "Invalid credentials")
		default:
			respondInternalError(c, err, "signin", "Login failed")
		}
		return
	}
	// The lockout record is shared with /verify-login-2fa, so a correct
	// password alone must not clear it.
	if result.RequiresTwoFactor {
		c.JSON(http.StatusOK, gin.H{
			"message":     "2FA required",
			"requires2FA": true,
			"email":       result.User.Email,
		})
		return
	}
	ac.succeed(ip, email)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    result.User,
		"token":   result.Token,
	})
}

// EnableTwoFactor starts authenticator enrollment.
// POST /enable-2fa
func (ac *AuthController) EnableTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !ac.ownsEmail(c, req.Email) {
		return
	}

	enrollment, err := ac.service.EnableTwoFactor(c.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailRequired):
			respondBadRequest(c, "Email is required")
		case errors.Is(err, auth.ErrUserNotFound):
			respondNotFound(c, "User not found")
		default:
			respondInternalError(c, err, "enable 2fa", "Failed to enable 2FA")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Scan QR code with Google Authenticator",
		"secret":      enrollment.Secret,
		"qrCodeUrl":   enrollment.QRCodeURL,
		"backupCodes": enrollment.BackupCodes,
	})
}

// VerifyTwoFactor confirms enrollment and turns two-factor sign-in on.
// POST /verify-2fa
func (ac *AuthController) VerifyTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !ac.ownsEmail(c, req.Email) {
		return
	}

	user, err := ac.service.VerifyTwoFactor(c.Request.Context(), auth.TwoFactorVerification{
		Email:  req.Email,
		Code:   req.Token,
		Secret: req.Secret,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenRequired), errors.Is(err, auth.ErrEmailRequired):
			respondBadRequest(c, "Email and token are required")
		case errors.Is(err, auth.ErrUserNotFound):
			respondNotFound(c, "User not found")
		case errors.Is(err, auth.ErrNoPendingSecret):
			respondBadRequest(c, "No 2FA secret to verify. Enable 2FA first")
		case errors.Is(err, auth.ErrInvalidCode):
			respondBadRequest(c, "Invalid verification code")
		default:
			respondInternalError(c, err, "verify 2fa", "Failed to verify 2FA")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "2FA enabled successfully",
		"backupCodes": user.BackupCodes,
	})
}

// DisableTwoFactor turns two-factor sign-in off.
// POST /disable-2fa
func (ac *AuthController) DisableTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !ac.ownsEmail(c, req.Email) {
		return
	}

	if err := ac.service.DisableTwoFactor(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailRequired):
			respondBadRequest(c, "Email is required")
		case errors.Is(err, auth.ErrUserNotFound):
			respondNotFound(c, "User not found")
		default:
			respondInternalError(c, err, "disable 2fa", "Failed to disable 2FA")
		}
		return
	}
	respondSuccess(c, "2FA disabled successfully")
}

// VerifyLoginTwoFactor completes a sign-in with an authenticator or backup code.
// POST /verify-login-2fa
func (ac *AuthController) VerifyLoginTwoFactor(c *gin.Context) {
	var req twoFactorRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	email := auth.NormalizeEmail(req.Email)
	ip := c.ClientIP()

	if !ac.allow(c, ip, email) {
		return
	}

	result, err := ac.service.VerifyLoginTwoFactor(c.Request.Context(), email, req.Token, ip)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenRequired), errors.Is(err, auth.ErrEmailRequired):
			respondBadRequest(c, "Email and token are required")
		case errors.Is(err, auth.ErrUserNotFound):
			respondNotFound(c, "User not found")
		case errors.Is(err, auth.ErrTwoFactorNotEnabled):
			respondBadRequest(c, "2FA is not enabled for this user")
		case errors.Is(err, auth.ErrInvalidCode):
			ac.fail(c, ip, email, "Invalid verification code")
		default:
			respondInternalError(c, err, "verify login 2fa", "Failed to verify 2FA")
		}
		return
	}
	ac.succeed(ip, email)

	c.JSON(http.StatusOK, gin.H{
		"message": "2FA verification successful",
		"user":    summarize(result.User),
		"token":   result.Token,
	})
}

// Profile returns a user without credentials.
// GET /profile/:user_id
func (ac *AuthController) Profile(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		respondBadRequest(c, "User ID is required")
		return
	}

	user, err := ac.service.Profile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondNotFound(c, "User not found")
			return
		}
		respondInternalError(c, err, "profile", "Failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ownsEmail restricts two-factor management to the account owner or an admin
// when the caller is authenticated by token. Unauthenticated callers pass.
func (ac *AuthController) ownsEmail(c *gin.Context, email string) bool {
	subject := auth.GetUserID(c)
	if subject == "" || auth.GetUserRole(c) == entities.UserRoleAdmin || auth.NormalizeEmail(email) == "" {
		return true
	}
	caller, err := ac.service.Profile(c.Request.Context(), subject)
	if err != nil || caller.Email != auth.NormalizeEmail(email) {
		respondForbidden(c, "Access denied. You can only manage your own two-factor settings.")
		return false
	}
	return true
}

func (ac *AuthController) allow(c *gin.Context, ip, email string) bool {
	if ac.limiter == nil {
		return true
	}
	if allowed, retryAfter := ac.limiter.Allow(ip, email); !allowed {
		respondTooManyAttempts(c, retryAfter)
		return false
	}
	return true
}

// fail counts a failed attempt and answers 429 once the lockout starts.
func (ac *AuthController) fail(c *gin.Context, ip, email, message string) {
	if ac.limiter != nil {
		if locked, retryAfter := ac.limiter.RecordFailure(ip, email); locked {
			respondTooManyAttempts(c, retryAfter)
			return
		}
	}
	respondBadRequest(c, message)
}

func (ac *AuthController) succeed(ip, email string) {
	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ip, email)
	}
}

func respondTooManyAttempts(c *gin.Context, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many failed attempts. Try again later.",
		"retry_after": seconds,
	})
}
