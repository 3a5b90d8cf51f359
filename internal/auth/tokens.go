package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

const (
	defaultTokenIssuer = "librarydesk"
	defaultTokenTTL    = 24 * time.Hour
	tokenLeeway        = 30 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the access token claims. Subject carries the user ID.
type Claims struct {
	Role entities.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from the auth config.
// An empty secret is replaced by a random one, so tokens do not survive a restart.
func NewTokenIssuer(cfg config.Auth) (*TokenIssuer, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		secret = generated
		log.Printf("AUTH_JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = defaultTokenIssuer
	}
	ttl := cfg.TokenExpiry
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(user *entities.User) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a token and returns its claims.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return claims, nil
}
