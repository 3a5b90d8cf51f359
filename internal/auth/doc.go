// Package auth handles accounts, sign-in and caller identity.
//
// It supports two identity modes:
//   - "none": the default. Administrative handlers take the acting user from
//     the request body (editor_id, admin_id). A Bearer token, when sent, wins.
//   - "token": every route except sign-in, registration, 2FA login and health
//     checks requires a Bearer access token.
//
// # Configuration
//
//	AUTH_MODE=none|token
//	AUTH_JWT_SECRET=<hex>          # Auto-generated if empty (tokens then die with the process)
//	AUTH_JWT_ISSUER=librarydesk
//	AUTH_TOKEN_EXPIRY=24h
//	AUTH_BCRYPT_COST=12
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	tokens, _ := auth.NewTokenIssuer(cfg.Auth)
//	authService := auth.NewService(userRepo, tokens, otp, auditService, cfg.Auth)
//	router.Use(auth.NewMiddleware(tokens, cfg.Auth).Handler())
//
// In handlers:
//
//	actor := auth.ActorID(c, req.EditorID)
package auth
