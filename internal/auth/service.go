package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/twofactor"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// maxIDAttempts bounds identifier generation retries on collision.
const maxIDAttempts = 5

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailExists           = errors.New("email already exists")
	ErrInvalidRole           = errors.New("invalid role")
	ErrMissingFields         = errors.New("email, name and password are required")
	ErrEmailRequired         = errors.New("email is required")
	ErrEmailInvalid          = errors.New("invalid email format")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrIDGeneration          = errors.New("could not generate a unique user id")
	ErrTokenRequired         = errors.New("verification code is required")
	ErrNoPendingSecret       = errors.New("no two-factor secret to verify")
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrTwoFactorNotEnabled   = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorNotAvailable = errors.New("two-factor authentication is not configured")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, userID string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error)
	MaxSequence(ctx context.Context, prefix string) (int, error)
	SaveTwoFactor(ctx context.Context, user *entities.User) error
	ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error)
	RecordLogin(ctx context.Context, record *entities.LoginRecord) error
}

// AuditRecorder receives security-relevant events. *audit.Service satisfies it.
type AuditRecorder interface {
	Record(entry audit.Entry)
}

type noopAudit struct{}

func (noopAudit) Record(audit.Entry) {}

// RegisterInput carries registration fields.
type RegisterInput struct {
	Email      string
	Name       string
	Password   string
	Phone      string
	Role       entities.UserRole
	Course     string
	Department string
}

// SignInResult is the outcome of a password sign-in.
// When RequiresTwoFactor is set, Token is empty and the client must call VerifyLoginTwoFactor.
type SignInResult struct {
	User              *entities.User
	RequiresTwoFactor bool
	Token             string
}

// TwoFactorVerification carries the verify-2fa request.
// Backup codes are never taken from the client: the ones issued by
// EnableTwoFactor become active when the secret is confirmed.
type TwoFactorVerification struct {
	Email  string
	Code   string
	Secret string
}

// Service handles registration, sign-in and two-factor flows.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	otp    *twofactor.Generator
	box    *twofactor.SecretBox
	audit  AuditRecorder
	config config.Auth
	dummy  *dummyHasher
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(users UserStore, tokens *TokenIssuer, otp *twofactor.Generator, recorder AuditRecorder, cfg config.Auth) *Service {
	if recorder == nil {
		recorder = noopAudit{}
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = config.DefaultBcryptCost
	}
	return &Service{
		users:  users,
		tokens: tokens,
		otp:    otp,
		audit:  recorder,
		config: cfg,
		dummy:  &dummyHasher{cost: cfg.BcryptCost},
		now:    time.Now,
	}
}

// SetSecretBox seals TOTP secrets at rest. A nil box stores them as plaintext.
func (s *Service) SetSecretBox(box *twofactor.SecretBox) {
	s.box = box
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized email is acceptable for an account.
func ValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// Register creates an account with a role-derived identifier.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !ValidEmail(email) {
		return nil, ErrEmailInvalid
	}

	role := in.Role
	if role == "" {
		role = entities.UserRoleStudent
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	taken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if taken {
		return nil, ErrEmailExists
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Name:             name,
		Email:            email,
		PasswordHash:     passwordHash,
		Phone:            strings.TrimSpace(in.Phone),
		Role:             role,
		Course:           strings.TrimSpace(in.Course),
		Department:       strings.TrimSpace(in.Department),
		RegistrationDate: s.now().UTC(),
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.nextUserID(ctx, role)
		if err != nil {
			return nil, err
		}
		user.UserID = id

		err = s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		// A concurrent registration may have claimed the id or the email.
		if taken, checkErr := s.users.EmailTaken(ctx, email, ""); checkErr == nil && taken {
			return nil, ErrEmailExists
		}
		if exists, checkErr := s.users.Exists(ctx, id); checkErr != nil || !exists {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}
	return nil, ErrIDGeneration
}

// nextUserID returns a candidate identifier for the role.
// Students get S followed by a random 8-digit number. Staff get the role
// initial and a three-digit sequence one above the highest in use for that
// initial, so librarians and lecturers share the L sequence without clashing.
func (s *Service) nextUserID(ctx context.Context, role entities.UserRole) (string, error) {
	if role == entities.UserRoleStudent {
		for attempt := 0; attempt < maxIDAttempts; attempt++ {
			n, err := rand.Int(rand.Reader, big.NewInt(90000000))
			if err != nil {
				return "", fmt.Errorf("failed to generate user id: %w", err)
			}
			id := fmt.Sprintf("S%d", 10000000+n.Int64())
			exists, err := s.users.Exists(ctx, id)
			if err != nil {
				return "", fmt.Errorf("failed to check user id: %w", err)
			}
			if !exists {
				return id, nil
			}
		}
		return "", ErrIDGeneration
	}

	prefix := strings.ToUpper(string(role)[:1])
	highest, err := s.users.MaxSequence(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read id sequence: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1), nil
}

// SignIn checks credentials. A bcrypt comparison runs even for unknown
// emails so both failure paths take similar time.
func (s *Service) SignIn(ctx context.Context, email, password, ip string) (*SignInResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		s.dummy.compare(password)
		return nil, ErrInvalidCredentials
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.audit.Record(audit.Entry{
			ActorID:   user.UserID,
			EventType: entities.AuditEventAuth,
			Action:    "signin",
			Err:       ErrInvalidCredentials,
			Metadata:  map[string]any{"ip": ip},
		})
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		return &SignInResult{User: user, RequiresTwoFactor: true}, nil
	}

	token, err := s.completeSignIn(ctx, user, entities.LoginMethodPassword, ip)
	if err != nil {
		return nil, err
	}
	return &SignInResult{User: user, Token: token}, nil
}

func (s *Service) completeSignIn(ctx context.Context, user *entities.User, method entities.LoginMethod, ip string) (string, error) {
	err := s.users.RecordLogin(ctx, &entities.LoginRecord{
		Email:      user.Email,
		UserID:     user.UserID,
		Method:     method,
		IPAddress:  ip,
		SignedInAt: s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to record sign-in: %w", err)
	}

	s.audit.Record(audit.Entry{
		ActorID:   user.UserID,
		EventType: entities.AuditEventAuth,
		Action:    "signin",
		Metadata:  map[string]any{"ip": ip, "method": string(method)},
	})

	if s.tokens == nil {
		return "", nil
	}
	return s.tokens.Issue(user)
}

// Profile returns a user by identifier.
func (s *Service) Profile(ctx context.Context, userID string) (*entities.User, error) {
	return s.lookup(s.users.GetByID(ctx, userID))
}

func (s *Service) userByEmail(ctx context.Context, email string) (*entities.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return s.lookup(s.users.GetByEmail(ctx, email))
}

func (s *Service) lookup(user *entities.User, err error) (*entities.User, error) {
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnableTwoFactor issues a new secret, QR code and backup codes.
// The secret is kept as pending until VerifyTwoFactor confirms it.
func (s *Service) EnableTwoFactor(ctx context.Context, email string) (*twofactor.Enrollment, error) {
	if s.otp == nil {
		return nil, ErrTwoFactorNotAvailable
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.otp.Generate(user.Email)
	if err != nil {
		return nil, err
	}

	pending, err := s.box.Seal(enrollment.Secret)
	if err != nil {
		return nil, err
	}
	user.TwoFactorPendingSecret = pending
	user.PendingBackupCodes = twofactor.NormalizeBackupCodes(enrollment.BackupCodes)
	if err := s.users.SaveTwoFactor(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store pending secret: %w", err)
	}
	return enrollment, nil
}

// VerifyTwoFactor confirms enrollment with a code from the authenticator app.
// The secret comes from the request or, when absent, from the pending secret.
func (s *Service) VerifyTwoFactor(ctx context.Context, in TwoFactorVerification) (*entities.User, error) {
	if NormalizeEmail(in.Email) == "" || strings.TrimSpace(in.Code) == "" {
		return nil, ErrTokenRequired
	}
	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	secret := strings.TrimSpace(in.Secret)
	if secret == "" {
		if secret, err = s.box.Open(user.TwoFactorPendingSecret); err != nil {
			return nil, err
		}
	}
	if secret == "" {
		return nil, ErrNoPendingSecret
	}

	ok, err := twofactor.Verify(secret, in.Code, s.now())
	if err != nil || !ok {
		return nil, ErrInvalidCode
	}

	if user.TwoFactorSecret, err = s.box.Seal(secret); err != nil {
		return nil, err
	}
	user.TwoFactorEnabled = true
	user.TwoFactorPendingSecret = ""
	user.BackupCodes = user.PendingBackupCodes
	if user.BackupCodes == nil {
		user.BackupCodes = []string{}
	}
	user.PendingBackupCodes = nil
	if err := s.users.SaveTwoFactor(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to enable two-factor: %w", err)
	}

	s.audit.Record(audit.Entry{
		ActorID:    user.UserID,
		EventType:  entities.AuditEventAuth,
		Action:     "2fa_enable",
		EntityType: "user",
		EntityID:   user.UserID,
	})
	return user, nil
}

// DisableTwoFactor clears the secret, flag and backup codes.
func (s *Service) DisableTwoFactor(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.TwoFactorPendingSecret = ""
	user.BackupCodes = nil
	user.PendingBackupCodes = nil
	if err := s.users.SaveTwoFactor(ctx, user); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	s.audit.Record(audit.Entry{
		ActorID:    user.UserID,
		EventType:  entities.AuditEventAuth,
		Action:     "2fa_disable",
		EntityType: "user",
		EntityID:   user.UserID,
	})
	return nil
}

// VerifyLoginTwoFactor completes a sign-in with a TOTP code or a backup code.
// A backup code is removed once used.
func (s *Service) VerifyLoginTwoFactor(ctx context.Context, email, code, ip string) (*SignInResult, error) {
	if NormalizeEmail(email) == "" || strings.TrimSpace(code) == "" {
		return nil, ErrTokenRequired
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotEnabled
	}

	secret, err := s.box.Open(user.TwoFactorSecret)
	if err != nil {
		return nil, err
	}

	method := entities.LoginMethodTOTP
	ok, err := twofactor.Verify(secret, code, s.now())
	if err != nil || !ok {
		used, err := s.users.ConsumeBackupCode(ctx, user.UserID, code)
		if err != nil {
			return nil, fmt.Errorf("failed to consume backup code: %w", err)
		}
		if !used {
			s.audit.Record(audit.Entry{
				ActorID:   user.UserID,
				EventType: entities.AuditEventAuth,
				Action:    "signin_2fa",
				Err:       ErrInvalidCode,
			})
			return nil, ErrInvalidCode
		}
		method = entities.LoginMethodBackupCode
	}

	token, err := s.completeSignIn(ctx, user, method, ip)
	if err != nil {
		return nil, err
	}
	return &SignInResult{User: user, Token: token}, nil
}
