package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Acting user taken from the request body (default)
	AuthModeToken AuthMode = "token" // Bearer access token required
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type NotifySender string

const (
	NotifySenderLog   NotifySender = "log"
	NotifySenderRedis NotifySender = "redis"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		TwoFactor
		Library
		CORS
		Notify
		Notifications
		Tasks
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file
		DSN    string // PostgreSQL connection string
		Debug  bool
	}
	Auth struct {
		Mode        AuthMode
		JWTSecret   string
		JWTIssuer   string
		TokenExpiry time.Duration
		BcryptCost  int

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	TwoFactor struct {
		Issuer          string
		BackupCodeCount int
		EncryptionKey   string // Base64 32-byte key sealing TOTP secrets at rest (optional)
	}
	Library struct {
		DueSoonWindow   time.Duration // Upcoming-return horizon (default: 72h)
		ReservationHold time.Duration // Reservation expiry window (default: 168h)
	}
	CORS struct {
		AllowedOrigins []string
	}
	Notify struct {
		Sender        NotifySender
		RedisAddr     string
		RedisPassword string
		RedisStream   string
	}
	Notifications struct {
		ScheduleEnabled bool
		Schedule        string // Cron format: "0 8 * * *" = daily at 08:00
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays int
	}
)

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewConfig loads configuration from the environment, reading a .env file first when present.
func NewConfig() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	// Database defaults
	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("db_debug", false)

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeNone))
	v.SetDefault("auth_jwt_secret", "")            // Auto-generated if empty
	v.SetDefault("auth_jwt_issuer", "librarydesk") // iss/aud claim
	v.SetDefault("auth_token_expiry", "24h")
	v.SetDefault("auth_bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Two-factor defaults
	v.SetDefault("twofa_issuer", DefaultTwoFactorIssuer)
	v.SetDefault("twofa_backup_codes", 5)
	v.SetDefault("twofa_encryption_key", "") // Secrets stored unsealed when empty

	// Library rules
	v.SetDefault("loan_due_soon_window", "72h")
	v.SetDefault("reservation_hold", "168h")

	v.SetDefault("cors_allowed_origins", "*")

	// Notification delivery
	v.SetDefault("notify_sender", string(NotifySenderLog))
	v.SetDefault("notify_redis_addr", "localhost:6379")
	v.SetDefault("notify_redis_password", "")
	v.SetDefault("notify_redis_stream", "library:notifications")
	v.SetDefault("notifications_schedule_enabled", false)
	v.SetDefault("notifications_schedule", "0 8 * * *") // Daily at 08:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 90)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
			Debug:  v.GetBool("DB_DEBUG"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			JWTIssuer:        v.GetString("AUTH_JWT_ISSUER"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		TwoFactor: TwoFactor{
			Issuer:          v.GetString("TWOFA_ISSUER"),
			BackupCodeCount: v.GetInt("TWOFA_BACKUP_CODES"),
			EncryptionKey:   v.GetString("TWOFA_ENCRYPTION_KEY"),
		},
		Library: Library{
			DueSoonWindow:   v.GetDuration("LOAN_DUE_SOON_WINDOW"),
			ReservationHold: v.GetDuration("RESERVATION_HOLD"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Notify: Notify{
			Sender:        NotifySender(v.GetString("NOTIFY_SENDER")),
			RedisAddr:     v.GetString("NOTIFY_REDIS_ADDR"),
			RedisPassword: v.GetString("NOTIFY_REDIS_PASSWORD"),
			RedisStream:   v.GetString("NOTIFY_REDIS_STREAM"),
		},
		Notifications: Notifications{
			ScheduleEnabled: v.GetBool("NOTIFICATIONS_SCHEDULE_ENABLED"),
			Schedule:        v.GetString("NOTIFICATIONS_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}
}
