package config

const (
	// DefaultDatabasePath is the default path for the SQLite library database
	DefaultDatabasePath = "./library.db"

	// DefaultTasksDatabasePath is the default path for the task queue database
	DefaultTasksDatabasePath = "./library-tasks.db"

	// DefaultBcryptCost is the bcrypt work factor for stored passwords
	DefaultBcryptCost = 12

	// DefaultTwoFactorIssuer is shown by authenticator apps next to the account
	DefaultTwoFactorIssuer = "Richfield Library"
)
