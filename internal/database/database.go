package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// Options selects the driver and logging for NewDatabaseWithOptions.
type Options struct {
	Driver config.DatabaseDriver
	Path   string // SQLite file
	DSN    string // PostgreSQL connection string
	Debug  bool
}

// NewDatabase opens a SQLite database at dbPath and migrates the schema.
func NewDatabase(dbPath string) (*Database, error) {
	return NewDatabaseWithOptions(Options{Driver: config.DriverSQLite, Path: dbPath})
}

// NewDatabaseFromConfig opens the database described by the application config.
func NewDatabaseFromConfig(cfg config.Database) (*Database, error) {
	return NewDatabaseWithOptions(Options{
		Driver: cfg.Driver,
		Path:   cfg.Path,
		DSN:    cfg.DSN,
		Debug:  cfg.Debug,
	})
}

func NewDatabaseWithOptions(opts Options) (*Database, error) {
	var dialector gorm.Dialector
	location := opts.Path
	switch opts.Driver {
	case config.DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires DATABASE_DSN")
		}
		dialector = postgres.Open(opts.DSN)
		location = "postgres"
	case config.DriverSQLite, "":
		// Foreign keys stay off: referential cleanup is done by DeletePlan.
		dialector = sqlite.Open(opts.Path + "?_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		// Timestamps are stored in UTC so SQLite text comparisons order correctly.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Loan{},
		&entities.Reservation{},
		&entities.Recommendation{},
		&entities.LoginRecord{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", location)

	return &Database{DB: db}, nil
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
