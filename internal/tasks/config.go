package tasks

import (
	"time"

	"github.com/librarydesk/librarydesk/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// AuditRetentionDays is passed to audit pruning tasks. Default: 90
	AuditRetentionDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            2,
		ReleaseAfter:       15 * time.Minute,
		CleanupInterval:    1 * time.Hour,
		AuditRetentionDays: 90,
	}
}

// ConfigFrom merges application settings over the defaults.
func ConfigFrom(tasks config.Tasks, auditCfg config.Audit) Config {
	cfg := DefaultConfig()
	if tasks.Workers > 0 {
		cfg.Workers = tasks.Workers
	}
	if tasks.ReleaseAfter > 0 {
		cfg.ReleaseAfter = tasks.ReleaseAfter
	}
	if tasks.CleanupInterval > 0 {
		cfg.CleanupInterval = tasks.CleanupInterval
	}
	if auditCfg.RetentionDays > 0 {
		cfg.AuditRetentionDays = auditCfg.RetentionDays
	}
	return cfg
}
