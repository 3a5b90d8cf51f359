package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// MinAuditRetentionDays keeps the desk history of a loan readable through
// GET /audit/loan/:id for at least one full lending period.
const MinAuditRetentionDays = 30

// AuditTrailPruner deletes audit events older than a retention period.
// *audit.Service satisfies it.
type AuditTrailPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditTrailTask drops old circulation and account events.
type PruneAuditTrailTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit pruning tasks.
func (t PruneAuditTrailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_trail",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// retentionDays resolves the effective window: unset means the configured
// default, and anything shorter than MinAuditRetentionDays is raised to it.
func (t PruneAuditTrailTask) retentionDays() int {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultConfig().AuditRetentionDays
	}
	if days < MinAuditRetentionDays {
		days = MinAuditRetentionDays
	}
	return days
}

// PruneAuditTrailProcessor creates a processor function for PruneAuditTrailTask.
func PruneAuditTrailProcessor(pruner AuditTrailPruner) backlite.QueueProcessor[PruneAuditTrailTask] {
	return func(ctx context.Context, task PruneAuditTrailTask) error {
		if pruner == nil {
			return fmt.Errorf("audit trail pruner not configured")
		}

		days := task.retentionDays()
		if task.RetentionDays > 0 && days != task.RetentionDays {
			log.Printf("[TASK] Audit retention of %d days raised to %d to cover a lending period", task.RetentionDays, days)
		}

		deleted, err := pruner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("prune audit trail: %w", err)
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		log.Printf("[TASK] Pruned %d desk audit events recorded before %s", deleted, cutoff.Format("2006-01-02"))
		return nil
	}
}

// NewPruneAuditTrailQueue creates a backlite queue for audit pruning tasks.
func NewPruneAuditTrailQueue(pruner AuditTrailPruner) backlite.Queue {
	return backlite.NewQueue(PruneAuditTrailProcessor(pruner))
}
