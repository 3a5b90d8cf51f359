package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
)

// DigestDispatcher computes and delivers notification digests.
// *services.NotificationService satisfies it.
type DigestDispatcher interface {
	SendOverdue(ctx context.Context) (*services.DispatchResult, error)
	SendReminders(ctx context.Context) (*services.DispatchResult, error)
}

// SendDigestTask delivers one kind of notification digest to every affected user.
type SendDigestTask struct {
	Kind entities.DigestKind `json:"kind"`
}

// Config returns the queue configuration for digest tasks.
func (t SendDigestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_digest",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendDigestProcessor creates a processor function for SendDigestTask.
// Individual delivery failures do not fail the task; only query errors do.
func SendDigestProcessor(dispatcher DigestDispatcher) backlite.QueueProcessor[SendDigestTask] {
	return func(ctx context.Context, task SendDigestTask) error {
		if dispatcher == nil {
			return fmt.Errorf("digest dispatcher not configured")
		}

		var (
			result *services.DispatchResult
			err    error
		)
		switch task.Kind {
		case entities.DigestKindOverdue:
			result, err = dispatcher.SendOverdue(ctx)
		case entities.DigestKindDueSoon:
			result, err = dispatcher.SendReminders(ctx)
		default:
			return fmt.Errorf("unknown digest kind %q", task.Kind)
		}
		if err != nil {
			return fmt.Errorf("send %s digest: %w", task.Kind, err)
		}

		log.Printf("[TASK] %s digest: %d user(s), %d book(s), %d sent, %d failed",
			task.Kind, len(result.Digests), result.TotalBooks, result.Dispatched, result.Failed)
		return nil
	}
}

// NewSendDigestQueue creates a backlite queue for digest tasks.
func NewSendDigestQueue(dispatcher DigestDispatcher) backlite.Queue {
	return backlite.NewQueue(SendDigestProcessor(dispatcher))
}
