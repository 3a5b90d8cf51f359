package services

import (
	"context"
	"time"

	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// UserReader provides read-only access to users.
type UserReader interface {
	GetByID(ctx context.Context, userID string) (*entities.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// UserStore is the persistence used by account administration.
type UserStore interface {
	UserReader
	EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error)
	List(ctx context.Context) ([]entities.User, error)
	Search(ctx context.Context, term string) ([]entities.User, error)
	ListByRole(ctx context.Context, role entities.UserRole) ([]entities.User, error)
	WithActiveLoans(ctx context.Context) ([]entities.UserLoanCount, error)
	WithOverdueLoans(ctx context.Context, now time.Time) ([]entities.UserLoanCount, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) (*entities.User, error)
	Delete(ctx context.Context, user *entities.User) (database.DeleteResult, error)
}

// BookReader provides read-only access to the catalog.
type BookReader interface {
	GetByID(ctx context.Context, bookID string) (*entities.Book, error)
	Exists(ctx context.Context, bookID string) (bool, error)
}

// LoanStore persists loans and their book side effects.
type LoanStore interface {
	Create(ctx context.Context, loan *entities.Loan) error
	Return(ctx context.Context, loanID string, at time.Time) (*entities.Loan, error)
	Delete(ctx context.Context, loanID string) (*entities.Loan, error)
	UpdateDueDate(ctx context.Context, loanID string, due time.Time) (*entities.Loan, error)
	GetView(ctx context.Context, loanID string) (*entities.LoanView, error)
	ListViews(ctx context.Context) ([]entities.LoanView, error)
	ListComplete(ctx context.Context) ([]entities.LoanView, error)
	ListByStatus(ctx context.Context, status entities.LoanStatus, now time.Time) ([]entities.LoanView, error)
	ListOverdue(ctx context.Context, now time.Time) ([]entities.LoanView, error)
	ListForUser(ctx context.Context, userID string) ([]entities.LoanView, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
	Create(ctx context.Context, reservation *entities.Reservation, hold time.Duration) error
	ListForUser(ctx context.Context, userID string) ([]entities.Reservation, error)
}

// RecommendationStore persists reviews and computes suggestions.
type RecommendationStore interface {
	Create(ctx context.Context, rec *entities.Recommendation) error
	SuggestBooks(ctx context.Context, categories []string, limit int) ([]entities.Book, error)
}

// ReadingHistory reports what a user has borrowed before.
type ReadingHistory interface {
	ReturnedCategories(ctx context.Context, userID string) ([]string, error)
}

// DueLoanReader lists unreturned loans by due date.
type DueLoanReader interface {
	DueBy(ctx context.Context, now time.Time) ([]entities.DueLoan, error)
	OverdueAt(ctx context.Context, now time.Time) ([]entities.DueLoan, error)
	DueBetween(ctx context.Context, from, until time.Time) ([]entities.DueLoan, error)
}

// AuditRecorder receives lifecycle events. *audit.Service satisfies it.
type AuditRecorder interface {
	Record(entry audit.Entry)
}

type noopAudit struct{}

func (noopAudit) Record(audit.Entry) {}

func recorderOrNoop(r AuditRecorder) AuditRecorder {
	if r == nil {
		return noopAudit{}
	}
	return r
}

func auditEntry(actorID string, eventType entities.AuditEventType, action, entityType, entityID string, metadata map[string]any, err error) audit.Entry {
	return audit.Entry{
		ActorID:    actorID,
		EventType:  eventType,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		Err:        err,
	}
}
