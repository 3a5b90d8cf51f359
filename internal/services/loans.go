package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/database/loans"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// LoanService runs the loan lifecycle: lend, return, delete and reschedule.
type LoanService struct {
	loans LoanStore
	users UserReader
	books BookReader
	audit AuditRecorder
	now   func() time.Time
}

// NewLoanService creates a new LoanService.
func NewLoanService(loanStore LoanStore, users UserReader, books BookReader, recorder AuditRecorder) *LoanService {
	return &LoanService{
		loans: loanStore,
		users: users,
		books: books,
		audit: recorderOrNoop(recorder),
		now:   time.Now,
	}
}

// CreateLoanInput carries the fields of a new loan.
type CreateLoanInput struct {
	ActorID string
	UserID  string
	BookID  string
	DueDate string
}

// Create lends a book to a user and returns the joined loan view.
func (s *LoanService) Create(ctx context.Context, in CreateLoanInput) (*entities.LoanView, error) {
	userID := strings.TrimSpace(in.UserID)
	bookID := strings.TrimSpace(in.BookID)
	if userID == "" || bookID == "" || strings.TrimSpace(in.DueDate) == "" {
		return nil, ErrMissingFields
	}
	due, err := ParseDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if exists, err := s.books.Exists(ctx, bookID); err != nil {
		return nil, fmt.Errorf("failed to look up book: %w", err)
	} else if !exists {
		return nil, ErrBookNotFound
	}

	loan := &entities.Loan{
		UserID:   userID,
		BookID:   bookID,
		LoanDate: s.now(),
		DueDate:  due,
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		switch {
		case errors.Is(err, loans.ErrBookUnavailable):
			return nil, ErrBookUnavailable
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	s.record(in.ActorID, "loan_create", loan.LoanID, map[string]any{"user_id": userID, "book_id": bookID}, nil)
	return s.view(ctx, loan.LoanID)
}

// Return closes an active loan now.
func (s *LoanService) Return(ctx context.Context, actorID, loanID string) (*entities.Loan, error) {
	if strings.TrimSpace(loanID) == "" {
		return nil, ErrMissingFields
	}
	loan, err := s.loans.Return(ctx, loanID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrLoanNotFound
		case errors.Is(err, loans.ErrAlreadyReturned):
			return nil, ErrAlreadyReturned
		}
		return nil, fmt.Errorf("failed to return loan: %w", err)
	}
	s.record(actorID, "loan_return", loanID, map[string]any{"book_id": loan.BookID}, nil)
	return loan, nil
}

// Delete removes a loan, giving the book back if it was still out.
func (s *LoanService) Delete(ctx context.Context, actorID, loanID string) (*entities.Loan, error) {
	if strings.TrimSpace(loanID) == "" {
		return nil, ErrMissingFields
	}
	loan, err := s.loans.Delete(ctx, loanID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to delete loan: %w", err)
	}
	s.record(actorID, "loan_delete", loanID, map[string]any{"book_id": loan.BookID, "status": string(loan.Status)}, nil)
	return loan, nil
}

// UpdateDueDate moves a loan's due date. The status is left alone.
func (s *LoanService) UpdateDueDate(ctx context.Context, actorID, loanID, dueDate string) (*entities.Loan, error) {
	if strings.TrimSpace(loanID) == "" || strings.TrimSpace(dueDate) == "" {
		return nil, ErrMissingFields
	}
	due, err := ParseDate(dueDate)
	if err != nil {
		return nil, err
	}
	loan, err := s.loans.UpdateDueDate(ctx, loanID, due)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to update due date: %w", err)
	}
	s.record(actorID, "loan_due_date", loanID, map[string]any{"due_date": due.Format(time.RFC3339)}, nil)
	return loan, nil
}

// Get returns the joined view of one loan.
func (s *LoanService) Get(ctx context.Context, loanID string) (*entities.LoanView, error) {
	return s.view(ctx, loanID)
}

// List returns every loan, newest first.
func (s *LoanService) List(ctx context.Context) ([]entities.LoanView, error) {
	return s.loans.ListViews(ctx)
}

// ListComplete returns every loan with extra user and book columns.
func (s *LoanService) ListComplete(ctx context.Context) ([]entities.LoanView, error) {
	return s.loans.ListComplete(ctx)
}

// ParseLoanStatus validates a status filter value.
func ParseLoanStatus(value string) (entities.LoanStatus, error) {
	switch status := entities.LoanStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case entities.LoanStatusActive, entities.LoanStatusReturned, entities.LoanStatusOverdue:
		return status, nil
	case "":
		return "", ErrMissingFields
	default:
		return "", ErrInvalidStatus
	}
}

// ListByStatus filters loans by active, returned or overdue.
func (s *LoanService) ListByStatus(ctx context.Context, value string) ([]entities.LoanView, error) {
	status, err := ParseLoanStatus(value)
	if err != nil {
		return nil, err
	}
	return s.loans.ListByStatus(ctx, status, s.now())
}

// ListOverdue returns active loans past their due date.
func (s *LoanService) ListOverdue(ctx context.Context) ([]entities.LoanView, error) {
	return s.loans.ListOverdue(ctx, s.now())
}

// ListForUser returns a user's loans with book details.
func (s *LoanService) ListForUser(ctx context.Context, userID string) ([]entities.LoanView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingFields
	}
	return s.loans.ListForUser(ctx, userID)
}

func (s *LoanService) view(ctx context.Context, loanID string) (*entities.LoanView, error) {
	view, err := s.loans.GetView(ctx, loanID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return view, nil
}

func (s *LoanService) requireUser(ctx context.Context, userID string) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func (s *LoanService) record(actorID, action, loanID string, metadata map[string]any, err error) {
	s.audit.Record(auditEntry(actorID, entities.AuditEventLoan, action, "loan", loanID, metadata, err))
}
