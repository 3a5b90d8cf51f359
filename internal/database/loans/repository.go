// Package loans provides database operations for the loan lifecycle.
//
// Every transition that touches both a loan and its book runs in a single
// transaction, so a loan is never active while its book reads as available.
package loans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

var (
	ErrBookUnavailable = errors.New("book is not available for loan")
	ErrAlreadyReturned = errors.New("loan is already returned")
)

const (
	baseColumns = "loans.loan_id, loans.user_id, users.name AS user_name, users.email AS user_email, " +
		"loans.book_id, books.title AS book_title, books.author AS book_author, " +
		"loans.loan_date, loans.due_date, loans.return_date, loans.status, loans.created_at"
	completeColumns = baseColumns + ", users.role AS user_role, books.isbn AS book_isbn, " +
		"books.category AS book_category, books.publisher AS book_publisher"
)

// Repository handles loan persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create lends a book: it inserts the loan and marks the book borrowed.
// The book row is re-read inside the transaction; ErrBookUnavailable is
// returned when it is no longer available.
func (r *Repository) Create(ctx context.Context, loan *entities.Loan) error {
	if loan.LoanID == "" {
		loan.LoanID = uuid.NewString()
	}
	if loan.LoanDate.IsZero() {
		loan.LoanDate = time.Now()
	}
	loan.LoanDate = loan.LoanDate.UTC()
	loan.DueDate = loan.DueDate.UTC()
	loan.Status = entities.LoanStatusActive
	loan.ReturnDate = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.Where("book_id = ?", loan.BookID).First(&book).Error; err != nil {
			return database.NotFoundOr(err)
		}
		if book.Status != entities.BookStatusAvailable {
			return ErrBookUnavailable
		}
		if err := tx.Create(loan).Error; err != nil {
			return err
		}
		res := tx.Model(&entities.Book{}).
			Where("book_id = ? AND status = ?", loan.BookID, entities.BookStatusAvailable).
			Update("status", entities.BookStatusBorrowed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookUnavailable
		}
		return nil
	})
}

// Return closes an active loan at the given instant and makes the book available.
func (r *Repository) Return(ctx context.Context, loanID string, at time.Time) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", loanID).First(&loan).Error; err != nil {
			return database.NotFoundOr(err)
		}
		if loan.IsReturned() {
			return ErrAlreadyReturned
		}

		returned := at.UTC()
		err := tx.Model(&entities.Loan{}).Where("loan_id = ?", loanID).Updates(map[string]interface{}{
			"status":      entities.LoanStatusReturned,
			"return_date": returned,
		}).Error
		if err != nil {
			return err
		}
		if err := setBookStatus(tx, loan.BookID, entities.BookStatusAvailable); err != nil {
			return err
		}
		loan.Status = entities.LoanStatusReturned
		loan.ReturnDate = &returned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Delete removes a loan. An active loan gives its book back first.
func (r *Repository) Delete(ctx context.Context, loanID string) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", loanID).First(&loan).Error; err != nil {
			return database.NotFoundOr(err)
		}
		if loan.Status == entities.LoanStatusActive {
			if err := setBookStatus(tx, loan.BookID, entities.BookStatusAvailable); err != nil {
				return err
			}
		}
		return tx.Where("loan_id = ?", loanID).Delete(&entities.Loan{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// UpdateDueDate moves the due date without touching status.
func (r *Repository) UpdateDueDate(ctx context.Context, loanID string, due time.Time) (*entities.Loan, error) {
	res := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("loan_id = ?", loanID).
		Update("due_date", due.UTC())
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, loanID)
}

func setBookStatus(tx *gorm.DB, bookID string, status entities.BookStatus) error {
	return tx.Model(&entities.Book{}).Where("book_id = ?", bookID).Update("status", status).Error
}

// GetByID retrieves a bare loan row.
func (r *Repository) GetByID(ctx context.Context, loanID string) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&loan).Error
	if err != nil {
		return nil, database.NotFoundOr(err)
	}
	return &loan, nil
}

func (r *Repository) view(ctx context.Context, columns string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("loans").
		Select(columns).
		Joins("LEFT JOIN users ON users.user_id = loans.user_id").
		Joins("LEFT JOIN books ON books.book_id = loans.book_id")
}

// GetView retrieves one loan joined with its user and book.
func (r *Repository) GetView(ctx context.Context, loanID string) (*entities.LoanView, error) {
	var rows []entities.LoanView
	err := r.view(ctx, baseColumns).Where("loans.loan_id = ?", loanID).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return &rows[0], nil
}

// ListViews returns every loan, newest loan first.
func (r *Repository) ListViews(ctx context.Context) ([]entities.LoanView, error) {
	var rows []entities.LoanView
	err := r.view(ctx, baseColumns).Order("loans.loan_date DESC").Scan(&rows).Error
	return rows, err
}

// ListComplete returns every loan with extended user and book details, newest first.
func (r *Repository) ListComplete(ctx context.Context) ([]entities.LoanView, error) {
	var rows []entities.LoanView
	err := r.view(ctx, completeColumns).Order("loans.loan_date DESC").Scan(&rows).Error
	return rows, err
}

// ListByStatus filters loans by stored status, or by the derived overdue state
// (active and due before now). Results are ordered by due date.
func (r *Repository) ListByStatus(ctx context.Context, status entities.LoanStatus, now time.Time) ([]entities.LoanView, error) {
	query := r.view(ctx, baseColumns)
	switch status {
	case entities.LoanStatusOverdue:
		query = query.Where("loans.status = ? AND loans.due_date < ?", entities.LoanStatusActive, now.UTC())
	default:
		query = query.Where("loans.status = ?", status)
	}
	var rows []entities.LoanView
	err := query.Order("loans.due_date ASC").Scan(&rows).Error
	return rows, err
}

// ListOverdue returns active loans due before now.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]entities.LoanView, error) {
	return r.ListByStatus(ctx, entities.LoanStatusOverdue, now)
}

// ListForUser returns the loans of one user with book title, author and ISBN.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]entities.LoanView, error) {
	var rows []entities.LoanView
	err := r.view(ctx, baseColumns+", books.isbn AS book_isbn").
		Where("loans.user_id = ?", userID).
		Order("loans.loan_date DESC").
		Scan(&rows).Error
	return rows, err
}

// ReturnedCategories lists distinct categories of books the user has returned.
func (r *Repository) ReturnedCategories(ctx context.Context, userID string) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Table("loans").
		Joins("JOIN books ON books.book_id = loans.book_id").
		Where("loans.user_id = ? AND loans.status = ? AND books.category <> ''", userID, entities.LoanStatusReturned).
		Distinct().
		Pluck("books.category", &categories).Error
	return categories, err
}
