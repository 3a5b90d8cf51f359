// Package notifications provides the read-only due-date queries behind
// overdue notices and return reminders.
package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/entities"
)

const dueColumns = "loans.loan_id, loans.user_id, users.name AS user_name, users.email AS user_email, " +
	"loans.book_id, books.title AS book_title, books.author AS book_author, loans.loan_date, loans.due_date"

// Repository runs due-date queries over unreturned loans.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) unreturned(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("loans").
		Select(dueColumns).
		Joins("JOIN users ON users.user_id = loans.user_id").
		Joins("JOIN books ON books.book_id = loans.book_id").
		Where("loans.return_date IS NULL")
}

// DueBy returns unreturned loans whose due date is at or before now.
func (r *Repository) DueBy(ctx context.Context, now time.Time) ([]entities.DueLoan, error) {
	var rows []entities.DueLoan
	err := r.unreturned(ctx).
		Where("loans.due_date <= ?", now.UTC()).
		Order("loans.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

// OverdueAt returns unreturned loans whose due date is strictly before now.
func (r *Repository) OverdueAt(ctx context.Context, now time.Time) ([]entities.DueLoan, error) {
	var rows []entities.DueLoan
	err := r.unreturned(ctx).
		Where("loans.due_date < ?", now.UTC()).
		Order("loans.user_id ASC, loans.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

// DueBetween returns unreturned loans due after from and no later than until.
func (r *Repository) DueBetween(ctx context.Context, from, until time.Time) ([]entities.DueLoan, error) {
	var rows []entities.DueLoan
	err := r.unreturned(ctx).
		Where("loans.due_date > ? AND loans.due_date <= ?", from.UTC(), until.UTC()).
		Order("loans.due_date ASC").
		Scan(&rows).Error
	return rows, err
}
