// Package books provides database operations for the library catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(ctx, "B001")
package books

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// ErrBookInUse is returned when a book is still referenced by loans, reservations or recommendations.
var ErrBookInUse = errors.New("book is referenced by loans, reservations or recommendations")

// UpdatableFields lists catalog columns that PUT /books/update may change.
// Status is owned by the loan lifecycle and is deliberately absent.
var UpdatableFields = []string{"title", "author", "category", "isbn", "publisher", "available_copies"}

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a book, generating an identifier when none is set.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if book.BookID == "" {
		book.BookID = uuid.NewString()
	}
	if book.Status == "" {
		book.Status = entities.BookStatusAvailable
	}
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID retrieves a book by identifier.
func (r *Repository) GetByID(ctx context.Context, bookID string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).First(&book).Error
	if err != nil {
		return nil, database.NotFoundOr(err)
	}
	return &book, nil
}

// Exists reports whether a book with the given identifier exists.
func (r *Repository) Exists(ctx context.Context, bookID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("book_id = ?", bookID).Count(&count).Error
	return count > 0, err
}

// List returns the whole catalog ordered by title.
func (r *Repository) List(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Order("title ASC").Find(&books).Error
	return books, err
}

// ListAvailable returns books that can be lent right now.
func (r *Repository) ListAvailable(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Where("status = ? AND available_copies > 0", entities.BookStatusAvailable).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// Search finds books whose title, author, category or ISBN contains term, ignoring case.
func (r *Repository) Search(ctx context.Context, term string) ([]entities.Book, error) {
	pattern := database.ContainsPattern(term)
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(isbn) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

// Update applies catalog field changes and returns the stored book.
// Keys outside UpdatableFields are ignored.
func (r *Repository) Update(ctx context.Context, bookID string, fields map[string]interface{}) (*entities.Book, error) {
	updates := make(map[string]interface{}, len(fields))
	for _, name := range UpdatableFields {
		if v, ok := fields[name]; ok {
			updates[name] = v
		}
	}
	if len(updates) == 0 {
		return r.GetByID(ctx, bookID)
	}

	res := r.db.WithContext(ctx).Model(&entities.Book{}).Where("book_id = ?", bookID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, bookID)
}

// References counts rows in other tables that point at the book.
func (r *Repository) References(ctx context.Context, bookID string) (int64, error) {
	return countReferences(r.db.WithContext(ctx), bookID)
}

func countReferences(tx *gorm.DB, bookID string) (int64, error) {
	var total int64
	for _, model := range []interface{}{&entities.Loan{}, &entities.Reservation{}, &entities.Recommendation{}} {
		var n int64
		if err := tx.Model(model).Where("book_id = ?", bookID).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Delete removes an unreferenced book and returns the deleted row.
func (r *Repository) Delete(ctx context.Context, bookID string) (*entities.Book, error) {
	var deleted entities.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).First(&deleted).Error; err != nil {
			return database.NotFoundOr(err)
		}
		refs, err := countReferences(tx, bookID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrBookInUse
		}
		return tx.Where("book_id = ?", bookID).Delete(&entities.Book{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
