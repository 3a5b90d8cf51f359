// Package recommendations provides database operations for reader reviews
// and category-based book suggestions.
package recommendations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/entities"
)

// DefaultLimit is the number of books suggested per request.
const DefaultLimit = 6

// Repository handles recommendation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new recommendations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a review.
func (r *Repository) Create(ctx context.Context, rec *entities.Recommendation) error {
	if rec.RecommendationID == "" {
		rec.RecommendationID = uuid.NewString()
	}
	if rec.ReviewDate.IsZero() {
		rec.ReviewDate = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// SuggestBooks returns up to limit available books. Books in the given
// categories come first, then the rest by title.
func (r *Repository) SuggestBooks(ctx context.Context, categories []string, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var books []entities.Book
	err := r.db.WithContext(ctx).Raw(`
		SELECT books.* FROM books
		WHERE books.status = @available
		ORDER BY CASE WHEN books.category IN @categories THEN 1 ELSE 0 END DESC, books.title ASC
		LIMIT @limit`,
		map[string]interface{}{
			"available":  entities.BookStatusAvailable,
			"categories": categories,
			"limit":      limit,
		}).Scan(&books).Error
	return books, err
}
