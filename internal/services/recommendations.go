package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/librarydesk/librarydesk/internal/database/recommendations"
	"github.com/librarydesk/librarydesk/internal/entities"
)

const (
	MinRating = 1
	MaxRating = 5
)

// RecommendationInput is a reader's review of a book.
type RecommendationInput struct {
	UserID string
	BookID string
	Rating int
	Review string
}

// RecommendationService stores reviews and suggests books.
type RecommendationService struct {
	recommendations RecommendationStore
	users           UserReader
	books           BookReader
	history         ReadingHistory
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(store RecommendationStore, users UserReader, books BookReader, history ReadingHistory) *RecommendationService {
	return &RecommendationService{recommendations: store, users: users, books: books, history: history}
}

// Submit stores a review and returns its identifier.
// A zero rating counts as missing, like an empty review.
func (s *RecommendationService) Submit(ctx context.Context, in RecommendationInput) (string, error) {
	userID := strings.TrimSpace(in.UserID)
	bookID := strings.TrimSpace(in.BookID)
	review := strings.TrimSpace(in.Review)
	if userID == "" || bookID == "" || in.Rating == 0 || review == "" {
		return "", ErrMissingFields
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return "", ErrInvalidRating
	}

	userExists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	bookExists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return "", fmt.Errorf("failed to look up book: %w", err)
	}
	if !userExists || !bookExists {
		return "", ErrUserOrBookNotFound
	}

	rec := &entities.Recommendation{
		UserID: userID,
		BookID: bookID,
		Rating: in.Rating,
		Review: review,
	}
	if err := s.recommendations.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to store recommendation: %w", err)
	}
	return rec.RecommendationID, nil
}

// Suggest returns available books for a user, preferring categories they have read.
func (s *RecommendationService) Suggest(ctx context.Context, userID string) ([]entities.Book, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingFields
	}
	categories, err := s.history.ReturnedCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read loan history: %w", err)
	}
	books, err := s.recommendations.SuggestBooks(ctx, categories, recommendations.DefaultLimit)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []entities.Book{}
	}
	return books, nil
}
