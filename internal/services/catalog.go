package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/database/books"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// ErrInvalidCopies is returned when available_copies is negative.
var ErrInvalidCopies = errors.New("available copies cannot be negative")

// BookStore is the catalog persistence.
type BookStore interface {
	BookReader
	Create(ctx context.Context, book *entities.Book) error
	List(ctx context.Context) ([]entities.Book, error)
	ListAvailable(ctx context.Context) ([]entities.Book, error)
	Search(ctx context.Context, term string) ([]entities.Book, error)
	Update(ctx context.Context, bookID string, fields map[string]interface{}) (*entities.Book, error)
	Delete(ctx context.Context, bookID string) (*entities.Book, error)
}

// CatalogService manages the book catalog. Book availability is changed
// only by the loan lifecycle, never here.
type CatalogService struct {
	books BookStore
	audit AuditRecorder
}

func NewCatalogService(store BookStore, recorder AuditRecorder) *CatalogService {
	return &CatalogService{books: store, audit: recorderOrNoop(recorder)}
}

// BookInput carries catalog fields. Nil pointers are not supplied.
type BookInput struct {
	Title           *string
	Author          *string
	Category        *string
	ISBN            *string
	Publisher       *string
	AvailableCopies *int
}

func (in BookInput) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	set := func(name string, v *string) {
		if v != nil {
			fields[name] = strings.TrimSpace(*v)
		}
	}
	set("title", in.Title)
	set("author", in.Author)
	set("category", in.Category)
	set("isbn", in.ISBN)
	set("publisher", in.Publisher)
	if in.AvailableCopies != nil {
		fields["available_copies"] = *in.AvailableCopies
	}
	return fields
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// Create adds a book. Title and author are required; copies default to one.
func (s *CatalogService) Create(ctx context.Context, actorID string, in BookInput) (*entities.Book, error) {
	if deref(in.Title) == "" || deref(in.Author) == "" {
		return nil, ErrMissingFields
	}
	copies := 1
	if in.AvailableCopies != nil {
		copies = *in.AvailableCopies
	}
	if copies < 0 {
		return nil, ErrInvalidCopies
	}

	book := &entities.Book{
		Title:           deref(in.Title),
		Author:          deref(in.Author),
		Category:        deref(in.Category),
		ISBN:            deref(in.ISBN),
		Publisher:       deref(in.Publisher),
		AvailableCopies: copies,
		Status:          entities.BookStatusAvailable,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	s.record(actorID, "book_create", book.BookID, map[string]any{"title": book.Title}, nil)
	return book, nil
}

// Get returns one book.
func (s *CatalogService) Get(ctx context.Context, bookID string) (*entities.Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, ErrMissingFields
	}
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *CatalogService) List(ctx context.Context) ([]entities.Book, error) {
	return s.books.List(ctx)
}

// ListAvailable returns books that can be lent now.
func (s *CatalogService) ListAvailable(ctx context.Context) ([]entities.Book, error) {
	return s.books.ListAvailable(ctx)
}

// Search matches title, author, category or ISBN.
func (s *CatalogService) Search(ctx context.Context, term string) ([]entities.Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptySearch
	}
	return s.books.Search(ctx, term)
}

// Update changes catalog fields of a book.
func (s *CatalogService) Update(ctx context.Context, actorID, bookID string, in BookInput) (*entities.Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, ErrMissingFields
	}
	fields := in.fields()
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}
	if in.AvailableCopies != nil && *in.AvailableCopies < 0 {
		return nil, ErrInvalidCopies
	}

	book, err := s.books.Update(ctx, bookID, fields)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	changed := make([]string, 0, len(fields))
	for name := range fields {
		changed = append(changed, name)
	}
	s.record(actorID, "book_update", bookID, map[string]any{"fields": changed}, nil)
	return book, nil
}

// Delete removes a book that nothing references.
func (s *CatalogService) Delete(ctx context.Context, actorID, bookID string) (*entities.Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, ErrMissingFields
	}
	book, err := s.books.Delete(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrBookNotFound
		case errors.Is(err, books.ErrBookInUse):
			return nil, ErrBookInUse
		}
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}
	s.record(actorID, "book_delete", bookID, map[string]any{"title": book.Title}, nil)
	return book, nil
}

func (s *CatalogService) record(actorID, action, bookID string, metadata map[string]any, err error) {
	s.audit.Record(auditEntry(actorID, entities.AuditEventCatalog, action, "book", bookID, metadata, err))
}
