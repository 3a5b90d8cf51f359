package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/services"
)

// BooksController serves the catalog endpoints.
type BooksController struct {
	catalog *services.CatalogService
}

func NewBooksController(catalog *services.CatalogService) *BooksController {
	return &BooksController{catalog: catalog}
}

type bookRequest struct {
	ID              string  `json:"id"`
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	Category        *string `json:"category"`
	ISBN            *string `json:"isbn"`
	Publisher       *string `json:"publisher"`
	AvailableCopies *int    `json:"available_copies"`
}

func (r bookRequest) input() services.BookInput {
	return services.BookInput{
		Title:           r.Title,
		Author:          r.Author,
		Category:        r.Category,
		ISBN:            r.ISBN,
		Publisher:       r.Publisher,
		AvailableCopies: r.AvailableCopies,
	}
}

// AvailableBooks returns books that can be borrowed now.
// GET /books/available
func (bc *BooksController) AvailableBooks(c *gin.Context) {
	books, err := bc.catalog.ListAvailable(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "available books", "Unable to fetch books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// AllBooks returns the whole catalog.
// GET /books/all
func (bc *BooksController) AllBooks(c *gin.Context) {
	books, err := bc.catalog.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "all books", "Books were not fetched")
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook returns one book.
// GET /books/id?id=
func (bc *BooksController) GetBook(c *gin.Context) {
	book, err := bc.catalog.Get(c.Request.Context(), c.Query("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "Book ID is required")
		case errors.Is(err, services.ErrBookNotFound):
			respondNotFound(c, "The book that you are looking for cannot be found")
		default:
			respondInternalError(c, err, "get book", "Failed to fetch the book that you are looking for")
		}
		return
	}
	c.JSON(http.StatusOK, book)
}

// SearchBooks matches title, author, category or ISBN.
// GET /books/searchtext?search=
func (bc *BooksController) SearchBooks(c *gin.Context) {
	term := c.Query("search")
	books, err := bc.catalog.Search(c.Request.Context(), term)
	if err != nil {
		if errors.Is(err, services.ErrEmptySearch) {
			respondBadRequest(c, "Please provide a search term")
			return
		}
		respondInternalError(c, err, "search books", "Failed to search for books")
		return
	}
	if len(books) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"message":     "No books found matching your search",
			"search_term": term,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Books found successfully",
		"count":       len(books),
		"search_term": term,
		"books":       books,
	})
}

// CreateBook adds a book to the catalog.
// POST /books/create
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req bookRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	book, err := bc.catalog.Create(c.Request.Context(), auth.GetUserID(c), req.input())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "Title and author are required")
		case errors.Is(err, services.ErrInvalidCopies):
			respondBadRequest(c, "Available copies cannot be negative")
		default:
			respondInternalError(c, err, "create book", "Failed to create the book")
		}
		return
	}
	respondCreated(c, gin.H{
		"message": "Book has been successfully created!",
		"book":    book,
	})
}

// UpdateBook changes catalog fields. Availability is not editable here.
// PUT /books/update
func (bc *BooksController) UpdateBook(c *gin.Context) {
	var req bookRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	book, err := bc.catalog.Update(c.Request.Context(), auth.GetUserID(c), req.ID, req.input())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "Book ID is required for update")
		case errors.Is(err, services.ErrNothingToUpdate):
			respondBadRequest(c, "No valid fields provided for update")
		case errors.Is(err, services.ErrInvalidCopies):
			respondBadRequest(c, "Available copies cannot be negative")
		case errors.Is(err, services.ErrBookNotFound):
			respondNotFound(c, "The book that you are looking for cannot be found")
		default:
			respondInternalError(c, err, "update book", "The book has failed to update")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Book has been successfully updated!",
		"book":    book,
	})
}

// DeleteBook removes a book nothing references.
// DELETE /books/delete
func (bc *BooksController) DeleteBook(c *gin.Context) {
	var req bookRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	book, err := bc.catalog.Delete(c.Request.Context(), auth.GetUserID(c), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "Book ID is required for deletion")
		case errors.Is(err, services.ErrBookNotFound):
			respondNotFound(c, "Book has not been found")
		case errors.Is(err, services.ErrBookInUse):
			respondBadRequest(c, "Book is still referenced by loans, reservations or recommendations")
		default:
			respondInternalError(c, err, "delete book", "Failed to delete the book")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Book has been successfully deleted!",
		"book":    book,
	})
}
