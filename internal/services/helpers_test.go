package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/database/books"
	"github.com/librarydesk/librarydesk/internal/database/loans"
	"github.com/librarydesk/librarydesk/internal/database/recommendations"
	"github.com/librarydesk/librarydesk/internal/database/reservations"
	"github.com/librarydesk/librarydesk/internal/database/users"
	"github.com/librarydesk/librarydesk/internal/entities"
)

type fixture struct {
	db              *gorm.DB
	users           *users.Repository
	books           *books.Repository
	loans           *loans.Repository
	reservations    *reservations.Repository
	recommendations *recommendations.Repository
}

// setupFixture opens a fresh database seeded with an admin, two students and two books.
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := auth.HashPassword("secret", 4)
	require.NoError(t, err)

	seedUsers := []entities.User{
		{UserID: "A001", Name: "Admin", Email: "admin@example.com", PasswordHash: hash, Role: entities.UserRoleAdmin},
		{UserID: "S10000001", Name: "Ann", Email: "ann@example.com", PasswordHash: hash, Role: entities.UserRoleStudent},
		{UserID: "S10000002", Name: "Ben", Email: "ben@example.com", PasswordHash: hash, Role: entities.UserRoleStudent},
	}
	for i := range seedUsers {
		require.NoError(t, db.DB.Create(&seedUsers[i]).Error)
	}
	seedBooks := []entities.Book{
		{BookID: "B1", Title: "Dune", Author: "Frank Herbert", Category: "SF", AvailableCopies: 1},
		{BookID: "B2", Title: "Emma", Author: "Jane Austen", Category: "Classics", AvailableCopies: 1},
	}
	for i := range seedBooks {
		require.NoError(t, db.DB.Create(&seedBooks[i]).Error)
	}

	return &fixture{
		db:              db.DB,
		users:           users.NewRepository(db.DB),
		books:           books.NewRepository(db.DB),
		loans:           loans.NewRepository(db.DB),
		reservations:    reservations.NewRepository(db.DB),
		recommendations: recommendations.NewRepository(db.DB),
	}
}

func (f *fixture) bookStatus(t *testing.T, id string) entities.BookStatus {
	t.Helper()
	book, err := f.books.GetByID(context.Background(), id)
	require.NoError(t, err)
	return book.Status
}
