package books

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func seedCatalog(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []*entities.Book{
		{BookID: "B1", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", ISBN: "9780441013593", AvailableCopies: 1},
		{BookID: "B2", Title: "Emma", Author: "Jane Austen", Category: "Classics", ISBN: "9780141439587", AvailableCopies: 2},
		{BookID: "B3", Title: "Neuromancer", Author: "William Gibson", Category: "Science Fiction", AvailableCopies: 1, Status: entities.BookStatusBorrowed},
		{BookID: "B4", Title: "Zero Copies", Author: "Nobody", AvailableCopies: 0},
	} {
		require.NoError(t, repo.Create(ctx, b))
	}
}

func TestRepository_Create(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	book := &entities.Book{Title: "Untitled", AvailableCopies: 1}
	require.NoError(t, repo.Create(ctx, book))
	assert.NotEmpty(t, book.BookID)
	assert.Equal(t, entities.BookStatusAvailable, book.Status)

	found, err := repo.GetByID(ctx, book.BookID)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", found.Title)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_Listing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	seedCatalog(t, repo)
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "Dune", all[0].Title)

	available, err := repo.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "B1", available[0].BookID)
	assert.Equal(t, "B2", available[1].BookID)
}

func TestRepository_Search(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	seedCatalog(t, repo)
	ctx := context.Background()

	tests := []struct {
		term string
		want []string
	}{
		{"science", []string{"B1", "B3"}},
		{"AUSTEN", []string{"B2"}},
		{"978044", []string{"B1"}},
		{"xyz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			found, err := repo.Search(ctx, tt.term)
			require.NoError(t, err)
			var ids []string
			for _, b := range found {
				ids = append(ids, b.BookID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRepository_Update(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	seedCatalog(t, repo)
	ctx := context.Background()

	updated, err := repo.Update(ctx, "B1", map[string]interface{}{
		"title":  "Dune Messiah",
		"status": entities.BookStatusBorrowed,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, entities.BookStatusAvailable, updated.Status, "status is not a catalog field")

	_, err = repo.Update(ctx, "missing", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	seedCatalog(t, repo)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.Create(&entities.Reservation{ReservationID: "r1", UserID: "S1", BookID: "B2", ReservationDate: now, ExpiryDate: now}).Error)

	t.Run("referenced book is kept", func(t *testing.T) {
		_, err := repo.Delete(ctx, "B2")
		assert.ErrorIs(t, err, ErrBookInUse)
		ok, _ := repo.Exists(ctx, "B2")
		assert.True(t, ok)
	})

	t.Run("unreferenced book is removed", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, "Dune", deleted.Title)
		ok, _ := repo.Exists(ctx, "B1")
		assert.False(t, ok)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := repo.Delete(ctx, "missing")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}
