package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk/internal/entities"
)

func TestLoanService_Create(t *testing.T) {
	f := setupFixture(t)
	svc := NewLoanService(f.loans, f.users, f.books, nil)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateLoanInput{UserID: "S10000001", BookID: "B1", DueDate: "2030-01-15"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", view.UserName)
	assert.Equal(t, "Dune", view.BookTitle)
	assert.Equal(t, entities.LoanStatusActive, view.Status)
	assert.Equal(t, time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC), view.DueDate.UTC())
	assert.Equal(t, entities.BookStatusBorrowed, f.bookStatus(t, "B1"))

	tests := []struct {
		name    string
		in      CreateLoanInput
		wantErr error
	}{
		{"missing due date", CreateLoanInput{UserID: "S10000001", BookID: "B2"}, ErrMissingFields},
		{"bad due date", CreateLoanInput{UserID: "S10000001", BookID: "B2", DueDate: "15/01/2030"}, ErrInvalidDate},
		{"unknown user", CreateLoanInput{UserID: "nobody", BookID: "B2", DueDate: "2030-01-15"}, ErrUserNotFound},
		{"unknown book", CreateLoanInput{UserID: "S10000001", BookID: "B9", DueDate: "2030-01-15"}, ErrBookNotFound},
		{"book already out", CreateLoanInput{UserID: "S10000002", BookID: "B1", DueDate: "2030-01-15"}, ErrBookUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed creates must not leave loans behind")
}

func TestLoanService_ReturnAndDelete(t *testing.T) {
	f := setupFixture(t)
	svc := NewLoanService(f.loans, f.users, f.books, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateLoanInput{UserID: "S10000001", BookID: "B1", DueDate: "2030-01-15"})
	require.NoError(t, err)

	returned, err := svc.Return(ctx, "A001", first.LoanID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusReturned, returned.Status)
	assert.NotNil(t, returned.ReturnDate)
	assert.Equal(t, entities.BookStatusAvailable, f.bookStatus(t, "B1"))

	_, err = svc.Return(ctx, "A001", first.LoanID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	_, err = svc.Return(ctx, "A001", "missing")
	assert.ErrorIs(t, err, ErrLoanNotFound)
	_, err = svc.Return(ctx, "A001", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	second, err := svc.Create(ctx, CreateLoanInput{UserID: "S10000002", BookID: "B1", DueDate: "2030-02-01T10:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusBorrowed, f.bookStatus(t, "B1"))

	_, err = svc.Delete(ctx, "A001", second.LoanID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, f.bookStatus(t, "B1"))

	_, err = svc.Get(ctx, second.LoanID)
	assert.ErrorIs(t, err, ErrLoanNotFound)
	_, err = svc.Delete(ctx, "A001", second.LoanID)
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestLoanService_UpdateDueDate(t *testing.T) {
	f := setupFixture(t)
	svc := NewLoanService(f.loans, f.users, f.books, nil)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateLoanInput{UserID: "S10000001", BookID: "B1", DueDate: "2030-01-15"})
	require.NoError(t, err)

	loan, err := svc.UpdateDueDate(ctx, "A001", view.LoanID, "2030-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), loan.DueDate.UTC())
	assert.Equal(t, entities.LoanStatusActive, loan.Status)

	_, err = svc.UpdateDueDate(ctx, "A001", view.LoanID, "soon")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = svc.UpdateDueDate(ctx, "A001", "missing", "2030-03-01")
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestLoanService_ListByStatus(t *testing.T) {
	f := setupFixture(t)
	svc := NewLoanService(f.loans, f.users, f.books, nil)
	ctx := context.Background()

	overdue, err := svc.Create(ctx, CreateLoanInput{UserID: "S10000001", BookID: "B1", DueDate: "2020-01-01"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateLoanInput{UserID: "S10000002", BookID: "B2", DueDate: "2030-01-01"})
	require.NoError(t, err)

	active, err := svc.ListByStatus(ctx, "active")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	late, err := svc.ListByStatus(ctx, "OVERDUE")
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.LoanID, late[0].LoanID)

	late, err = svc.ListOverdue(ctx)
	require.NoError(t, err)
	assert.Len(t, late, 1)

	_, err = svc.ListByStatus(ctx, "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.ListByStatus(ctx, "")
	assert.ErrorIs(t, err, ErrMissingFields)

	mine, err := svc.ListForUser(ctx, "S10000001")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-05-04", time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), false},
		{"2026-05-04T08:30:00+02:00", time.Date(2026, 5, 4, 6, 30, 0, 0, time.UTC), false},
		{" 2026-05-04 ", time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), false},
		{"04-05-2026", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDate, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}
}

func TestCalendarDays(t *testing.T) {
	due := time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC)
	now := time.Date(2026, 5, 6, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, calendarDays(due, now))
	assert.Equal(t, -2, calendarDays(now, due))
	assert.Equal(t, 0, calendarDays(now, now.Add(time.Hour)))
}
