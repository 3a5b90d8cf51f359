package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// DefaultReservationHold is how long a reservation stays valid.
const DefaultReservationHold = 7 * 24 * time.Hour

// ReservationView is a stored reservation with the names shown to clients.
type ReservationView struct {
	entities.Reservation
	UserName  string `json:"user_name"`
	BookTitle string `json:"book_title"`
}

// ReservationService records book reservations.
type ReservationService struct {
	reservations ReservationStore
	users        UserReader
	books        BookReader
	audit        AuditRecorder
	hold         time.Duration
	now          func() time.Time
}

// NewReservationService creates a new ReservationService. A hold of zero uses DefaultReservationHold.
func NewReservationService(store ReservationStore, users UserReader, books BookReader, recorder AuditRecorder, hold time.Duration) *ReservationService {
	if hold <= 0 {
		hold = DefaultReservationHold
	}
	return &ReservationService{
		reservations: store,
		users:        users,
		books:        books,
		audit:        recorderOrNoop(recorder),
		hold:         hold,
		now:          time.Now,
	}
}

// Create reserves a book for a user. The reservation starts pending.
func (s *ReservationService) Create(ctx context.Context, userID, bookID string) (*ReservationView, error) {
	userID = strings.TrimSpace(userID)
	bookID = strings.TrimSpace(bookID)
	if userID == "" || bookID == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to look up book: %w", err)
	}

	reservation := &entities.Reservation{
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: s.now(),
	}
	if err := s.reservations.Create(ctx, reservation, s.hold); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.audit.Record(auditEntry(userID, entities.AuditEventReservation, "reservation_create", "reservation",
		reservation.ReservationID, map[string]any{"book_id": bookID}, nil))

	return &ReservationView{
		Reservation: *reservation,
		UserName:    user.Name,
		BookTitle:   book.Title,
	}, nil
}

// ListForUser returns a user's reservations. An unknown user is ErrUserNotFound.
func (s *ReservationService) ListForUser(ctx context.Context, userID string) ([]entities.Reservation, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return s.reservations.ListForUser(ctx, userID)
}
