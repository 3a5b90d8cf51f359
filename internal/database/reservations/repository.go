// Package reservations provides database operations for book reservations.
package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/entities"
)

// Repository handles reservation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reservations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a pending reservation that expires hold after its reservation date.
// Both dates derive from the same instant.
func (r *Repository) Create(ctx context.Context, reservation *entities.Reservation, hold time.Duration) error {
	if reservation.ReservationID == "" {
		reservation.ReservationID = uuid.NewString()
	}
	if reservation.ReservationDate.IsZero() {
		reservation.ReservationDate = time.Now()
	}
	reservation.ReservationDate = reservation.ReservationDate.UTC()
	reservation.ExpiryDate = reservation.ReservationDate.Add(hold)
	reservation.Status = entities.ReservationStatusPending
	return r.db.WithContext(ctx).Create(reservation).Error
}

// ListForUser returns a user's reservations, most recent first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]entities.Reservation, error) {
	var reservations []entities.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reservation_date DESC").
		Find(&reservations).Error
	return reservations, err
}
