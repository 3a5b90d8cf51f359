package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
)

// ReservationsController serves reservation endpoints.
type ReservationsController struct {
	reservations *services.ReservationService
}

func NewReservationsController(reservations *services.ReservationService) *ReservationsController {
	return &ReservationsController{reservations: reservations}
}

type reservationRequest struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

// CreateReservation holds a book for a user.
// POST /reservations/create
func (rc *ReservationsController) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	reservation, err := rc.reservations.Create(c.Request.Context(), req.UserID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "user_id and book_id are required")
		case errors.Is(err, services.ErrUserNotFound):
			respondNotFound(c, "User not found")
		case errors.Is(err, services.ErrBookNotFound):
			respondNotFound(c, "Book not found")
		default:
			respondInternalError(c, err, "create reservation", "Unable to create reservation")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Reservation created successfully",
		"reservation": reservation,
	})
}

// UserReservations lists a user's reservations.
// GET /user/:user_id/reservations
func (rc *ReservationsController) UserReservations(c *gin.Context) {
	reservations, err := rc.reservations.ListForUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondNotFound(c, "User not found")
			return
		}
		respondInternalError(c, err, "user reservations", "Unable to fetch reservations")
		return
	}
	if reservations == nil {
		reservations = []entities.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(reservations),
		"reservations": reservations,
	})
}
