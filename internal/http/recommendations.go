package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/services"
)

// RecommendationsController serves reviews and reading suggestions.
type RecommendationsController struct {
	recommendations *services.RecommendationService
}

func NewRecommendationsController(recommendations *services.RecommendationService) *RecommendationsController {
	return &RecommendationsController{recommendations: recommendations}
}

// looseInt accepts a JSON number or a quoted number. Anything else decodes to 0.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseInt(f)
	return nil
}

type recommendationRequest struct {
	UserID string   `json:"user_id"`
	BookID string   `json:"book_id"`
	Rating looseInt `json:"rating"`
	Review string   `json:"review"`
}

// SubmitRecommendation stores a rating and review.
// POST /recommendation
func (rc *RecommendationsController) SubmitRecommendation(c *gin.Context) {
	var req recommendationRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	id, err := rc.recommendations.Submit(c.Request.Context(), services.RecommendationInput{
		UserID: req.UserID,
		BookID: req.BookID,
		Rating: int(req.Rating),
		Review: req.Review,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "All the fields are necessary")
		case errors.Is(err, services.ErrInvalidRating):
			respondBadRequest(c, "Rating must be between 1 and 5")
		case errors.Is(err, services.ErrUserOrBookNotFound):
			respondBadRequest(c, "User or book does not exist")
		default:
			respondInternalError(c, err, "submit recommendation", "Failed to submit recommendation")
		}
		return
	}
	respondCreated(c, gin.H{
		"message":           "Recommendations have been submitted!",
		"recommendation_id": id,
	})
}

// GetRecommendations suggests up to six available books for a user.
// GET /recommendation/:userId
func (rc *RecommendationsController) GetRecommendations(c *gin.Context) {
	books, err := rc.recommendations.Suggest(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			respondBadRequest(c, "User ID is required")
			return
		}
		respondInternalError(c, err, "recommendations", "Failed to fetch recommendations")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"recommendedBooks": books,
	})
}
