package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
)

// NotificationsController serves due-date reports and digest dispatch.
type NotificationsController struct {
	notifications *services.NotificationService
}

func NewNotificationsController(notifications *services.NotificationService) *NotificationsController {
	return &NotificationsController{notifications: notifications}
}

// BooksDue lists unreturned loans that are due now or overdue.
// GET /notifications/books-due
func (nc *NotificationsController) BooksDue(c *gin.Context) {
	due, err := nc.notifications.DueBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "books due", "Failed to fetch books due for return")
		return
	}
	if len(due) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":   "No books are currently due for return",
			"due_books": []entities.DueLoan{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Books due for return retrieved successfully",
		"count":     len(due),
		"due_books": due,
	})
}

// UpcomingReturns lists loans falling due within the reminder window.
// GET /notifications/upcoming-returns
func (nc *NotificationsController) UpcomingReturns(c *gin.Context) {
	upcoming, err := nc.notifications.UpcomingReturns(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "upcoming returns", "Failed to fetch upcoming returns")
		return
	}
	if len(upcoming) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":          "No upcoming book returns in the next 3 days",
			"upcoming_returns": []entities.DueLoan{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Upcoming book returns retrieved successfully",
		"count":            len(upcoming),
		"upcoming_returns": upcoming,
	})
}

// SendOverdue groups overdue loans per user and dispatches one notice each.
// POST /notifications/send-overdue
func (nc *NotificationsController) SendOverdue(c *gin.Context) {
	result, err := nc.notifications.SendOverdue(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "send overdue", "Failed to process overdue notifications")
		return
	}
	if len(result.Digests) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":            "No overdue books found for notifications",
			"notifications_sent": 0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "Overdue notifications processed successfully",
		"total_overdue_books": result.TotalBooks,
		"users_affected":      len(result.Digests),
		"notifications":       digestEntries(result.Digests, "overdue_books_count"),
		"dispatched":          result.Dispatched,
		"failed":              result.Failed,
	})
}

// SendReminders groups loans due soon per user and dispatches one reminder each.
// POST /notifications/send-reminders
func (nc *NotificationsController) SendReminders(c *gin.Context) {
	result, err := nc.notifications.SendReminders(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "send reminders", "Failed to process due soon reminders")
		return
	}
	if len(result.Digests) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":        "No books due soon for reminders",
			"reminders_sent": 0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":              "Due soon reminders processed successfully",
		"total_books_due_soon": result.TotalBooks,
		"users_affected":       len(result.Digests),
		"reminders":            digestEntries(result.Digests, "due_soon_books_count"),
		"dispatched":           result.Dispatched,
		"failed":               result.Failed,
	})
}

// digestEntries renders digests with the per-kind count field name.
func digestEntries(digests []entities.UserDigest, countField string) []gin.H {
	entries := make([]gin.H, 0, len(digests))
	for _, d := range digests {
		entries = append(entries, gin.H{
			"user_id":    d.UserID,
			"user_name":  d.UserName,
			"user_email": d.UserEmail,
			countField:   len(d.Books),
			"books":      d.Books,
		})
	}
	return entries
}
