package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/entities"
)

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON, optionally filtered
// by event type and actor.
// GET /audit/events?page=&limit=&type=&actor=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	eventType := c.Query("type")
	actorID := c.Query("actor")
	offset := (page - 1) * limit

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType != "" {
		events, total, err = ac.auditService.GetEventsByType(entities.AuditEventType(eventType), actorID, limit, offset)
	} else {
		events, total, err = ac.auditService.GetEvents(actorID, limit, offset)
	}

	if err != nil {
		respondInternalError(c, err, "audit events", "Failed to load audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

var auditEntityTypes = map[string]bool{"loan": true, "user": true, "book": true, "reservation": true}

// GetEntityHistory lists the audit trail of a single entity.
// GET /audit/:entity_type/:entity_id
func (ac *AuditController) GetEntityHistory(c *gin.Context) {
	entityType := c.Param("entity_type")
	if !auditEntityTypes[entityType] {
		respondBadRequest(c, "entity_type must be one of loan, user, book, reservation")
		return
	}
	entityID := c.Param("entity_id")

	events, err := ac.auditService.History(entityType, entityID)
	if err != nil {
		respondInternalError(c, err, "audit history", "Failed to load audit history")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"entity_type": entityType,
		"entity_id":   entityID,
		"count":       len(events),
		"events":      events,
	})
}
