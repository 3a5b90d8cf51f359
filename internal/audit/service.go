package audit

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/librarydesk/librarydesk/internal/database/audit"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// Entry describes one audited action before it becomes an AuditEvent.
type Entry struct {
	ActorID     string
	EventType   entities.AuditEventType
	Action      string
	EntityType  string
	EntityID    string
	Description string
	Metadata    map[string]any
	Err         error
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every LogAsync call so far has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Record turns an entry into an event and logs it asynchronously.
// A non-nil Err marks the event failed.
func (s *Service) Record(e Entry) {
	event := &entities.AuditEvent{
		ActorID:     e.ActorID,
		EventType:   e.EventType,
		Action:      e.Action,
		Description: truncate(e.Description, 500),
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Status:      entities.AuditStatusSuccess,
	}

	if len(e.Metadata) > 0 {
		if mdBytes, err := json.Marshal(e.Metadata); err == nil {
			event.Metadata = string(mdBytes)
		}
	}

	if e.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(e.Err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(actorID string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(actorID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, actorID string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, actorID, limit, offset)
}

// History returns every event recorded for one loan, user or book, newest first.
func (s *Service) History(entityType, entityID string) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForEntity(entityType, entityID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
