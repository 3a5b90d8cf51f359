package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/librarydesk/librarydesk/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	return db
}

// seedCirculation records a small day of desk activity, oldest first.
func seedCirculation(t *testing.T, repo *Repository, start time.Time) {
	t.Helper()
	events := []entities.AuditEvent{
		{ActorID: "L001", EventType: entities.AuditEventLoan, Action: "loan_create", EntityType: "loan", EntityID: "loan-1"},
		{ActorID: "L001", EventType: entities.AuditEventLoan, Action: "loan_create", EntityType: "loan", EntityID: "loan-2"},
		{ActorID: "S10000001", EventType: entities.AuditEventReservation, Action: "reservation_create", EntityType: "reservation", EntityID: "res-1"},
		{ActorID: "L001", EventType: entities.AuditEventLoan, Action: "loan_return", EntityType: "loan", EntityID: "loan-1"},
		{ActorID: "A001", EventType: entities.AuditEventUser, Action: "user_edit", EntityType: "user", EntityID: "S10000001"},
		{ActorID: "L001", EventType: entities.AuditEventCatalog, Action: "book_create", EntityType: "book", EntityID: "B9"},
	}
	for i := range events {
		events[i].Status = entities.AuditStatusSuccess
		events[i].CreatedAt = start.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.LogEvent(&events[i]))
	}
}

func TestRepository_LogEventDefaults(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{ActorID: "A001", EventType: entities.AuditEventUser, Action: "user_delete"}
	require.NoError(t, repo.LogEvent(event))

	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, event.CreatedAt.Location())
}

func TestRepository_Queries(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	start := time.Now().Add(-time.Hour)
	seedCirculation(t, repo, start)

	tests := []struct {
		name       string
		eventType  entities.AuditEventType
		actorID    string
		limit      int
		offset     int
		wantTotal  int64
		wantAction []string
	}{
		{name: "everything newest first", limit: 3, wantTotal: 6,
			wantAction: []string{"book_create", "user_edit", "loan_return"}},
		{name: "second page", limit: 3, offset: 3, wantTotal: 6,
			wantAction: []string{"reservation_create", "loan_create", "loan_create"}},
		{name: "by actor", actorID: "L001", limit: 10, wantTotal: 4,
			wantAction: []string{"book_create", "loan_return", "loan_create", "loan_create"}},
		{name: "by type", eventType: entities.AuditEventLoan, limit: 10, wantTotal: 3,
			wantAction: []string{"loan_return", "loan_create", "loan_create"}},
		{name: "by type and actor", eventType: entities.AuditEventUser, actorID: "L001", limit: 10, wantTotal: 0},
		{name: "zero limit uses default", limit: 0, wantTotal: 6,
			wantAction: []string{"book_create", "user_edit", "loan_return", "reservation_create", "loan_create", "loan_create"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				events []entities.AuditEvent
				total  int64
				err    error
			)
			if tt.eventType != "" {
				events, total, err = repo.GetEventsByType(tt.eventType, tt.actorID, tt.limit, tt.offset)
			} else {
				events, total, err = repo.GetEvents(tt.actorID, tt.limit, tt.offset)
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			actions := make([]string, 0, len(events))
			for _, e := range events {
				actions = append(actions, e.Action)
			}
			if len(tt.wantAction) == 0 {
				assert.Empty(t, actions)
				return
			}
			assert.Equal(t, tt.wantAction, actions)
		})
	}
}

func TestRepository_GetEventsForEntity(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	seedCirculation(t, repo, time.Now().Add(-time.Hour))

	history, err := repo.GetEventsForEntity("loan", "loan-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "loan_return", history[0].Action)
	assert.Equal(t, "loan_create", history[1].Action)

	none, err := repo.GetEventsForEntity("book", "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	now := time.Now()

	seedCirculation(t, repo, now.Add(-72*time.Hour))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		ActorID: "L001", EventType: entities.AuditEventLoan, Action: "loan_delete",
		Status: entities.AuditStatusSuccess, CreatedAt: now.Add(-time.Hour),
	}))

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(6), deleted)

	remaining, total, err := repo.GetEvents("", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, remaining, 1)
	assert.Equal(t, "loan_delete", remaining[0].Action)
}
