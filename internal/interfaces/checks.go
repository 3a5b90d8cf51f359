package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/librarydesk/librarydesk/internal/audit"
	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/database/books"
	"github.com/librarydesk/librarydesk/internal/database/loans"
	"github.com/librarydesk/librarydesk/internal/database/notifications"
	"github.com/librarydesk/librarydesk/internal/database/recommendations"
	"github.com/librarydesk/librarydesk/internal/database/reservations"
	"github.com/librarydesk/librarydesk/internal/database/users"
	"github.com/librarydesk/librarydesk/internal/http"
	"github.com/librarydesk/librarydesk/internal/notify"
	"github.com/librarydesk/librarydesk/internal/services"
	"github.com/librarydesk/librarydesk/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// User stores
var _ services.UserStore = (*users.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)

// Catalog stores
var _ services.BookStore = (*books.Repository)(nil)
var _ services.BookReader = (*books.Repository)(nil)

// Circulation stores
var _ services.LoanStore = (*loans.Repository)(nil)
var _ services.ReservationStore = (*reservations.Repository)(nil)
var _ services.RecommendationStore = (*recommendations.Repository)(nil)
var _ services.DueLoanReader = (*notifications.Repository)(nil)

// Health checks
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ services.AuditRecorder = (*audit.Service)(nil)
var _ auth.AuditRecorder = (*audit.Service)(nil)
var _ tasks.AuditTrailPruner = (*audit.Service)(nil)

// =============================================================================
// Notification Delivery
// =============================================================================

var _ notify.Sender = (*notify.LogSender)(nil)
var _ notify.Sender = (*notify.RedisSender)(nil)
var _ tasks.DigestDispatcher = (*services.NotificationService)(nil)
