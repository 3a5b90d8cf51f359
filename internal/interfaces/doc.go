// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - UserReader / UserStore: users and account administration (internal/services/interfaces.go)
//   - auth.UserStore: credentials, two-factor state and sign-in history (internal/auth/service.go)
//   - BookReader / BookStore: the catalog (internal/services/interfaces.go, internal/services/catalog.go)
//   - LoanStore: loans and their effect on book availability (internal/services/interfaces.go)
//   - ReservationStore, RecommendationStore: holds and reviews (internal/services/interfaces.go)
//   - DueLoanReader: unreturned loans by due date (internal/services/interfaces.go)
//
// ## Side-Effect Interfaces
//
//   - AuditRecorder: lifecycle events, satisfied by *audit.Service
//   - notify.Sender: delivery of per-user digests (log or Redis stream)
//   - tasks.DigestDispatcher / tasks.AuditTrailPruner: background queue processors
//
// # Adding a New Notification Channel
//
//  1. Implement notify.Sender in internal/notify/
//
//     type SMTPSender struct { ... }
//
//     func (s *SMTPSender) Send(ctx context.Context, digest entities.UserDigest) error
//
//  2. Select it in notify.NewSender from a new config.NotifySender value
//
//  3. Add a compile-time check to checks.go
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Declare the store interface next to the service that consumes it
//
//  4. Add compile-time check:
//
//     var _ services.SomeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
