// Package database provides the data access layer for the library.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go        # Connection setup (SQLite or PostgreSQL), migrations
//	├── deleteplan.go      # Ordered dependent-row cleanup in one transaction
//	├── books/             # Catalog CRUD and search
//	├── users/             # Accounts, search, sign-in history
//	├── loans/             # Loan lifecycle transactions and joined views
//	├── reservations/      # Pending reservations
//	├── recommendations/   # Reviews and category-based suggestions
//	├── notifications/     # Due and overdue loan queries
//	└── audit/             # Audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./library.db")
//
//	loanRepo := loans.NewRepository(db.DB)
//	err = loanRepo.Create(ctx, &entities.Loan{UserID: "S12345678", BookID: "B001", DueDate: due})
//
// # Referential Integrity
//
// The schema declares no foreign keys. Repositories check references
// themselves (books.Repository.Delete) and user removal goes through
// UserDeletePlan, which clears every dependent table before the user row.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the store interface the service or controller needs
//  5. Add a compile-time check in internal/interfaces/checks.go
package database
