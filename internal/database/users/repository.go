// Package users provides database operations for library members and staff.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(ctx, "reader@example.com")
package users

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/twofactor"
)

// twoFactorColumns are the only columns the two-factor flows write.
var twoFactorColumns = []string{
	"two_factor_enabled",
	"two_factor_secret",
	"two_factor_pending_secret",
	"backup_codes",
	"pending_backup_codes",
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user row.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	if user.RegistrationDate.IsZero() {
		user.RegistrationDate = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by identifier.
func (r *Repository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		return nil, database.NotFoundOr(err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, database.NotFoundOr(err)
	}
	return &user, nil
}

// Exists reports whether a user with the given identifier exists.
func (r *Repository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// EmailTaken reports whether another user already uses the email.
// exceptUserID excludes the user being edited; pass "" on registration.
func (r *Repository) EmailTaken(ctx context.Context, email, exceptUserID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	if exceptUserID != "" {
		query = query.Where("user_id <> ?", exceptUserID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// MaxSequence returns the largest numeric suffix among identifiers starting with prefix.
// Identifiers whose suffix is not a number are ignored.
func (r *Repository) MaxSequence(ctx context.Context, prefix string) (int, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("user_id LIKE ?", prefix+"%").
		Pluck("user_id", &ids).Error
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

// List returns every user ordered by name.
func (r *Repository) List(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

// Search finds users whose name, email, role, course or department contains term.
func (r *Repository) Search(ctx context.Context, term string) ([]entities.User, error) {
	pattern := database.ContainsPattern(term)
	var users []entities.User
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(role) LIKE ? ESCAPE '\' OR LOWER(course) LIKE ? ESCAPE '\' OR LOWER(department) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern, pattern).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

// ListByRole returns users holding the given role.
func (r *Repository) ListByRole(ctx context.Context, role entities.UserRole) ([]entities.User, error) {
	var users []entities.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("name ASC").Find(&users).Error
	return users, err
}

// WithActiveLoans returns users holding at least one active loan and how many.
func (r *Repository) WithActiveLoans(ctx context.Context) ([]entities.UserLoanCount, error) {
	return r.loanCounts(ctx, r.db.Where("loans.status = ?", entities.LoanStatusActive))
}

// WithOverdueLoans returns users whose active loans are past due at now, with a count.
func (r *Repository) WithOverdueLoans(ctx context.Context, now time.Time) ([]entities.UserLoanCount, error) {
	return r.loanCounts(ctx, r.db.Where("loans.status = ? AND loans.due_date < ?", entities.LoanStatusActive, now.UTC()))
}

func (r *Repository) loanCounts(ctx context.Context, filter *gorm.DB) ([]entities.UserLoanCount, error) {
	var rows []entities.UserLoanCount
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.user_id, users.name, users.email, users.role, users.phone, COUNT(loans.loan_id) AS loan_count").
		Joins("JOIN loans ON loans.user_id = users.user_id").
		Where(filter).
		Group("users.user_id, users.name, users.email, users.role, users.phone").
		Order("users.name ASC").
		Scan(&rows).Error
	return rows, err
}

// Update applies column updates to a user and returns the stored row.
func (r *Repository) Update(ctx context.Context, userID string, updates map[string]interface{}) (*entities.User, error) {
	res := r.db.WithContext(ctx).Model(&entities.User{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, database.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}

// SaveTwoFactor writes the two-factor state of user and leaves profile columns alone.
func (r *Repository) SaveTwoFactor(ctx context.Context, user *entities.User) error {
	result := r.db.WithContext(ctx).Model(user).
		Select(twoFactorColumns).
		Updates(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ConsumeBackupCode removes code from the user's backup codes. The update is
// conditional on the list read inside the transaction, so a code can be
// spent by one sign-in only. It reports whether the code was consumed.
func (r *Repository) ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error) {
	consumed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			BackupCodes *string
		}
		err := tx.Model(&entities.User{}).
			Select("backup_codes").
			Where("user_id = ?", userID).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.ErrNotFound
		}
		if err != nil {
			return err
		}
		if row.BackupCodes == nil {
			return nil
		}

		var codes []string
		if err := json.Unmarshal([]byte(*row.BackupCodes), &codes); err != nil {
			return err
		}
		remaining, ok := twofactor.ConsumeBackupCode(codes, code)
		if !ok {
			return nil
		}
		encoded, err := json.Marshal(remaining)
		if err != nil {
			return err
		}

		result := tx.Model(&entities.User{}).
			Where("user_id = ? AND backup_codes = ?", userID, *row.BackupCodes).
			Update("backup_codes", gorm.Expr("?", string(encoded)))
		if result.Error != nil {
			return result.Error
		}
		consumed = result.RowsAffected == 1
		return nil
	})
	return consumed, err
}

// Delete removes the user and all dependent rows in one transaction.
func (r *Repository) Delete(ctx context.Context, user *entities.User) (database.DeleteResult, error) {
	return database.UserDeletePlan(user.UserID, user.Email).Execute(ctx, r.db)
}

// RecordLogin stores one successful sign-in.
func (r *Repository) RecordLogin(ctx context.Context, record *entities.LoginRecord) error {
	if record.SignedInAt.IsZero() {
		record.SignedInAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// LoginHistory returns the most recent sign-ins of a user.
func (r *Repository) LoginHistory(ctx context.Context, userID string, limit int) ([]entities.LoginRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []entities.LoginRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("signed_in_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
