package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/entities"
)

// AccountService implements user administration: listing, editing and deletion.
type AccountService struct {
	users      UserStore
	audit      AuditRecorder
	bcryptCost int
	now        func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, recorder AuditRecorder, bcryptCost int) *AccountService {
	if bcryptCost == 0 {
		bcryptCost = config.DefaultBcryptCost
	}
	return &AccountService{
		users:      users,
		audit:      recorderOrNoop(recorder),
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// EditInput holds the fields of an edit request. Nil means not supplied.
type EditInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Course     *string
	Department *string
	Role       *string
	Password   string
}

// EditResult describes a completed edit.
type EditResult struct {
	User            *entities.User
	EditedBy        string
	IsAdminEdit     bool
	PasswordUpdated bool
}

// DeleteUserResult is the removed user and the rows removed with it.
type DeleteUserResult struct {
	User    *entities.User
	Removed database.DeleteResult
}

// Get returns one user.
func (s *AccountService) Get(ctx context.Context, userID string) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns every user.
func (s *AccountService) List(ctx context.Context) ([]entities.User, error) {
	return s.users.List(ctx)
}

// Search matches users by name, email, role, course or department.
func (s *AccountService) Search(ctx context.Context, term string) ([]entities.User, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptySearch
	}
	return s.users.Search(ctx, term)
}

// ParseRole validates a role value.
func ParseRole(value string) (entities.UserRole, error) {
	role := entities.UserRole(strings.ToLower(strings.TrimSpace(value)))
	if role == "" {
		return "", ErrMissingFields
	}
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// ListByRole returns users with the given role.
func (s *AccountService) ListByRole(ctx context.Context, value string) ([]entities.User, error) {
	role, err := ParseRole(value)
	if err != nil {
		return nil, err
	}
	return s.users.ListByRole(ctx, role)
}

// WithActiveLoans returns users currently holding books.
func (s *AccountService) WithActiveLoans(ctx context.Context) ([]entities.UserLoanCount, error) {
	return s.users.WithActiveLoans(ctx)
}

// WithOverdueLoans returns users holding books past their due date.
func (s *AccountService) WithOverdueLoans(ctx context.Context) ([]entities.UserLoanCount, error) {
	return s.users.WithOverdueLoans(ctx, s.now())
}

// Edit updates a user on behalf of editorID. Users may edit themselves;
// admins may edit anyone and are the only ones allowed to change roles.
func (s *AccountService) Edit(ctx context.Context, editorID, targetID string, in EditInput) (*EditResult, error) {
	editor, err := s.users.GetByID(ctx, strings.TrimSpace(editorID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEditorNotFound
		}
		return nil, fmt.Errorf("failed to look up editor: %w", err)
	}
	target, err := s.users.GetByID(ctx, strings.TrimSpace(targetID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	isAdmin := editor.IsAdmin()
	if !isAdmin && editor.UserID != target.UserID {
		return nil, ErrEditForbidden
	}

	updates := map[string]interface{}{}
	if in.Role != nil {
		requested := entities.UserRole(strings.ToLower(strings.TrimSpace(*in.Role)))
		if !isAdmin && requested != "" && requested != target.Role {
			return nil, ErrRoleChangeForbidden
		}
		if isAdmin && requested != "" {
			if !requested.IsValid() {
				return nil, ErrInvalidRole
			}
			updates["role"] = requested
		}
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := auth.NormalizeEmail(*in.Email)
		if !auth.ValidEmail(email) {
			return nil, ErrInvalidEmail
		}
		if email != target.Email {
			taken, err := s.users.EmailTaken(ctx, email, target.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if taken {
				return nil, ErrEmailExists
			}
		}
		updates["email"] = email
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Course != nil {
		updates["course"] = strings.TrimSpace(*in.Course)
	}
	if in.Department != nil {
		updates["department"] = strings.TrimSpace(*in.Department)
	}

	passwordUpdated := strings.TrimSpace(in.Password) != ""
	if passwordUpdated {
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}

	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	updated, err := s.users.Update(ctx, target.UserID, updates)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	s.audit.Record(auditEntry(editor.UserID, entities.AuditEventUser, "user_edit", "user", target.UserID,
		map[string]any{"fields": fields, "admin_edit": isAdmin}, nil))

	return &EditResult{
		User:            updated,
		EditedBy:        editor.Name,
		IsAdminEdit:     isAdmin,
		PasswordUpdated: passwordUpdated,
	}, nil
}

// Delete removes targetID and every row that references it. Only an admin
// may delete, and never their own account.
func (s *AccountService) Delete(ctx context.Context, adminID, targetID string) (*DeleteUserResult, error) {
	adminID = strings.TrimSpace(adminID)
	targetID = strings.TrimSpace(targetID)

	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil || !admin.IsAdmin() {
		return nil, ErrAdminRequired
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if target.UserID == admin.UserID {
		return nil, ErrCannotDeleteSelf
	}

	removed, err := s.users.Delete(ctx, target)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	s.audit.Record(auditEntry(admin.UserID, entities.AuditEventUser, "user_delete", "user", target.UserID,
		map[string]any{"removed": removed}, nil))

	return &DeleteUserResult{User: target, Removed: removed}, nil
}
