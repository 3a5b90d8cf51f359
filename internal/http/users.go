package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/database"
	"github.com/librarydesk/librarydesk/internal/services"
)

// UsersController serves user administration endpoints.
type UsersController struct {
	accounts *services.AccountService
}

func NewUsersController(accounts *services.AccountService) *UsersController {
	return &UsersController{accounts: accounts}
}

type editUserRequest struct {
	EditorID   string  `json:"editor_id"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Course     *string `json:"course"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	Password   string  `json:"password"`
}

type deleteUserRequest struct {
	AdminID string `json:"admin_id"`
}

// ListUsers returns every user.
// GET /user/all
func (uc *UsersController) ListUsers(c *gin.Context) {
	users, err := uc.accounts.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list users", "Users were not fetched")
		return
	}
	c.JSON(http.StatusOK, users)
}

// SearchUsers matches users by name, email, role, course or department.
// GET /user/searchtext?search=
func (uc *UsersController) SearchUsers(c *gin.Context) {
	term := c.Query("search")
	users, err := uc.accounts.Search(c.Request.Context(), term)
	if err != nil {
		if errors.Is(err, services.ErrEmptySearch) {
			respondBadRequest(c, "Please provide a search term")
			return
		}
		respondInternalError(c, err, "search users", "Failed to search for users")
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"message":     "No users found matching your search",
			"search_term": term,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Users found successfully",
		"count":       len(users),
		"search_term": term,
		"users":       users,
	})
}

// UsersByRole lists users holding a role.
// GET /user/role?role=
func (uc *UsersController) UsersByRole(c *gin.Context) {
	role := c.Query("role")
	users, err := uc.accounts.ListByRole(c.Request.Context(), role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondBadRequest(c, "Role parameter is required")
		case errors.Is(err, services.ErrInvalidRole):
			respondBadRequest(c, "Invalid role. Must be: student, librarian, admin, or lecturer")
		default:
			respondInternalError(c, err, "users by role", "Failed to fetch users by role")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Users with role %s retrieved successfully", strings.ToLower(strings.TrimSpace(role))),
		"count":   len(users),
		"users":   users,
	})
}

// UsersWithLoans lists users holding at least one active loan.
// GET /user/with-loans
func (uc *UsersController) UsersWithLoans(c *gin.Context) {
	users, err := uc.accounts.WithActiveLoans(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "users with loans", "Failed to fetch users with active loans")
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No users with active loans found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Users with active loans retrieved successfully",
		"count":   len(users),
		"users":   users,
	})
}

// UsersWithOverdue lists users holding books past their due date.
// GET /user/with-overdue
func (uc *UsersController) UsersWithOverdue(c *gin.Context) {
	users, err := uc.accounts.WithOverdueLoans(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "users with overdue", "Failed to fetch users with overdue books")
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No users with overdue books found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Users with overdue books retrieved successfully",
		"count":   len(users),
		"users":   users,
	})
}

// GetUser returns one user.
// GET /user/:user_id
func (uc *UsersController) GetUser(c *gin.Context) {
	userID := c.Param("user_id")
	user, err := uc.accounts.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "user_id": userID})
			return
		}
		respondInternalError(c, err, "get user", "Database error while fetching user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// EditUser updates a profile. Users edit themselves; admins edit anyone.
// PUT /editUsers/:user_id
func (uc *UsersController) EditUser(c *gin.Context) {
	var req editUserRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := uc.accounts.Edit(c.Request.Context(), auth.ActorID(c, req.EditorID), c.Param("user_id"), services.EditInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Course:     req.Course,
		Department: req.Department,
		Role:       req.Role,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEditorNotFound):
			respondNotFound(c, "Editor user not found")
		case errors.Is(err, services.ErrTargetUserNotFound):
			respondNotFound(c, "Target user not found")
		case errors.Is(err, services.ErrEditForbidden):
			respondForbidden(c, "Access denied. You can only edit your own profile.")
		case errors.Is(err, services.ErrRoleChangeForbidden):
			respondForbidden(c, "Access denied. Only admin can change user roles.")
		case errors.Is(err, services.ErrInvalidRole):
			respondBadRequest(c, "Invalid role. Must be: student, librarian, admin, or lecturer")
		case errors.Is(err, services.ErrNothingToUpdate):
			respondBadRequest(c, "No valid fields provided for update")
		case errors.Is(err, services.ErrEmailExists):
			respondBadRequest(c, "Email already exists")
		case errors.Is(err, services.ErrInvalidEmail):
			respondBadRequest(c, "Invalid email format")
		default:
			respondInternalError(c, err, "edit user", "Unable to update user")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "User updated successfully",
		"user":             result.User,
		"edited_by":        result.EditedBy,
		"is_admin_edit":    result.IsAdminEdit,
		"password_updated": result.PasswordUpdated,
	})
}

// DeleteUser removes a user and everything that references it. Admin only.
// DELETE /users/:user_id
func (uc *UsersController) DeleteUser(c *gin.Context) {
	var req deleteUserRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := uc.accounts.Delete(c.Request.Context(), auth.ActorID(c, req.AdminID), c.Param("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAdminRequired):
			respondForbidden(c, "Access denied. Admin privileges required.")
		case errors.Is(err, services.ErrUserNotFound):
			respondNotFound(c, "User not found")
		case errors.Is(err, services.ErrCannotDeleteSelf):
			respondBadRequest(c, "Cannot delete your own account")
		default:
			respondInternalError(c, err, "delete user", "Unable to delete user")
		}
		return
	}

	user := result.User
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("User %s (%s) deleted successfully", user.Name, user.UserID),
		"deleted_user": gin.H{
			"user_id": user.UserID,
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
		},
		"related_records_deleted": gin.H{
			"loans":           result.Removed[database.StepLoans],
			"reservations":    result.Removed[database.StepReservations],
			"recommendations": result.Removed[database.StepRecommendations],
			"books_restored":  result.Removed[database.StepRestoreBooks],
		},
	})
}
