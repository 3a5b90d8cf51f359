package services

import "errors"

// Lookup failures
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrBookNotFound       = errors.New("book not found")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrEditorNotFound     = errors.New("editor user not found")
	ErrUserOrBookNotFound = errors.New("user or book does not exist")
	ErrTargetUserNotFound = errors.New("target user not found")
)

// Validation failures
var (
	ErrMissingFields    = errors.New("required fields are missing")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrNothingToUpdate  = errors.New("no valid fields provided for update")
	ErrEmptySearch      = errors.New("search term is required")
	ErrEmailExists      = errors.New("email already exists")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrBookUnavailable  = errors.New("book is not available for loan")
	ErrAlreadyReturned  = errors.New("loan is already returned")
	ErrBookInUse        = errors.New("book is referenced by loans, reservations or recommendations")
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
)

// Authorization failures
var (
	ErrEditForbidden       = errors.New("you can only edit your own profile")
	ErrRoleChangeForbidden = errors.New("only admin can change user roles")
	ErrAdminRequired       = errors.New("admin privileges required")
)
