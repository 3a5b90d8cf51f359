package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleStudent   UserRole = "student"
	UserRoleLibrarian UserRole = "librarian"
	UserRoleAdmin     UserRole = "admin"
	UserRoleLecturer  UserRole = "lecturer"
)

// ValidUserRoles lists roles accepted at registration and on edit.
var ValidUserRoles = []UserRole{UserRoleStudent, UserRoleLibrarian, UserRoleAdmin, UserRoleLecturer}

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	for _, valid := range ValidUserRoles {
		if r == valid {
			return true
		}
	}
	return false
}

type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusBorrowed  BookStatus = "borrowed"
)

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"

	// LoanStatusOverdue is never stored. It selects active loans past their due date.
	LoanStatusOverdue LoanStatus = "overdue"
)

type ReservationStatus string

const (
	ReservationStatusPending ReservationStatus = "pending"
)

type LoginMethod string

const (
	LoginMethodPassword   LoginMethod = "password"
	LoginMethodTOTP       LoginMethod = "2fa"
	LoginMethodBackupCode LoginMethod = "backup_code"
)

type User struct {
	UserID           string    `gorm:"column:user_id;primaryKey;size:20" json:"user_id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	Email            string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string    `gorm:"column:password;size:255;not null" json:"-"`
	Phone            string    `gorm:"size:50" json:"phone"`
	Role             UserRole  `gorm:"index;size:20;not null;default:'student'" json:"role"`
	Course           string    `gorm:"size:255" json:"course"`
	Department       string    `gorm:"size:255" json:"department"`
	RegistrationDate time.Time `json:"registration_date"`

	TwoFactorEnabled       bool     `gorm:"default:false" json:"two_factor_enabled"`
	TwoFactorSecret        string   `gorm:"size:128" json:"-"`
	TwoFactorPendingSecret string   `gorm:"size:128" json:"-"`
	BackupCodes            []string `gorm:"type:text;serializer:json" json:"-"`
	PendingBackupCodes     []string `gorm:"type:text;serializer:json" json:"-"` // Issued with the pending secret

}

func (User) TableName() string {
	return "users"
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

type Book struct {
	BookID          string     `gorm:"column:book_id;primaryKey;size:64" json:"book_id"`
	Title           string     `gorm:"index;size:512;not null" json:"title"`
	Author          string     `gorm:"index;size:256" json:"author"`
	Category        string     `gorm:"index;size:128" json:"category"`
	ISBN            string     `gorm:"column:isbn;index;size:20" json:"isbn"`
	Publisher       string     `gorm:"size:256" json:"publisher"`
	AvailableCopies int        `gorm:"not null" json:"available_copies"`
	Status          BookStatus `gorm:"index;size:20;default:'available'" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

type Loan struct {
	LoanID     string     `gorm:"column:loan_id;primaryKey;size:36" json:"loan_id"`
	UserID     string     `gorm:"index;size:20;not null" json:"user_id"`
	BookID     string     `gorm:"index;size:64;not null" json:"book_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `gorm:"index" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     LoanStatus `gorm:"index;size:20;not null;default:'active'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsReturned reports whether the loan reached its terminal returned state.
func (l *Loan) IsReturned() bool {
	return l.Status == LoanStatusReturned
}

type Reservation struct {
	ReservationID   string            `gorm:"column:reservation_id;primaryKey;size:36" json:"reservation_id"`
	UserID          string            `gorm:"index;size:20;not null" json:"user_id"`
	BookID          string            `gorm:"index;size:64;not null" json:"book_id"`
	ReservationDate time.Time         `json:"reservation_date"`
	ExpiryDate      time.Time         `json:"expiry_date"`
	Status          ReservationStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
}

func (Reservation) TableName() string {
	return "reservations"
}

type Recommendation struct {
	RecommendationID string    `gorm:"column:recommendation_id;primaryKey;size:36" json:"recommendation_id"`
	UserID           string    `gorm:"index;size:20;not null" json:"user_id"`
	BookID           string    `gorm:"index;size:64;not null" json:"book_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Review           string    `gorm:"type:text" json:"review"`
	ReviewDate       time.Time `json:"review_date"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// LoginRecord is one successful sign-in.
type LoginRecord struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Email      string      `gorm:"index;size:255;not null" json:"email"`
	UserID     string      `gorm:"index;size:20" json:"user_id"`
	Method     LoginMethod `gorm:"size:20" json:"method"`
	IPAddress  string      `gorm:"size:45" json:"ip_address,omitempty"`
	SignedInAt time.Time   `json:"signed_in_at"`
}

func (LoginRecord) TableName() string {
	return "login"
}
