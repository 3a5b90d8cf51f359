package entities

import "time"

// LoanView is a loan joined with the borrowing user and the borrowed book.
// Joined columns are empty when the referenced row no longer exists.
type LoanView struct {
	LoanID        string     `json:"loan_id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	UserRole      string     `json:"user_role,omitempty"`
	BookID        string     `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	BookAuthor    string     `json:"book_author"`
	BookISBN      string     `gorm:"column:book_isbn" json:"book_isbn,omitempty"`
	BookCategory  string     `json:"book_category,omitempty"`
	BookPublisher string     `json:"book_publisher,omitempty"`
	LoanDate      time.Time  `json:"loan_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date"`
	Status        LoanStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// UserLoanCount is a user with the number of loans matching a filter.
type UserLoanCount struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	LoanCount int64  `json:"loan_count"`
}

// DueLoan is an unreturned loan together with its day distance from today.
type DueLoan struct {
	LoanID       string    `json:"loan_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
	BookID       string    `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	BookAuthor   string    `json:"book_author"`
	LoanDate     time.Time `json:"loan_date"`
	DueDate      time.Time `json:"due_date"`
	DaysOverdue  *int      `gorm:"-" json:"days_overdue,omitempty"`
	DaysUntilDue *int      `gorm:"-" json:"days_until_due,omitempty"`
}
