package entities

import "time"

type DigestKind string

const (
	DigestKindOverdue DigestKind = "overdue"
	DigestKindDueSoon DigestKind = "due_soon"
)

// DigestBook is one line of a per-user digest.
type DigestBook struct {
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	DueDate      time.Time `json:"due_date"`
	DaysOverdue  *int      `json:"days_overdue,omitempty"`
	DaysUntilDue *int      `json:"days_until_due,omitempty"`
}

// UserDigest groups the loans of a single user that need a notice.
type UserDigest struct {
	Kind      DigestKind   `json:"-"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	UserEmail string       `json:"user_email"`
	Books     []DigestBook `json:"books"`
}
