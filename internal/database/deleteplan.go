package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/librarydesk/librarydesk/internal/entities"
)

// DeleteStep removes rows that depend on the entity being deleted.
// It runs inside the plan's transaction and reports how many rows it touched.
type DeleteStep struct {
	Name string
	Run  func(tx *gorm.DB) (int64, error)
}

// DeletePlan is an ordered list of dependent cleanups followed by the removal of the root row.
// The database enforces no cascades, so every dependent table is listed explicitly.
type DeletePlan struct {
	Steps []DeleteStep
	Root  DeleteStep
}

// DeleteResult holds affected row counts keyed by step name.
type DeleteResult map[string]int64

// Execute runs every step and the root deletion in one transaction.
// Any error rolls the whole plan back.
func (p DeletePlan) Execute(ctx context.Context, db *gorm.DB) (DeleteResult, error) {
	result := DeleteResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range p.Steps {
			n, err := step.Run(tx)
			if err != nil {
				return fmt.Errorf("delete step %s: %w", step.Name, err)
			}
			result[step.Name] = n
		}
		n, err := p.Root.Run(tx)
		if err != nil {
			return fmt.Errorf("delete %s: %w", p.Root.Name, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		result[p.Root.Name] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

const (
	StepRestoreBooks    = "books_restored"
	StepRecommendations = "recommendations"
	StepReservations    = "reservations"
	StepLoans           = "loans"
	StepLogins          = "login"
	StepUser            = "user"
)

// UserDeletePlan removes a user and everything that references it.
// Books held by the user's active loans are made available again first.
func UserDeletePlan(userID, email string) DeletePlan {
	return DeletePlan{
		Steps: []DeleteStep{
			{Name: StepRestoreBooks, Run: func(tx *gorm.DB) (int64, error) {
				active := tx.Model(&entities.Loan{}).
					Select("book_id").
					Where("user_id = ? AND status = ?", userID, entities.LoanStatusActive)
				res := tx.Model(&entities.Book{}).
					Where("book_id IN (?)", active).
					Update("status", entities.BookStatusAvailable)
				return res.RowsAffected, res.Error
			}},
			{Name: StepRecommendations, Run: func(tx *gorm.DB) (int64, error) {
				res := tx.Where("user_id = ?", userID).Delete(&entities.Recommendation{})
				return res.RowsAffected, res.Error
			}},
			{Name: StepReservations, Run: func(tx *gorm.DB) (int64, error) {
				res := tx.Where("user_id = ?", userID).Delete(&entities.Reservation{})
				return res.RowsAffected, res.Error
			}},
			{Name: StepLoans, Run: func(tx *gorm.DB) (int64, error) {
				res := tx.Where("user_id = ?", userID).Delete(&entities.Loan{})
				return res.RowsAffected, res.Error
			}},
			{Name: StepLogins, Run: func(tx *gorm.DB) (int64, error) {
				res := tx.Where("email = ? OR user_id = ?", email, userID).Delete(&entities.LoginRecord{})
				return res.RowsAffected, res.Error
			}},
		},
		Root: DeleteStep{Name: StepUser, Run: func(tx *gorm.DB) (int64, error) {
			res := tx.Where("user_id = ?", userID).Delete(&entities.User{})
			return res.RowsAffected, res.Error
		}},
	}
}
