package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarydesk/librarydesk/internal/auth"
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
)

// LoansController serves the loan lifecycle endpoints.
type LoansController struct {
	loans *services.LoanService
}

func NewLoansController(loans *services.LoanService) *LoansController {
	return &LoansController{loans: loans}
}

type loanRequest struct {
	LoanID  string `json:"loan_id"`
	UserID  string `json:"user_id"`
	BookID  string `json:"book_id"`
	DueDate string `json:"due_date"`
}

type loanListResponse struct {
	loanResponse
	Count int                 `json:"count"`
	Loans []entities.LoanView `json:"loans"`
}

func nonNilLoans(loans []entities.LoanView) []entities.LoanView {
	if loans == nil {
		return []entities.LoanView{}
	}
	return loans
}

// AllLoans returns every loan, newest first.
// GET /loans/all
func (lc *LoansController) AllLoans(c *gin.Context) {
	loans, err := lc.loans.List(c.Request.Context())
	if err != nil {
		respondLoanInternalError(c, err, "Failed to fetch loans")
		return
	}
	c.JSON(http.StatusOK, nonNilLoans(loans))
}

// CompleteLoans returns every loan with user role and book details.
// GET /loans/complete
func (lc *LoansController) CompleteLoans(c *gin.Context) {
	loans, err := lc.loans.ListComplete(c.Request.Context())
	if err != nil {
		respondLoanInternalError(c, err, "Failed to fetch complete loans")
		return
	}
	c.JSON(http.StatusOK, nonNilLoans(loans))
}

// GetLoan returns one loan.
// GET /loans/:loan_id
func (lc *LoansController) GetLoan(c *gin.Context) {
	loan, err := lc.loans.Get(c.Request.Context(), c.Param("loan_id"))
	if err != nil {
		if errors.Is(err, services.ErrLoanNotFound) {
			respondLoanError(c, http.StatusNotFound, "Loan not found")
			return
		}
		respondLoanInternalError(c, err, "Failed to fetch loan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "loan": loan})
}

// LoansByStatus filters loans by active, returned or overdue.
// GET /loans/status/filter?status=
func (lc *LoansController) LoansByStatus(c *gin.Context) {
	status := c.Query("status")
	loans, err := lc.loans.ListByStatus(c.Request.Context(), status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondLoanError(c, http.StatusBadRequest, "Status parameter is required")
		case errors.Is(err, services.ErrInvalidStatus):
			respondLoanError(c, http.StatusBadRequest, "Invalid status. Must be: active, returned, or overdue")
		default:
			respondLoanInternalError(c, err, "Failed to fetch loans by status")
		}
		return
	}
	c.JSON(http.StatusOK, loanListResponse{
		loanResponse: loanResponse{Success: true, Message: fmt.Sprintf("Found %d %s loans", len(loans), status)},
		Count:        len(loans),
		Loans:        nonNilLoans(loans),
	})
}

// OverdueLoans returns active loans past their due date.
// GET /loans/overdue/all
func (lc *LoansController) OverdueLoans(c *gin.Context) {
	loans, err := lc.loans.ListOverdue(c.Request.Context())
	if err != nil {
		respondLoanInternalError(c, err, "Failed to fetch overdue loans")
		return
	}
	c.JSON(http.StatusOK, loanListResponse{
		loanResponse: loanResponse{Success: true, Message: fmt.Sprintf("Found %d overdue loans", len(loans))},
		Count:        len(loans),
		Loans:        nonNilLoans(loans),
	})
}

// CreateLoan lends a book.
// POST /loans/create
func (lc *LoansController) CreateLoan(c *gin.Context) {
	var req loanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	loan, err := lc.loans.Create(c.Request.Context(), services.CreateLoanInput{
		ActorID: auth.GetUserID(c),
		UserID:  req.UserID,
		BookID:  req.BookID,
		DueDate: req.DueDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondLoanError(c, http.StatusBadRequest, "user_id, book_id, and due_date are required")
		case errors.Is(err, services.ErrInvalidDate):
			respondLoanError(c, http.StatusBadRequest, "Invalid due date format. Use YYYY-MM-DD")
		case errors.Is(err, services.ErrUserNotFound):
			respondLoanError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrBookNotFound):
			respondLoanError(c, http.StatusNotFound, "Book not found")
		case errors.Is(err, services.ErrBookUnavailable):
			respondLoanError(c, http.StatusBadRequest, "Book is not available for loan")
		default:
			respondLoanInternalError(c, err, "Failed to create loan")
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Loan created successfully",
		"loan":    loan,
	})
}

// ReturnLoan closes an active loan.
// PUT /loans/return
func (lc *LoansController) ReturnLoan(c *gin.Context) {
	var req loanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if _, err := lc.loans.Return(c.Request.Context(), auth.GetUserID(c), req.LoanID); err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondLoanError(c, http.StatusBadRequest, "loan_id is required")
		case errors.Is(err, services.ErrLoanNotFound):
			respondLoanError(c, http.StatusNotFound, "Loan not found")
		case errors.Is(err, services.ErrAlreadyReturned):
			respondLoanError(c, http.StatusBadRequest, "Loan is already returned")
		default:
			respondLoanInternalError(c, err, "Failed to return loan")
		}
		return
	}
	c.JSON(http.StatusOK, loanResponse{Success: true, Message: "Book returned successfully"})
}

// UpdateDueDate moves a loan's due date.
// PUT /loans/update-due-date
func (lc *LoansController) UpdateDueDate(c *gin.Context) {
	var req loanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	loan, err := lc.loans.UpdateDueDate(c.Request.Context(), auth.GetUserID(c), req.LoanID, req.DueDate)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondLoanError(c, http.StatusBadRequest, "loan_id and due_date are required")
		case errors.Is(err, services.ErrInvalidDate):
			respondLoanError(c, http.StatusBadRequest, "Invalid due date format. Use YYYY-MM-DD")
		case errors.Is(err, services.ErrLoanNotFound):
			respondLoanError(c, http.StatusNotFound, "Loan not found")
		default:
			respondLoanInternalError(c, err, "Failed to update due date")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Due date updated successfully",
		"loan":    loan,
	})
}

// DeleteLoan removes a loan, giving the book back if it was still out.
// DELETE /loans/delete
func (lc *LoansController) DeleteLoan(c *gin.Context) {
	var req loanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if _, err := lc.loans.Delete(c.Request.Context(), auth.GetUserID(c), req.LoanID); err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			respondLoanError(c, http.StatusBadRequest, "loan_id is required")
		case errors.Is(err, services.ErrLoanNotFound):
			respondLoanError(c, http.StatusNotFound, "Loan not found")
		default:
			respondLoanInternalError(c, err, "Failed to delete loan")
		}
		return
	}
	c.JSON(http.StatusOK, loanResponse{Success: true, Message: "Loan deleted successfully"})
}

// UserLoans returns a user's loans with book title, author and ISBN.
// GET /user/:user_id/loans
func (lc *LoansController) UserLoans(c *gin.Context) {
	loans, err := lc.loans.ListForUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			respondBadRequest(c, "User ID is required")
			return
		}
		respondInternalError(c, err, "user loans", "Unable to fetch loans")
		return
	}
	c.JSON(http.StatusOK, nonNilLoans(loans))
}

func respondLoanInternalError(c *gin.Context, err error, message string) {
	log.Printf("Internal error (loans): %v", err)
	respondLoanError(c, http.StatusInternalServerError, message)
}
