package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/notify"
)

// DefaultDueSoonWindow is how far ahead upcoming returns and reminders look.
const DefaultDueSoonWindow = 72 * time.Hour

// DispatchResult summarises one digest run.
type DispatchResult struct {
	Kind       entities.DigestKind
	Digests    []entities.UserDigest
	TotalBooks int
	Dispatched int
	Failed     int
}

// NotificationService computes due-date notices and hands them to a sender.
type NotificationService struct {
	loans   DueLoanReader
	sender  notify.Sender
	audit   AuditRecorder
	dueSoon time.Duration
	now     func() time.Time
}

// NewNotificationService creates a new NotificationService.
// A dueSoon window of zero uses DefaultDueSoonWindow.
func NewNotificationService(loans DueLoanReader, sender notify.Sender, recorder AuditRecorder, dueSoon time.Duration) *NotificationService {
	if dueSoon <= 0 {
		dueSoon = DefaultDueSoonWindow
	}
	if sender == nil {
		sender = notify.NewLogSender(nil)
	}
	return &NotificationService{
		loans:   loans,
		sender:  sender,
		audit:   recorderOrNoop(recorder),
		dueSoon: dueSoon,
		now:     time.Now,
	}
}

// DueBooks returns unreturned loans due now or earlier, with days overdue.
func (s *NotificationService) DueBooks(ctx context.Context) ([]entities.DueLoan, error) {
	now := s.now()
	rows, err := s.loans.DueBy(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		days := calendarDays(rows[i].DueDate, now)
		rows[i].DaysOverdue = &days
	}
	return rows, nil
}

// UpcomingReturns returns unreturned loans due within the due-soon window.
func (s *NotificationService) UpcomingReturns(ctx context.Context) ([]entities.DueLoan, error) {
	now := s.now()
	rows, err := s.loans.DueBetween(ctx, now, now.Add(s.dueSoon))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		days := calendarDays(now, rows[i].DueDate)
		rows[i].DaysUntilDue = &days
	}
	return rows, nil
}

// OverdueDigests groups loans past their due date by user.
func (s *NotificationService) OverdueDigests(ctx context.Context) ([]entities.UserDigest, int, error) {
	now := s.now()
	rows, err := s.loans.OverdueAt(ctx, now)
	if err != nil {
		return nil, 0, err
	}
	return groupByUser(entities.DigestKindOverdue, rows, func(row entities.DueLoan) entities.DigestBook {
		days := calendarDays(row.DueDate, now)
		return entities.DigestBook{Title: row.BookTitle, Author: row.BookAuthor, DueDate: row.DueDate, DaysOverdue: &days}
	}), len(rows), nil
}

// DueSoonDigests groups loans due within the window by user.
func (s *NotificationService) DueSoonDigests(ctx context.Context) ([]entities.UserDigest, int, error) {
	now := s.now()
	rows, err := s.loans.DueBetween(ctx, now, now.Add(s.dueSoon))
	if err != nil {
		return nil, 0, err
	}
	return groupByUser(entities.DigestKindDueSoon, rows, func(row entities.DueLoan) entities.DigestBook {
		days := calendarDays(now, row.DueDate)
		return entities.DigestBook{Title: row.BookTitle, Author: row.BookAuthor, DueDate: row.DueDate, DaysUntilDue: &days}
	}), len(rows), nil
}

// SendOverdue computes overdue digests and dispatches them.
func (s *NotificationService) SendOverdue(ctx context.Context) (*DispatchResult, error) {
	digests, total, err := s.OverdueDigests(ctx)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, entities.DigestKindOverdue, digests, total), nil
}

// SendReminders computes due-soon digests and dispatches them.
func (s *NotificationService) SendReminders(ctx context.Context) (*DispatchResult, error) {
	digests, total, err := s.DueSoonDigests(ctx)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, entities.DigestKindDueSoon, digests, total), nil
}

// dispatch sends every digest. Delivery failures are logged and counted.
func (s *NotificationService) dispatch(ctx context.Context, kind entities.DigestKind, digests []entities.UserDigest, total int) *DispatchResult {
	result := &DispatchResult{Kind: kind, Digests: digests, TotalBooks: total}
	for _, digest := range digests {
		if err := s.sender.Send(ctx, digest); err != nil {
			log.Printf("Failed to send %s notice to %s: %v", kind, digest.UserID, err)
			result.Failed++
			continue
		}
		result.Dispatched++
	}

	if len(digests) > 0 {
		var err error
		if result.Failed > 0 {
			err = fmt.Errorf("%d of %d notices failed", result.Failed, len(digests))
		}
		s.audit.Record(auditEntry("", entities.AuditEventNotify, "notify_"+string(kind), "", "",
			map[string]any{"users": len(digests), "books": total, "dispatched": result.Dispatched}, err))
	}
	return result
}

// groupByUser folds rows into one digest per user, in order of first appearance.
func groupByUser(kind entities.DigestKind, rows []entities.DueLoan, book func(entities.DueLoan) entities.DigestBook) []entities.UserDigest {
	digests := []entities.UserDigest{}
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			i = len(digests)
			index[row.UserID] = i
			digests = append(digests, entities.UserDigest{
				Kind:      kind,
				UserID:    row.UserID,
				UserName:  row.UserName,
				UserEmail: row.UserEmail,
			})
		}
		digests[i].Books = append(digests[i].Books, book(row))
	}
	return digests
}
