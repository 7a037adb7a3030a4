package jobs

import (
	"context"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/service"
)

const reminderBatchSize = 200

type reminderStats struct {
	Sent    int
	Skipped int
	Failed  int
}

// sendOverdueReminders emails the borrower of every overdue loan. A failed
// delivery is logged and does not stop the batch.
func (jr *JobRunner) sendOverdueReminders(ctx context.Context) (reminderStats, error) {
	var stats reminderStats
	now := jr.clock.Now()
	users := map[int32]*domain.User{}
	books := map[int32]*domain.Book{}

	for offset := int32(0); ; offset += reminderBatchSize {
		loans, total, err := jr.services.Loans.ListOverdueLoans(ctx, domain.Page{Offset: offset, Limit: reminderBatchSize})
		if err != nil {
			return stats, err
		}
		for _, loan := range loans {
			user, ok := users[loan.UserID]
			if !ok {
				if user, err = jr.store.Users().GetByID(ctx, loan.UserID); err != nil {
					logger.Warn("Skipping reminder, borrower lookup failed", "loan_id", loan.ID, "error", err)
					stats.Skipped++
					continue
				}
				users[loan.UserID] = user
			}
			if !user.IsActive {
				stats.Skipped++
				continue
			}
			book, ok := books[loan.BookID]
			if !ok {
				if book, err = jr.store.Books().GetByID(ctx, loan.BookID); err != nil {
					logger.Warn("Skipping reminder, book lookup failed", "loan_id", loan.ID, "error", err)
					stats.Skipped++
					continue
				}
				books[loan.BookID] = book
			}

			reminder := service.OverdueReminder{
				LoanID:    loan.ID,
				BookTitle: book.Title,
				DueDate:   loan.DueDate,
				DaysLate:  int(now.Sub(loan.DueDate) / (24 * time.Hour)),
			}
			if err := jr.services.Email.SendOverdueReminder(ctx, user.Email, user.FullName, reminder); err != nil {
				logger.Error("Failed to send overdue reminder", "loan_id", loan.ID, "user_id", user.ID, "error", err)
				stats.Failed++
				continue
			}
			stats.Sent++
		}
		if len(loans) == 0 || offset+int32(len(loans)) >= total {
			break
		}
	}

	logger.Info("Overdue reminders processed", "sent", stats.Sent, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}
