package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"library-backend/internal/logger"
)

type OverdueReminder struct {
	LoanID    int32
	BookTitle string
	DueDate   time.Time
	DaysLate  int
}

func (r OverdueReminder) subject() string {
	return fmt.Sprintf("Overdue: %s", r.BookTitle)
}

func (r OverdueReminder) body(name string) string {
	return fmt.Sprintf("Hello %s,\n\nThe book \"%s\" (loan #%d) was due on %s and is now %d day(s) overdue.\nPlease return it at your earliest convenience.\n\nThe Library",
		name, r.BookTitle, r.LoanID, r.DueDate.Format("2006-01-02"), r.DaysLate)
}

// sendClient is the subset of the SendGrid client we use.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendGridResponse, error)
}

type sendGridResponse struct {
	StatusCode int
	Body       string
}

type sendGridAdapter struct {
	client *sendgrid.Client
}

func (a sendGridAdapter) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendGridResponse, error) {
	resp, err := a.client.SendWithContext(ctx, email)
	if err != nil {
		return nil, err
	}
	return &sendGridResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

type emailService struct {
	client    sendClient
	fromEmail string
	fromName  string
}

// NewEmailService sends through SendGrid. With an empty apiKey messages are
// only logged, which keeps local runs and tests offline.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	if apiKey == "" {
		return logOnlyEmailService{}
	}
	return &emailService{
		client:    sendGridAdapter{client: sendgrid.NewSendClient(apiKey)},
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) SendOverdueReminder(ctx context.Context, email, name string, reminder OverdueReminder) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(name, email)
	message := mail.NewSingleEmail(from, reminder.subject(), to, reminder.body(name), "")

	logger.ExternalServiceCall("sendgrid", "send", "to", email, "loan_id", reminder.LoanID)
	resp, err := s.client.SendWithContext(ctx, message)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", email)
	if err != nil {
		return fmt.Errorf("failed to send overdue reminder: %w", err)
	}
	return nil
}

type logOnlyEmailService struct{}

func (logOnlyEmailService) SendOverdueReminder(ctx context.Context, email, name string, reminder OverdueReminder) error {
	logger.InfoContext(ctx, "Overdue reminder (not sent, no email provider configured)",
		"to", email, "subject", reminder.subject(), "loan_id", reminder.LoanID, "days_late", reminder.DaysLate)
	return nil
}
