package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

// Reminder template identifiers understood by the notification collaborator.
const (
	TemplateUpcomingPayment = "UPCOMING_PAYMENT"
	TemplatePaymentDue      = "PAYMENT_DUE"
	TemplateOverdueNotice   = "OVERDUE_NOTICE"
)

// ReminderSchedule configures which day offsets trigger reminders.
type ReminderSchedule struct {
	// UpcomingDays are days-until-due values that trigger an upcoming
	// payment reminder.
	UpcomingDays []int
	// OverdueDays are days-overdue values that trigger an overdue notice.
	// A payment's embedded fee policy can override these.
	OverdueDays []int
	Channels    []string
}

// NotificationService runs the communication pass: due reminders and
// overdue notices, deduplicated per UTC day via the payment's sent-reminder
// records. Delivery is best-effort; failures never touch payment state.
type NotificationService struct {
	statusCalc *domain.StatusCalculator
	mutator    *PaymentMutator
	sender     application.NotificationSender
	batch      *BatchProcessor
	schedule   ReminderSchedule
	logger     *slog.Logger
	now        func() time.Time
}

func NewNotificationService(
	statusCalc *domain.StatusCalculator,
	mutator *PaymentMutator,
	sender application.NotificationSender,
	batch *BatchProcessor,
	schedule ReminderSchedule,
	logger *slog.Logger,
	now func() time.Time,
) *NotificationService {
	if now == nil {
		now = time.Now
	}
	if len(schedule.Channels) == 0 {
		schedule.Channels = []string{"email"}
	}
	return &NotificationService{
		statusCalc: statusCalc,
		mutator:    mutator,
		sender:     sender,
		batch:      batch,
		schedule:   schedule,
		logger:     logger,
		now:        now,
	}
}

// Run executes one communication pass over the eligible payment set.
func (s *NotificationService) Run(ctx context.Context) *application.CommunicationResult {
	res := &application.CommunicationResult{}

	stats := s.batch.Run(ctx, "communication", func(ctx context.Context, store application.PaymentStore, p *domain.Payment) error {
		sent, err := s.ProcessPayment(ctx, store, p)
		if err != nil {
			return err
		}
		if sent {
			res.Sent++
		} else {
			res.Skipped++
		}
		return nil
	})

	res.Processed = stats.Processed
	res.Errors = stats.Errors
	return res
}

// ProcessPayment sends at most one reminder for the payment today.
func (s *NotificationService) ProcessPayment(ctx context.Context, store application.PaymentStore, p *domain.Payment) (bool, error) {
	if p.IsTerminal() || p.DueDate == nil || p.Type == domain.TypeLateFee {
		return false, nil
	}

	d, err := s.statusCalc.Derive(*p.DueDate)
	if err != nil {
		return false, err
	}

	templateID := s.templateFor(p, d)
	if templateID == "" {
		return false, nil
	}

	today := s.now().UTC()
	if p.ReminderSentOn(today, templateID) {
		return false, nil
	}

	result, err := s.sender.Send(ctx, p.ID, templateID, s.schedule.Channels)
	if err != nil {
		return false, application.NewCollaboratorError("notification", err)
	}
	if !result.Success {
		return false, application.NewCollaboratorError("notification", nil)
	}

	var recs []domain.ReminderRecord
	for channel, ok := range result.Channels {
		if !ok {
			continue
		}
		recs = append(recs, domain.ReminderRecord{
			Type:    templateID,
			Channel: channel,
			SentAt:  today,
		})
	}
	if len(recs) == 0 {
		recs = append(recs, domain.ReminderRecord{
			Type:   templateID,
			SentAt: today,
		})
	}

	if err := s.mutator.RecordReminder(ctx, store, p, recs); err != nil {
		return false, err
	}

	s.logger.Info("reminder sent", "payment_id", p.ID, "template", templateID, "channels", s.schedule.Channels)
	return true, nil
}

func (s *NotificationService) templateFor(p *domain.Payment, d domain.Derivation) string {
	switch {
	case d.DaysUntilDue > 0:
		if containsInt(s.schedule.UpcomingDays, d.DaysUntilDue) {
			return TemplateUpcomingPayment
		}
	case d.DaysOverdue == 0:
		return TemplatePaymentDue
	default:
		offsets := s.schedule.OverdueDays
		if p.LateFeeConfig != nil && len(p.LateFeeConfig.NotificationDays) > 0 {
			offsets = p.LateFeeConfig.NotificationDays
		}
		if containsInt(offsets, d.DaysOverdue) {
			return TemplateOverdueNotice
		}
	}
	return ""
}

func containsInt(set []int, v int) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}
