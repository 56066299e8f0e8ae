// Package scheduler holds the periodic jobs run by cmd/scheduler.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-documents/internal/config"
	"github.com/segyhp/loan-documents/internal/service"
	"github.com/segyhp/loan-documents/pkg/utils"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

type Jobs struct {
	service        service.LoanService
	clock          utils.Clock
	reminderWindow int
	logger         *logrus.Logger
}

func NewJobs(service service.LoanService, clock utils.Clock, reminderWindow int, logger *logrus.Logger) *Jobs {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Jobs{
		service:        service,
		clock:          clock,
		reminderWindow: reminderWindow,
		logger:         logger,
	}
}

// Register schedules the overdue scan and the reminder job on c.
func (j *Jobs) Register(c *cron.Cron, cfg config.SchedulerConfig) error {
	if _, err := c.AddFunc(cfg.OverdueSpec, j.run("overdue_scan", j.ScanOverdue)); err != nil {
		return fmt.Errorf("schedule overdue scan %q: %w", cfg.OverdueSpec, err)
	}
	if _, err := c.AddFunc(cfg.ReminderSpec, j.run("payment_reminders", j.SendReminders)); err != nil {
		return fmt.Errorf("schedule payment reminders %q: %w", cfg.ReminderSpec, err)
	}

	j.logger.WithFields(logrus.Fields{
		"overdue_spec":  cfg.OverdueSpec,
		"reminder_spec": cfg.ReminderSpec,
		"timezone":      cfg.Timezone,
	}).Info("Cron jobs scheduled successfully")
	return nil
}

func (j *Jobs) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		entry := j.logger.WithField("job", name)
		entry.Info("Running job")

		if err := job(ctx); err != nil {
			entry.WithError(err).Error("Job failed")
			return
		}
		entry.WithField("duration", time.Since(start).String()).Info("Job finished")
	}
}

// ScanOverdue reports, per loan, the unpaid installments whose due date has
// passed. Overdue is derived from the due date, so nothing is written.
func (j *Jobs) ScanOverdue(ctx context.Context) error {
	today := utils.DateOnly(j.clock.Now())

	records, err := j.service.OverdueInstallments(ctx, today)
	if err != nil {
		return err
	}

	type loanTotals struct {
		count  int
		amount decimal.Decimal
		oldest time.Time
	}
	byLoan := make(map[string]*loanTotals)
	var order []string
	for _, rec := range records {
		totals, ok := byLoan[rec.LoanID]
		if !ok {
			totals = &loanTotals{amount: decimal.Zero, oldest: rec.DueDate}
			byLoan[rec.LoanID] = totals
			order = append(order, rec.LoanID)
		}
		totals.count++
		totals.amount = totals.amount.Add(rec.Outstanding())
		if rec.DueDate.Before(totals.oldest) {
			totals.oldest = rec.DueDate
		}
	}

	for _, loanID := range order {
		totals := byLoan[loanID]
		j.logger.WithFields(logrus.Fields{
			"loan_id":       loanID,
			"overdue_count": totals.count,
			"overdue_total": totals.amount.StringFixed(utils.MoneyPlaces),
			"oldest_due":    totals.oldest.Format(time.DateOnly),
			"days_late":     int(today.Sub(utils.DateOnly(totals.oldest)).Hours() / 24),
		}).Warn("Loan has overdue installments")
	}

	j.logger.WithFields(logrus.Fields{
		"installments": len(records),
		"loans":        len(order),
	}).Info("Overdue scan complete")
	return nil
}

// SendReminders logs one reminder per unpaid installment due within the
// reminder window.
func (j *Jobs) SendReminders(ctx context.Context) error {
	records, err := j.service.UpcomingInstallments(ctx, j.clock.Now(), j.reminderWindow)
	if err != nil {
		return err
	}

	for _, rec := range records {
		j.logger.WithFields(logrus.Fields{
			"loan_id":     rec.LoanID,
			"sequence":    rec.Sequence,
			"due_date":    rec.DueDate.Format(time.DateOnly),
			"outstanding": rec.Outstanding().StringFixed(utils.MoneyPlaces),
		}).Info("Payment reminder")
	}

	j.logger.WithField("reminders", len(records)).Info("Payment reminders sent")
	return nil
}
