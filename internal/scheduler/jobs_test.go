package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-documents/internal/config"
	"github.com/segyhp/loan-documents/internal/domain"
	"github.com/segyhp/loan-documents/internal/mocks"
	"github.com/segyhp/loan-documents/pkg/utils"
)

var now = time.Date(2024, 3, 12, 0, 0, 5, 0, time.UTC)

func installment(loanID string, seq int, due time.Time, amount, paid int64) *domain.InstallmentRecord {
	return &domain.InstallmentRecord{
		LoanID:     loanID,
		Sequence:   seq,
		DueDate:    due,
		Amount:     decimal.NewFromInt(amount),
		PaidAmount: decimal.NewFromInt(paid),
		Status:     domain.StatusPending,
	}
}

func entriesWithMessage(hook *test.Hook, message string) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == message {
			out = append(out, e)
		}
	}
	return out
}

func TestScanOverdue(t *testing.T) {
	svc := mocks.NewMockLoanService()
	logger, hook := test.NewNullLogger()
	jobs := NewJobs(svc, utils.FixedClock(now), 3, logger)

	today := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	svc.On("OverdueInstallments", mock.Anything, today).Return([]*domain.InstallmentRecord{
		installment("LOAN-A", 1, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 1000, 0),
		installment("LOAN-A", 2, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1000, 400),
		installment("LOAN-B", 5, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 250, 0),
	}, nil)

	require.NoError(t, jobs.ScanOverdue(context.Background()))

	warnings := entriesWithMessage(hook, "Loan has overdue installments")
	require.Len(t, warnings, 2)
	assert.Equal(t, "LOAN-A", warnings[0].Data["loan_id"])
	assert.Equal(t, 2, warnings[0].Data["overdue_count"])
	assert.Equal(t, "1600.00", warnings[0].Data["overdue_total"])
	assert.Equal(t, "2024-02-10", warnings[0].Data["oldest_due"])
	assert.Equal(t, 31, warnings[0].Data["days_late"])
	assert.Equal(t, "LOAN-B", warnings[1].Data["loan_id"])

	summary := entriesWithMessage(hook, "Overdue scan complete")
	require.Len(t, summary, 1)
	assert.Equal(t, 3, summary[0].Data["installments"])
	assert.Equal(t, 2, summary[0].Data["loans"])
	svc.AssertExpectations(t)
}

func TestSendReminders(t *testing.T) {
	svc := mocks.NewMockLoanService()
	logger, hook := test.NewNullLogger()
	jobs := NewJobs(svc, utils.FixedClock(now), 3, logger)

	svc.On("UpcomingInstallments", mock.Anything, now, 3).Return([]*domain.InstallmentRecord{
		installment("LOAN-A", 3, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), 1000, 250),
	}, nil)

	require.NoError(t, jobs.SendReminders(context.Background()))

	reminders := entriesWithMessage(hook, "Payment reminder")
	require.Len(t, reminders, 1)
	assert.Equal(t, "750.00", reminders[0].Data["outstanding"])
	assert.Equal(t, "2024-03-14", reminders[0].Data["due_date"])
	svc.AssertExpectations(t)
}

func TestRun_LogsFailure(t *testing.T) {
	svc := mocks.NewMockLoanService()
	logger, hook := test.NewNullLogger()
	jobs := NewJobs(svc, utils.FixedClock(now), 3, logger)

	svc.On("UpcomingInstallments", mock.Anything, now, 3).Return(nil, errors.New("database unavailable"))

	jobs.run("payment_reminders", jobs.SendReminders)()

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Job failed", last.Message)
	assert.Equal(t, "payment_reminders", last.Data["job"])
}

func TestRegister(t *testing.T) {
	jobs := NewJobs(mocks.NewMockLoanService(), utils.FixedClock(now), 3, nil)

	c := cron.New(cron.WithSeconds())
	err := jobs.Register(c, config.SchedulerConfig{
		OverdueSpec:  "0 0 0 * * *",
		ReminderSpec: "0 0 9 * * *",
		Timezone:     "UTC",
	})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)

	err = jobs.Register(cron.New(cron.WithSeconds()), config.SchedulerConfig{OverdueSpec: "every day", ReminderSpec: "0 0 9 * * *"})
	assert.Error(t, err)
}
