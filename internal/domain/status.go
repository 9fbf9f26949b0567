package domain

import (
	"time"
)

// StatusThresholds configures the calendar boundaries of the status
// hierarchy. All values are whole days.
type StatusThresholds struct {
	GracePeriodDays              int
	LateFeeThresholdDays         int
	SeverelyOverdueThresholdDays int
	DueSoonThresholdDays         int
	UpcomingThresholdDays        int
}

// Validate rejects threshold configurations under which status derivation
// would be ambiguous or have unreachable bands.
func (t StatusThresholds) Validate() error {
	if t.GracePeriodDays < 0 || t.DueSoonThresholdDays < 0 || t.UpcomingThresholdDays < 0 {
		return NewInvalidThresholdsError("thresholds must be non-negative")
	}
	if t.UpcomingThresholdDays < t.DueSoonThresholdDays {
		return NewInvalidThresholdsError("upcoming threshold must be >= due-soon threshold")
	}
	if t.SeverelyOverdueThresholdDays <= t.GracePeriodDays {
		return NewInvalidThresholdsError("severely-overdue threshold must exceed grace period")
	}
	if t.LateFeeThresholdDays < 0 {
		return NewInvalidThresholdsError("late-fee threshold must be non-negative")
	}
	return nil
}

// Derivation is the result of deriving a payment's calendar status.
// DaysOverdue and DaysUntilDue are never simultaneously positive; both are
// zero on the due date itself.
type Derivation struct {
	Status       PaymentStatus
	DaysOverdue  int
	DaysUntilDue int
}

// StatusCalculator derives a payment's status from pure calendar
// arithmetic. It performs no I/O; the clock is injectable for tests.
type StatusCalculator struct {
	thresholds StatusThresholds
	now        func() time.Time
}

func NewStatusCalculator(thresholds StatusThresholds, now func() time.Time) (*StatusCalculator, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &StatusCalculator{thresholds: thresholds, now: now}, nil
}

func (c *StatusCalculator) Thresholds() StatusThresholds {
	return c.thresholds
}

// Derive computes the status relative to the calculator's clock.
func (c *StatusCalculator) Derive(dueDate time.Time) (Derivation, error) {
	return c.DeriveAt(dueDate, c.now())
}

// DeriveAt computes the status relative to an explicit reference time. All
// day arithmetic is done in UTC calendar days so results do not drift with
// the time of day or the server timezone.
//
// Selection is by ordered precedence; the first matching band wins. The
// band between the due-soon and upcoming thresholds maps to PENDING
// (scheduled, nothing notable yet). With validated thresholds every
// (dueDate, now) pair lands in exactly one band; an unresolved derivation
// is reported as an error rather than silently normalized.
func (c *StatusCalculator) DeriveAt(dueDate, now time.Time) (Derivation, error) {
	diff := calendarDaysBetween(now, dueDate)

	d := Derivation{}
	if diff > 0 {
		d.DaysUntilDue = diff
	} else if diff < 0 {
		d.DaysOverdue = -diff
	}

	t := c.thresholds
	switch {
	case d.DaysUntilDue > t.UpcomingThresholdDays:
		d.Status = StatusUpcoming
	case d.DaysUntilDue > t.DueSoonThresholdDays:
		d.Status = StatusPending
	case d.DaysUntilDue > 0:
		d.Status = StatusDueSoon
	case d.DaysUntilDue == 0 && d.DaysOverdue == 0:
		d.Status = StatusDueToday
	case d.DaysOverdue <= t.GracePeriodDays:
		d.Status = StatusGracePeriod
	case d.DaysOverdue < t.SeverelyOverdueThresholdDays:
		d.Status = StatusLate
	case d.DaysOverdue >= t.SeverelyOverdueThresholdDays:
		d.Status = StatusSeverelyOverdue
	default:
		return Derivation{}, NewUnresolvedStatusError(d.DaysUntilDue, d.DaysOverdue)
	}

	return d, nil
}

// calendarDaysBetween returns the signed number of UTC calendar days from
// `from` to `to`, ignoring time of day.
func calendarDaysBetween(from, to time.Time) int {
	fy, fm, fd := from.UTC().Date()
	ty, tm, td := to.UTC().Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
