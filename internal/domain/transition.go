package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransitionRule is a single entry in the transition table. The first entry
// whose From set contains the current status, whose To matches the target
// and whose Condition (if any) holds is the one applied.
type TransitionRule struct {
	From       []PaymentStatus
	To         PaymentStatus
	Condition  func(p *Payment) bool
	SideEffect func(p *Payment, now time.Time)
}

// TransitionRuleTable validates and applies status transitions. The table
// is a fixed ordered list; it is configuration and must not be mutated
// while a run is in flight.
type TransitionRuleTable struct {
	rules []TransitionRule
	now   func() time.Time
}

func NewTransitionRuleTable(rules []TransitionRule, now func() time.Time) *TransitionRuleTable {
	if now == nil {
		now = time.Now
	}
	return &TransitionRuleTable{rules: rules, now: now}
}

// ApplyResult reports what a transition did.
type ApplyResult struct {
	Changed        bool
	SideEffectsRun int
}

func (t *TransitionRuleTable) find(from, to PaymentStatus, p *Payment) *TransitionRule {
	for i := range t.rules {
		r := &t.rules[i]
		if r.To != to {
			continue
		}
		if !containsStatus(r.From, from) {
			continue
		}
		if r.Condition != nil && !r.Condition(p) {
			continue
		}
		return r
	}
	return nil
}

// IsValid reports whether a transition from -> to is allowed for the given
// payment snapshot.
func (t *TransitionRuleTable) IsValid(from, to PaymentStatus, p *Payment) bool {
	return t.find(from, to, p) != nil
}

// Apply executes a transition. Requesting the current status is a no-op; an
// unmatched transition is rejected with an error rather than silently
// ignored. The entry's side effect runs before the status is written.
func (t *TransitionRuleTable) Apply(p *Payment, to PaymentStatus) (ApplyResult, error) {
	if p.Status == to {
		return ApplyResult{}, nil
	}

	rule := t.find(p.Status, to, p)
	if rule == nil {
		return ApplyResult{}, NewInvalidTransitionError(p.Status, to)
	}

	res := ApplyResult{Changed: true}
	if rule.SideEffect != nil {
		rule.SideEffect(p, t.now())
		res.SideEffectsRun = 1
	}
	p.Status = to
	return res, nil
}

func containsStatus(set []PaymentStatus, s PaymentStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// activeStatuses are the non-terminal states the daily passes move
// payments between. The legacy OVERDUE status is included on the from-side
// so old rows get normalized.
var activeStatuses = []PaymentStatus{
	StatusPending, StatusUpcoming, StatusDueSoon, StatusDueToday,
	StatusGracePeriod, StatusLate, StatusSeverelyOverdue, StatusOverdue,
	StatusPartial, StatusProcessing, StatusFailed,
}

// DefaultTransitionTable builds the standard rule set.
//
// Calendar-derived statuses are reachable from any active status. Terminal
// states have no outbound entries except the explicit refund paths, which
// prevents accidental backward transitions such as PAID -> LATE.
func DefaultTransitionTable(now func() time.Time) *TransitionRuleTable {
	fullyPaid := func(p *Payment) bool {
		return p.AmountPaid.GreaterThanOrEqual(p.Amount)
	}
	partiallyPaid := func(p *Payment) bool {
		return p.AmountPaid.GreaterThan(decimal.Zero) && p.AmountPaid.LessThan(p.Amount)
	}
	setPaidDate := func(p *Payment, at time.Time) {
		paid := at.UTC()
		p.PaidDate = &paid
	}

	rules := []TransitionRule{
		// Settlement. Checked before the calendar rules so a fully paid
		// payment cannot fall back into an overdue band.
		{From: activeStatuses, To: StatusPaid, Condition: fullyPaid, SideEffect: setPaidDate},
		{From: []PaymentStatus{StatusProcessing}, To: StatusCompleted, Condition: fullyPaid, SideEffect: setPaidDate},
		{From: activeStatuses, To: StatusPartial, Condition: partiallyPaid},

		// Calendar-derived statuses.
		{From: activeStatuses, To: StatusUpcoming},
		{From: activeStatuses, To: StatusPending},
		{From: activeStatuses, To: StatusDueSoon},
		{From: activeStatuses, To: StatusDueToday},
		{From: activeStatuses, To: StatusGracePeriod},
		{From: activeStatuses, To: StatusLate},
		{From: activeStatuses, To: StatusSeverelyOverdue},

		// Payment processing lifecycle.
		{From: []PaymentStatus{StatusPending, StatusUpcoming, StatusDueSoon, StatusDueToday, StatusGracePeriod, StatusLate, StatusSeverelyOverdue, StatusOverdue, StatusPartial, StatusFailed}, To: StatusProcessing},
		{From: []PaymentStatus{StatusProcessing}, To: StatusFailed},

		// Manual terminal transitions.
		{From: activeStatuses, To: StatusCancelled},

		// Narrow outbound paths from terminal states.
		{From: []PaymentStatus{StatusPaid, StatusCompleted}, To: StatusRefunded},
	}

	return NewTransitionRuleTable(rules, now)
}
