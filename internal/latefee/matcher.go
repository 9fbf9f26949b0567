package latefee

// Match returns the first enabled rule that applies to the chargeable, or
// nil when no rule survives. Strict first-match priority: no scoring, no
// merging of rules.
//
// A rule is skipped when it is disabled, when its applicable types exclude
// the payment's type, when its amount conditions are violated, or while the
// payment is still inside the rule's grace period.
func Match(ch Chargeable, rules []Rule, daysOverdue int) *Rule {
	for i := range rules {
		r := &rules[i]
		if !r.Enabled {
			continue
		}
		if !r.appliesToType(ch.TypeKey()) {
			continue
		}
		if !r.amountWithinConditions(ch.BaseAmount()) {
			continue
		}
		if daysOverdue <= r.GracePeriodDays {
			continue
		}
		return r
	}
	return nil
}
