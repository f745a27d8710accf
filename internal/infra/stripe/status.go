package stripe

import "strings"

// NormalizeStatus collapses Stripe subscription statuses into the buckets the
// reconciliation engine cares about.
func NormalizeStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "":
		return "none"
	case "active":
		return "active"
	case "trialing":
		return "trialing"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return strings.TrimSpace(s)
	}
}

// IsEntitling reports whether a subscription status keeps the entitlement
// active.
func IsEntitling(s string) bool {
	switch NormalizeStatus(s) {
	case "active", "trialing":
		return true
	}
	return false
}

// IsTerminal reports whether a subscription status means the subscription is
// gone and the entitlement should be deactivated.
func IsTerminal(s string) bool {
	return NormalizeStatus(s) == "canceled"
}
