package domain

import (
	"math"

	subscriptiondomain "github.com/wellkit/vitals/internal/subscription/domain"
)

// ConsumptionMetrics is the derived plan-consumption state shown on the
// admin dashboard.
type ConsumptionMetrics struct {
	ScanLimit          *int64   `json:"scan_limit"`
	ScansUsed          int64    `json:"scans_used"`
	SubscriptionActive bool     `json:"subscription_active"`
	UsagePercentage    *float64 `json:"usage_percentage,omitempty"`

	CurrentMonthScans   *int64 `json:"current_month_scans,omitempty"`
	CurrentMonthPrompts *int64 `json:"current_month_prompts,omitempty"`
	CurrentMonthTokens  *int64 `json:"current_month_tokens,omitempty"`
	LimitReached        *bool  `json:"limit_reached,omitempty"`
}

// ComputeConsumptionMetrics derives consumption state from a subscription
// and the current month's usage row. Either argument may be nil; the
// result is always well formed. UsagePercentage is only present when the
// plan carries a positive scan limit, which guards both division by zero
// and unlimited plans.
func ComputeConsumptionMetrics(sub *subscriptiondomain.OrganizationSubscription, current *OrganizationUsageSummary) ConsumptionMetrics {
	metrics := ConsumptionMetrics{}
	if sub != nil {
		metrics.ScanLimit = sub.ScanLimitPerUserPerMonth
		metrics.ScansUsed = sub.UsedScansTotal
		metrics.SubscriptionActive = sub.Active

		if sub.ScanLimitPerUserPerMonth != nil && *sub.ScanLimitPerUserPerMonth > 0 {
			pct := Round2(float64(sub.UsedScansTotal) / float64(*sub.ScanLimitPerUserPerMonth) * 100)
			metrics.UsagePercentage = &pct
		}
	}

	if current != nil {
		scans := current.TotalScans
		prompts := current.TotalAIPrompts
		tokens := current.TotalAITokensUsed
		reached := current.ScanLimitReached
		metrics.CurrentMonthScans = &scans
		metrics.CurrentMonthPrompts = &prompts
		metrics.CurrentMonthTokens = &tokens
		metrics.LimitReached = &reached
	}

	return metrics
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
