package models

import "github.com/shopspring/decimal"

// PlanTier is the billing plan attached to a subscription.
type PlanTier string

const (
	PlanTierFree PlanTier = "free"
	PlanTierPro  PlanTier = "pro"
	PlanTierTeam PlanTier = "team"
)

// SubscriptionView is the read model this service keeps of a workspace's
// billing subscriptions. It is owned by the external billing provider; we
// only classify it.
type SubscriptionView struct {
	ID             string          `json:"id"`
	PlanTier       PlanTier        `json:"planTier"`
	Status         string          `json:"status"`
	UnlimitedSeats bool            `json:"unlimitedSeats"`
	SeatCount      int             `json:"seatCount"`
	SeatUnitPrice  decimal.Decimal `json:"seatUnitPrice"`
	// ExternalID is the billing provider's subscription handle, used for
	// seat adjustment calls. Empty for grandfathered plans.
	ExternalID string `json:"externalId"`
}

// Active reports whether the subscription currently grants plan features.
func (s SubscriptionView) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// SeatCounted reports whether this subscription consumes billed seats.
func (s SubscriptionView) SeatCounted() bool {
	return s.Active() && s.PlanTier == PlanTierTeam && !s.UnlimitedSeats
}

// HasPaidPlan reports whether any subscription in the set grants a paid tier.
func HasPaidPlan(subs []SubscriptionView) bool {
	for _, s := range subs {
		if s.Active() && (s.PlanTier == PlanTierTeam || s.PlanTier == PlanTierPro) {
			return true
		}
	}
	return false
}

// SeatCountedSubscription returns the subscription whose seats must be kept
// in sync, or nil when the workspace is exempt from seat counting.
func SeatCountedSubscription(subs []SubscriptionView) *SubscriptionView {
	for i := range subs {
		if subs[i].SeatCounted() {
			return &subs[i]
		}
	}
	return nil
}
