// Package billing adapts the external billing provider. It is read-mostly:
// the only writes this service issues are seat increments and decrements.
package billing

import (
	"context"

	"github.com/Marga-Ghale/ora-members-backend/internal/models"
)

// SubscriptionSource reads a workspace's billing subscriptions.
type SubscriptionSource interface {
	GetSubscriptions(ctx context.Context, workspaceID string) ([]models.SubscriptionView, error)
}

// SeatSyncer adjusts the seat count on an external subscription handle.
// Calls are synchronous and not transactional with the local store; the
// invitation engine decides per call whether a failure aborts or is logged.
type SeatSyncer interface {
	IncrementSeats(ctx context.Context, subscriptionID string, delta int) error
	DecrementSeats(ctx context.Context, subscriptionID string, delta int) error
}
