package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Marga-Ghale/ora-members-backend/internal/billing"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron          *cron.Cron
	workspaceRepo repository.WorkspaceRepository
	memberRepo    repository.MemberRepository
	subscriptions billing.SubscriptionSource
	seatLimited   bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	workspaceRepo repository.WorkspaceRepository,
	memberRepo repository.MemberRepository,
	subscriptions billing.SubscriptionSource,
	seatLimited bool,
) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		workspaceRepo: workspaceRepo,
		memberRepo:    memberRepo,
		subscriptions: subscriptions,
		seatLimited:   seatLimited,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Run every day at 6 AM - seat drift audit
	s.cron.AddFunc("0 6 * * *", func() {
		log.Println("[Cron] Running seat drift audit...")
		s.auditSeatDrift()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// auditSeatDrift compares each workspace's active membership against the
// billed seat count. Link redemptions grow membership without a billing
// call, so drift is expected; this job only reports, it never adjusts.
func (s *Scheduler) auditSeatDrift() {
	if !s.seatLimited {
		log.Println("[Cron] Seat audit skipped: deployment is not seat limited")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ids, err := s.workspaceRepo.ListIDs(ctx)
	if err != nil {
		log.Printf("[Cron] Error listing workspaces for seat audit: %v", err)
		return
	}

	drifted := 0
	for _, workspaceID := range ids {
		subs, err := s.subscriptions.GetSubscriptions(ctx, workspaceID)
		if err != nil {
			log.Printf("[Cron] Error reading subscriptions for workspace %s: %v", workspaceID, err)
			continue
		}
		seatSub := models.SeatCountedSubscription(subs)
		if seatSub == nil {
			continue
		}

		active, err := s.memberRepo.CountLiveActive(ctx, workspaceID)
		if err != nil {
			log.Printf("[Cron] Error counting members for workspace %s: %v", workspaceID, err)
			continue
		}

		if active != seatSub.SeatCount {
			drifted++
			log.Printf("⚠️ [Cron] Seat drift in workspace %s: %d active members vs %d billed seats (subscription %s)",
				workspaceID, active, seatSub.SeatCount, seatSub.ExternalID)
		}
	}

	log.Printf("✅ [Cron] Seat audit complete: %d workspaces checked, %d drifted", len(ids), drifted)
}
