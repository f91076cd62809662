package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coursepass/internal/caching"
	"coursepass/internal/chain"
	"coursepass/internal/models"
	"coursepass/internal/repositories"
)

const (
	// BillingCycle is the platform subscription period.
	BillingCycle = 30 * 24 * time.Hour
	// RenewalWindow is how long before expiry the renewal-due warning starts.
	RenewalWindow = 5 * 24 * time.Hour
)

// SubscriptionService tracks a group's 30-day platform billing cycle.
type SubscriptionService interface {
	Renew(ctx context.Context, groupID, requester uuid.UUID, paymentTxHash *string) (*models.SubscriptionStatus, error)
	ComputeStatus(group *models.Group) *models.SubscriptionStatus
}

type subscriptionService struct {
	groupRepo     repositories.GroupRepository
	chainClient   chain.Client
	cacheSvc      caching.CacheService
	clock         Clock
	platformPrice decimal.Decimal
}

func NewSubscriptionService(
	groupRepo repositories.GroupRepository,
	chainClient chain.Client,
	cacheSvc caching.CacheService,
	clock Clock,
	platformPrice decimal.Decimal,
) SubscriptionService {
	return &subscriptionService{
		groupRepo:     groupRepo,
		chainClient:   chainClient,
		cacheSvc:      cacheSvc,
		clock:         clock,
		platformPrice: platformPrice,
	}
}

// Renew extends the group's billing cycle by 30 days from max(endsOn, now).
// When the platform charges a subscription fee, the payment transfer must be
// confirmed on-chain first; an unconfirmed or failed transfer never mutates
// the ledger.
func (s *subscriptionService) Renew(ctx context.Context, groupID, requester uuid.UUID, paymentTxHash *string) (*models.SubscriptionStatus, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != requester {
		return nil, models.ErrNotOwner
	}

	if s.platformPrice.IsPositive() {
		if paymentTxHash == nil || *paymentTxHash == "" {
			return nil, models.ErrPaymentRequired
		}
		receipt, err := s.chainClient.WaitForReceipt(ctx, *paymentTxHash)
		if err != nil {
			return nil, err
		}
		if receipt.Status != chain.ReceiptConfirmed {
			return nil, models.ErrPaymentNotConfirmed
		}
	}

	now := s.clock.Now()
	nowMillis := models.EpochMillis(now)

	baseline := nowMillis
	if group.EndsOn != nil && *group.EndsOn > baseline {
		baseline = *group.EndsOn
	}
	endsOn := baseline + BillingCycle.Milliseconds()

	if err := s.groupRepo.UpdateSubscription(ctx, groupID, endsOn, nowMillis, paymentTxHash); err != nil {
		return nil, err
	}
	// stale view, next TTL expiry picks it up
	_ = s.cacheSvc.InvalidateGroupViews(ctx, groupID)

	group.EndsOn = &endsOn
	group.LastSubscriptionPaidAt = &nowMillis
	group.LastSubscriptionTxHash = paymentTxHash
	return s.ComputeStatus(group), nil
}

// ComputeStatus derives the billing view: expired when past endsOn, renewal
// due inside the 5-day window, days remaining rounded up. A group that never
// paid has no endsOn and no derived numbers.
func (s *subscriptionService) ComputeStatus(group *models.Group) *models.SubscriptionStatus {
	status := &models.SubscriptionStatus{
		EndsOn:     group.EndsOn,
		LastPaidAt: group.LastSubscriptionPaidAt,
		TxHash:     group.LastSubscriptionTxHash,
	}
	if group.EndsOn == nil {
		return status
	}

	nowMillis := models.EpochMillis(s.clock.Now())
	remaining := *group.EndsOn - nowMillis

	status.IsExpired = remaining < 0
	status.IsRenewalDue = status.IsExpired || remaining <= RenewalWindow.Milliseconds()

	days := int(math.Ceil(float64(remaining) / float64((24 * time.Hour).Milliseconds())))
	if days < 0 {
		days = 0
	}
	status.DaysRemaining = &days
	return status
}
