package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coursepass/internal/caching"
	"coursepass/internal/chain"
	"coursepass/internal/models"
)

const floorPriceTTL = time.Minute

// MarketplaceService tracks active secondary listings for a course and runs
// the buy/list/renew workflows against the chain.
type MarketplaceService interface {
	GetFloorPrice(ctx context.Context, courseID string) (*decimal.Decimal, error)
	GetActiveListings(ctx context.Context, courseID string) ([]*chain.Listing, error)
	CreateListing(ctx context.Context, seller, courseID string, price decimal.Decimal, duration time.Duration) (*chain.Receipt, error)
	CancelListing(ctx context.Context, seller, courseID string) (*chain.Receipt, error)
	BuyListing(ctx context.Context, buyer, courseID, seller string, maxPrice decimal.Decimal) (*chain.Receipt, error)
	RenewPass(ctx context.Context, buyer, courseID string, maxPrice decimal.Decimal) (*chain.Receipt, error)
}

type marketplaceService struct {
	chainClient        chain.Client
	cacheSvc           caching.CacheService
	clock              Clock
	marketplaceAddr    string
	maxListingDuration time.Duration
}

func NewMarketplaceService(
	chainClient chain.Client,
	cacheSvc caching.CacheService,
	clock Clock,
	marketplaceAddr string,
	maxListingDuration time.Duration,
) MarketplaceService {
	return &marketplaceService{
		chainClient:        chainClient,
		cacheSvc:           cacheSvc,
		clock:              clock,
		marketplaceAddr:    marketplaceAddr,
		maxListingDuration: maxListingDuration,
	}
}

// GetFloorPrice returns the lowest active listing price, nil when the book is
// empty. Ties break on first encountered; price is the only ordering key the
// chain read exposes.
func (s *marketplaceService) GetFloorPrice(ctx context.Context, courseID string) (*decimal.Decimal, error) {
	if cached, err := s.cacheSvc.GetFloorPrice(ctx, courseID); err == nil && cached != nil {
		return cached, nil
	}

	listings, err := s.chainClient.GetActiveListings(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var floor *decimal.Decimal
	for _, listing := range listings {
		if !listing.Active {
			continue
		}
		if floor == nil || listing.PriceUSDC.LessThan(*floor) {
			price := listing.PriceUSDC
			floor = &price
		}
	}
	if floor != nil {
		_ = s.cacheSvc.SetFloorPrice(ctx, courseID, *floor, floorPriceTTL)
	}
	return floor, nil
}

func (s *marketplaceService) GetActiveListings(ctx context.Context, courseID string) ([]*chain.Listing, error) {
	return s.chainClient.GetActiveListings(ctx, courseID)
}

// CreateListing lists the seller's pass. Preconditions: the pass is not
// expired, the transfer cooldown has elapsed, and the requested duration fits
// the marketplace cap. The cooldown rejection carries availableAt.
func (s *marketplaceService) CreateListing(ctx context.Context, seller, courseID string, price decimal.Decimal, duration time.Duration) (*chain.Receipt, error) {
	if !price.IsPositive() {
		return nil, &models.ValidationError{Msg: "listing price must be positive"}
	}
	if duration < 0 || duration > s.maxListingDuration {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("listing duration cannot exceed %s", s.maxListingDuration)}
	}

	state, err := s.chainClient.GetPassState(ctx, courseID, seller)
	if err != nil {
		return nil, err
	}
	if state.ExpiresAt <= models.EpochMillis(s.clock.Now()) {
		return nil, &models.OnchainStateError{Reason: "pass is expired and cannot be listed"}
	}

	transfer, err := s.chainClient.CanTransfer(ctx, courseID, seller)
	if err != nil {
		return nil, err
	}
	if !transfer.Eligible {
		return nil, models.NewCooldownActiveError(transfer.AvailableAt)
	}

	txHash, err := s.chainClient.CreateListing(ctx, seller, courseID, price, int64(duration.Seconds()))
	if err != nil {
		return nil, err
	}
	receipt, err := s.confirm(ctx, txHash, "createListing")
	if err != nil {
		return nil, err
	}

	_ = s.cacheSvc.DeleteFloorPrice(ctx, courseID)
	return receipt, nil
}

func (s *marketplaceService) CancelListing(ctx context.Context, seller, courseID string) (*chain.Receipt, error) {
	txHash, err := s.chainClient.CancelListing(ctx, seller, courseID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.confirm(ctx, txHash, "cancelListing")
	if err != nil {
		return nil, err
	}

	_ = s.cacheSvc.DeleteFloorPrice(ctx, courseID)
	return receipt, nil
}

// BuyListing purchases a listed pass. The buyer's max price guards against
// price-change races; the marketplace approval must confirm before the
// purchase is submitted, and the purchase must confirm before ownership is
// asserted.
func (s *marketplaceService) BuyListing(ctx context.Context, buyer, courseID, seller string, maxPrice decimal.Decimal) (*chain.Receipt, error) {
	listing, err := s.findActiveListing(ctx, courseID, seller)
	if err != nil {
		return nil, err
	}
	if listing.PriceUSDC.GreaterThan(maxPrice) {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("listing price %s exceeds max price %s", listing.PriceUSDC, maxPrice)}
	}

	approved, err := s.chainClient.IsApprovedForAll(ctx, buyer, s.marketplaceAddr)
	if err != nil {
		return nil, err
	}
	if !approved {
		approveTx, err := s.chainClient.SetApprovalForAll(ctx, buyer, s.marketplaceAddr, true)
		if err != nil {
			return nil, err
		}
		if _, err := s.confirm(ctx, approveTx, "setApprovalForAll"); err != nil {
			return nil, err
		}
	}

	txHash, err := s.chainClient.BuyListing(ctx, buyer, courseID, seller, maxPrice)
	if err != nil {
		return nil, err
	}
	receipt, err := s.confirm(ctx, txHash, "buyListing")
	if err != nil {
		return nil, err
	}

	// ownership asserted only after confirmation
	if _, err := s.chainClient.GetPassState(ctx, courseID, buyer); err != nil {
		return nil, err
	}

	_ = s.cacheSvc.DeleteFloorPrice(ctx, courseID)
	return receipt, nil
}

// RenewPass re-purchases at the primary price to extend the buyer's own
// pass. Independent of the listing book.
func (s *marketplaceService) RenewPass(ctx context.Context, buyer, courseID string, maxPrice decimal.Decimal) (*chain.Receipt, error) {
	txHash, err := s.chainClient.RenewPass(ctx, buyer, courseID, maxPrice)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, txHash, "renew")
}

func (s *marketplaceService) findActiveListing(ctx context.Context, courseID, seller string) (*chain.Listing, error) {
	listings, err := s.chainClient.GetActiveListings(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, listing := range listings {
		if listing.Active && listing.Seller == seller {
			return listing, nil
		}
	}
	return nil, models.ErrListingNotFound
}

// confirm blocks on the receipt and converts a failed transaction into an
// error; the runtime path never resubmits on the caller's behalf.
func (s *marketplaceService) confirm(ctx context.Context, txHash, op string) (*chain.Receipt, error) {
	receipt, err := s.chainClient.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != chain.ReceiptConfirmed {
		return nil, &models.OnchainStateError{Reason: fmt.Sprintf("%s transaction %s failed", op, txHash)}
	}
	return receipt, nil
}
