package services

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"coursepass/internal/common"
	"coursepass/internal/models"
	"coursepass/internal/repositories"
)

// MaxShareBps is the full revenue pie in basis points.
const MaxShareBps = 10000

// ShareAllocation is the merged, deduplicated revenue-share outcome.
// Recipients preserves first-seen order so the on-chain registration arrays
// are deterministic.
type ShareAllocation struct {
	Recipients       []string
	SharesBps        []int
	Users            map[string]uuid.UUID
	OwnerResidualBps int
}

// ShareFor returns the merged bps for a wallet address, zero when absent.
func (a *ShareAllocation) ShareFor(address string) int {
	for i, recipient := range a.Recipients {
		if recipient == address {
			return a.SharesBps[i]
		}
	}
	return 0
}

// TotalBps is the sum of all merged shares.
func (a *ShareAllocation) TotalBps() int {
	total := 0
	for _, bps := range a.SharesBps {
		total += bps
	}
	return total
}

// RevShareService validates and merges administrator revenue shares.
type RevShareService interface {
	Allocate(ctx context.Context, ownerAddress string, entries []models.AdminShareSpec) (*ShareAllocation, error)
}

type revShareService struct {
	userRepo repositories.UserRepository
}

func NewRevShareService(userRepo repositories.UserRepository) RevShareService {
	return &revShareService{userRepo: userRepo}
}

// Allocate normalizes, filters, rounds, and merges the requested shares.
// Entries addressed to the owner or with non-positive/non-finite shares are
// dropped; duplicates are summed. Individual and running totals are capped at
// 10000 bps, and a merged total beyond 10000 fails with ErrShareOverflow.
// Each surviving address is resolved to a user, creating a guest identity on
// first sight.
func (s *revShareService) Allocate(ctx context.Context, ownerAddress string, entries []models.AdminShareSpec) (*ShareAllocation, error) {
	owner, err := common.NormalizeWalletAddress(ownerAddress)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]int)
	order := make([]string, 0, len(entries))
	total := 0

	for _, entry := range entries {
		address, err := common.NormalizeWalletAddress(entry.WalletAddress)
		if err != nil {
			return nil, err
		}
		if address == owner {
			continue
		}
		if entry.ShareBps <= 0 || math.IsNaN(entry.ShareBps) || math.IsInf(entry.ShareBps, 0) {
			continue
		}

		bps := int(math.Round(entry.ShareBps))
		if bps > MaxShareBps {
			bps = MaxShareBps
		}
		if bps == 0 {
			continue
		}

		if _, seen := merged[address]; !seen {
			order = append(order, address)
		}
		sum := merged[address] + bps
		if sum > MaxShareBps {
			sum = MaxShareBps
		}
		total += sum - merged[address]
		merged[address] = sum
	}

	if total > MaxShareBps {
		return nil, models.ErrShareOverflow
	}

	allocation := &ShareAllocation{
		Recipients:       make([]string, 0, len(order)),
		SharesBps:        make([]int, 0, len(order)),
		Users:            make(map[string]uuid.UUID, len(order)),
		OwnerResidualBps: MaxShareBps - total,
	}
	if allocation.OwnerResidualBps < 0 {
		allocation.OwnerResidualBps = 0
	}

	for _, address := range order {
		user, err := s.resolveUser(ctx, address)
		if err != nil {
			return nil, err
		}
		allocation.Recipients = append(allocation.Recipients, address)
		allocation.SharesBps = append(allocation.SharesBps, merged[address])
		allocation.Users[address] = user.ID
	}

	return allocation, nil
}

// resolveUser looks the wallet up, inserting a guest row the first time the
// address is seen. The insert is ON CONFLICT DO NOTHING, so a concurrent
// first-sight resolves to the same row on re-read.
func (s *revShareService) resolveUser(ctx context.Context, address string) (*models.User, error) {
	user, err := s.userRepo.GetByWallet(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	guest := &models.User{
		ID:            uuid.New(),
		WalletAddress: address,
		Guest:         true,
	}
	if err := s.userRepo.Create(ctx, guest); err != nil {
		return nil, err
	}
	return s.userRepo.GetByWallet(ctx, address)
}
