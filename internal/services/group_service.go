package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"coursepass/internal/caching"
	"coursepass/internal/chain"
	"coursepass/internal/common"
	"coursepass/internal/models"
	"coursepass/internal/repositories"
)

// CourseRegistrar schedules the one-time on-chain course registration for a
// paid group. Registration runs out of band; the group is usable immediately
// and pass verification activates once the course exists on chain.
type CourseRegistrar interface {
	Enqueue(ctx context.Context, from string, params chain.RegisterCourseParams) error
}

// GroupService owns the group lifecycle and the join/leave workflows.
type GroupService interface {
	Create(ctx context.Context, ownerID uuid.UUID, settings *models.GroupSettings) (*models.Group, error)
	UpdateSettings(ctx context.Context, groupID, requester uuid.UUID, settings *models.GroupSettings) (*models.Group, error)
	Delete(ctx context.Context, groupID, requester uuid.UUID) error
	Join(ctx context.Context, groupID, userID uuid.UUID, proof models.JoinProof) (models.JoinStatus, error)
	Leave(ctx context.Context, groupID, userID uuid.UUID) (models.LeaveStatus, error)
}

type groupService struct {
	groupRepo      repositories.GroupRepository
	membershipRepo repositories.MembershipRepository
	adminRepo      repositories.AdministratorRepository
	userRepo       repositories.UserRepository
	revShareSvc    RevShareService
	courseSvc      CourseService
	chainClient    chain.Client
	cacheSvc       caching.CacheService
	registrar      CourseRegistrar
	clock          Clock
	passDuration   int64 // seconds
	passCooldown   int64 // seconds
	treasury       string
	platformFeeBps int
}

func NewGroupService(
	groupRepo repositories.GroupRepository,
	membershipRepo repositories.MembershipRepository,
	adminRepo repositories.AdministratorRepository,
	userRepo repositories.UserRepository,
	revShareSvc RevShareService,
	courseSvc CourseService,
	chainClient chain.Client,
	cacheSvc caching.CacheService,
	registrar CourseRegistrar,
	clock Clock,
	passDuration, passCooldown int64,
	treasury string,
	platformFeeBps int,
) GroupService {
	return &groupService{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		adminRepo:      adminRepo,
		userRepo:       userRepo,
		revShareSvc:    revShareSvc,
		courseSvc:      courseSvc,
		chainClient:    chainClient,
		cacheSvc:       cacheSvc,
		registrar:      registrar,
		clock:          clock,
		passDuration:   passDuration,
		passCooldown:   passCooldown,
		treasury:       treasury,
		platformFeeBps: platformFeeBps,
	}
}

func (s *groupService) Create(ctx context.Context, ownerID uuid.UUID, settings *models.GroupSettings) (*models.Group, error) {
	if err := common.ValidateRequiredString(settings.Name, "name"); err != nil {
		return nil, err
	}

	visibility, cadence, err := models.ResolveGroupSettings(settings)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		ID:             uuid.New(),
		Name:           settings.Name,
		Visibility:     visibility,
		BillingCadence: cadence,
		Price:          settings.Price,
		OwnerID:        ownerID,
		MemberNumber:   0,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	allocation, err := s.applyShares(ctx, group.ID, owner.WalletAddress, settings.Admins, nil)
	if err != nil {
		return nil, err
	}

	if group.IsPaid() {
		courseID, err := s.courseSvc.ResolveOrCreateCourseID(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.SubscriptionID = &courseID

		params := chain.RegisterCourseParams{
			CourseID:         courseID,
			PriceUSDC:        group.Price,
			Recipients:       allocation.Recipients,
			SharesBps:        allocation.SharesBps,
			Duration:         s.passDuration,
			TransferCooldown: s.passCooldown,
			Treasury:         s.treasury,
			PlatformFeeBps:   s.platformFeeBps,
		}
		if err := s.registrar.Enqueue(ctx, owner.WalletAddress, params); err != nil {
			return nil, err
		}
	}

	return group, nil
}

func (s *groupService) UpdateSettings(ctx context.Context, groupID, requester uuid.UUID, settings *models.GroupSettings) (*models.Group, error) {
	group, err := s.requireOwner(ctx, groupID, requester)
	if err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(settings.Name, "name"); err != nil {
		return nil, err
	}

	visibility, cadence, err := models.ResolveGroupSettings(settings)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, group.OwnerID)
	if err != nil {
		return nil, err
	}

	current, err := s.adminRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyShares(ctx, groupID, owner.WalletAddress, settings.Admins, current); err != nil {
		return nil, err
	}

	group.Name = settings.Name
	group.Visibility = visibility
	group.BillingCadence = cadence
	group.Price = settings.Price
	if err := s.groupRepo.UpdateSettings(ctx, group); err != nil {
		return nil, err
	}

	_ = s.cacheSvc.InvalidateGroupViews(ctx, groupID)
	return group, nil
}

// Delete removes the group and its dependent rows. Each removal is its own
// statement; a crash between them leaves orphans that re-running delete
// cleans up, never a half-visible group.
func (s *groupService) Delete(ctx context.Context, groupID, requester uuid.UUID) error {
	group, err := s.requireOwner(ctx, groupID, requester)
	if err != nil {
		return err
	}

	if err := s.membershipRepo.DeleteByGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.adminRepo.DeleteByGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.groupRepo.Delete(ctx, groupID); err != nil {
		return err
	}

	_ = s.cacheSvc.InvalidateGroupViews(ctx, groupID)
	if group.SubscriptionID != nil {
		_ = s.cacheSvc.DeleteCourseConfig(ctx, *group.SubscriptionID)
		_ = s.cacheSvc.DeleteFloorPrice(ctx, *group.SubscriptionID)
	}
	return nil
}

// Join admits a user into a group. The owner is already in; an active member
// stays put but triggers a member-count reconciliation, which is the repair
// path for a prior join that wrote the membership and then failed to bump the
// counter. Paid groups demand payment proof before the first admission.
func (s *groupService) Join(ctx context.Context, groupID, userID uuid.UUID, proof models.JoinProof) (models.JoinStatus, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.OwnerID == userID {
		return models.JoinStatusOwner, nil
	}

	membership, err := s.membershipRepo.GetByGroupAndUser(ctx, groupID, userID)
	if err != nil && !errors.Is(err, models.ErrMembershipNotFound) {
		return "", err
	}

	if membership != nil && membership.Status == models.MembershipActive {
		s.reconcileMemberNumber(ctx, groupID)
		return models.JoinStatusAlreadyMember, nil
	}

	var passExpiresAt *int64
	if group.IsPaid() {
		passExpiresAt, err = s.verifyPayment(ctx, group, userID, proof)
		if err != nil {
			return "", err
		}
	}

	now := s.clock.Now()
	if membership == nil {
		membership = &models.Membership{
			ID:            uuid.New(),
			GroupID:       groupID,
			UserID:        userID,
			Status:        models.MembershipActive,
			JoinedAt:      &now,
			PassExpiresAt: passExpiresAt,
		}
		if err := s.membershipRepo.Create(ctx, membership); err != nil {
			return "", err
		}
	} else {
		if err := s.membershipRepo.MarkActive(ctx, membership.ID, now, passExpiresAt); err != nil {
			return "", err
		}
	}

	if err := s.groupRepo.AdjustMemberNumber(ctx, groupID, 1); err != nil {
		return "", err
	}

	_ = s.cacheSvc.InvalidateGroupViews(ctx, groupID)
	return models.JoinStatusJoined, nil
}

// Leave marks the caller's membership as left. The owner cannot leave their
// own group; deleting the group is the exit.
func (s *groupService) Leave(ctx context.Context, groupID, userID uuid.UUID) (models.LeaveStatus, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.OwnerID == userID {
		return "", models.ErrOwnerCannotLeave
	}

	membership, err := s.membershipRepo.GetByGroupAndUser(ctx, groupID, userID)
	if errors.Is(err, models.ErrMembershipNotFound) {
		return models.LeaveStatusNotMember, nil
	}
	if err != nil {
		return "", err
	}
	if membership.Status != models.MembershipActive {
		return models.LeaveStatusNotMember, nil
	}

	if err := s.membershipRepo.MarkLeft(ctx, membership.ID, s.clock.Now(), membership.PassExpiresAt); err != nil {
		return "", err
	}
	if err := s.groupRepo.AdjustMemberNumber(ctx, groupID, -1); err != nil {
		return "", err
	}

	_ = s.cacheSvc.InvalidateGroupViews(ctx, groupID)
	return models.LeaveStatusLeft, nil
}

// verifyPayment checks the join proof for a paid group and returns the pass
// expiry to record, when known. A transaction hash must be confirmed; a
// has-active-pass attestation is checked against the chain once the group's
// course is registered.
func (s *groupService) verifyPayment(ctx context.Context, group *models.Group, userID uuid.UUID, proof models.JoinProof) (*int64, error) {
	if !proof.Present() {
		return nil, models.ErrPaymentRequired
	}

	if proof.TxHash != nil && *proof.TxHash != "" {
		receipt, err := s.chainClient.WaitForReceipt(ctx, *proof.TxHash)
		if err != nil {
			return nil, err
		}
		if receipt.Status != chain.ReceiptConfirmed {
			return nil, models.ErrPaymentNotConfirmed
		}
		return proof.PassExpiresAt, nil
	}

	// attestation path
	if group.SubscriptionID == nil {
		// course not registered yet, nothing on chain to hold a pass against
		return nil, models.ErrPaymentRequired
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := common.NormalizeWalletAddress(user.WalletAddress)
	if err != nil {
		return nil, err
	}

	state, err := s.chainClient.GetPassState(ctx, *group.SubscriptionID, wallet)
	if err != nil {
		return nil, err
	}
	if state.ExpiresAt <= models.EpochMillis(s.clock.Now()) {
		return nil, &models.OnchainStateError{Reason: "no active pass held for this course"}
	}
	expiresAt := state.ExpiresAt
	return &expiresAt, nil
}

// applyShares allocates the requested shares and syncs the administrator
// rows: upsert every surviving entry, delete rows no longer present.
func (s *groupService) applyShares(ctx context.Context, groupID uuid.UUID, ownerAddress string, specs []models.AdminShareSpec, current []*models.Administrator) (*ShareAllocation, error) {
	allocation, err := s.revShareSvc.Allocate(ctx, ownerAddress, specs)
	if err != nil {
		return nil, err
	}

	kept := make(map[uuid.UUID]bool, len(allocation.Recipients))
	for i, address := range allocation.Recipients {
		adminID := allocation.Users[address]
		kept[adminID] = true
		admin := &models.Administrator{
			GroupID:  groupID,
			AdminID:  adminID,
			ShareBps: allocation.SharesBps[i],
		}
		if err := s.adminRepo.Upsert(ctx, admin); err != nil {
			return nil, err
		}
	}

	for _, admin := range current {
		if !kept[admin.AdminID] {
			if err := s.adminRepo.Delete(ctx, groupID, admin.AdminID); err != nil {
				return nil, err
			}
		}
	}

	return allocation, nil
}

func (s *groupService) requireOwner(ctx context.Context, groupID, requester uuid.UUID) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != requester {
		return nil, models.ErrNotOwner
	}
	return group, nil
}

// reconcileMemberNumber recounts active memberships and overwrites the
// cached counter. Best effort; the next idempotent join repeats it.
func (s *groupService) reconcileMemberNumber(ctx context.Context, groupID uuid.UUID) {
	count, err := s.membershipRepo.CountActive(ctx, groupID)
	if err != nil {
		return
	}
	_ = s.groupRepo.SetMemberNumber(ctx, groupID, count)
}
