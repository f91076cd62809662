package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"coursepass/internal/caching"
	"coursepass/internal/models"
	"coursepass/internal/repositories"
)

const groupViewTTL = 30 * time.Second

// AccessService resolves what a viewer can see for a group: the about
// surface is always visible, everything else requires public visibility,
// active membership, or ownership.
type AccessService interface {
	GetView(ctx context.Context, groupID uuid.UUID, viewerID *uuid.UUID) (*models.GroupView, error)
	ComputeAccess(group *models.Group, isOwner, isMember bool) models.ViewerAccess
}

type accessService struct {
	groupRepo       repositories.GroupRepository
	membershipRepo  repositories.MembershipRepository
	adminRepo       repositories.AdministratorRepository
	subscriptionSvc SubscriptionService
	cacheSvc        caching.CacheService
}

func NewAccessService(
	groupRepo repositories.GroupRepository,
	membershipRepo repositories.MembershipRepository,
	adminRepo repositories.AdministratorRepository,
	subscriptionSvc SubscriptionService,
	cacheSvc caching.CacheService,
) AccessService {
	return &accessService{
		groupRepo:       groupRepo,
		membershipRepo:  membershipRepo,
		adminRepo:       adminRepo,
		subscriptionSvc: subscriptionSvc,
		cacheSvc:        cacheSvc,
	}
}

func viewerCacheKey(viewerID *uuid.UUID) string {
	if viewerID == nil {
		return "guest"
	}
	return viewerID.String()
}

func (s *accessService) GetView(ctx context.Context, groupID uuid.UUID, viewerID *uuid.UUID) (*models.GroupView, error) {
	viewerKey := viewerCacheKey(viewerID)
	if cached, err := s.cacheSvc.GetGroupView(ctx, groupID, viewerKey); err == nil && cached != nil {
		return cached, nil
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	view := &models.GroupView{Group: group}

	if viewerID != nil {
		view.IsOwner = group.OwnerID == *viewerID
		if !view.IsOwner {
			isAdmin, err := s.adminRepo.IsAdmin(ctx, groupID, *viewerID)
			if err != nil {
				return nil, err
			}
			view.IsAdministrator = isAdmin

			membership, err := s.membershipRepo.GetByGroupAndUser(ctx, groupID, *viewerID)
			switch {
			case err == nil:
				if membership.Status == models.MembershipActive {
					view.IsMember = true
					view.Membership = membership
				}
			case errors.Is(err, models.ErrMembershipNotFound):
				// viewer never joined
			default:
				return nil, err
			}
		}
	}

	view.Access = s.ComputeAccess(group, view.IsOwner, view.IsMember)

	if view.Access.Members || view.IsOwner || view.IsAdministrator {
		admins, err := s.adminRepo.ListByGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		view.Administrators = admins
	}

	// billing status is owner and administrator business only
	if (view.IsOwner || view.IsAdministrator) && group.BillingCadence == models.CadenceMonthly {
		view.Subscription = s.subscriptionSvc.ComputeStatus(group)
	}

	_ = s.cacheSvc.SetGroupView(ctx, groupID, viewerKey, view, groupViewTTL)
	return view, nil
}

func (s *accessService) ComputeAccess(group *models.Group, isOwner, isMember bool) models.ViewerAccess {
	unlocked := group.Visibility == models.VisibilityPublic || isOwner || isMember
	return models.ViewerAccess{
		About:     true,
		Feed:      unlocked,
		Classroom: unlocked,
		Members:   unlocked,
	}
}
