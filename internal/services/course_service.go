package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"

	"coursepass/internal/caching"
	"coursepass/internal/chain"
	"coursepass/internal/models"
	"coursepass/internal/repositories"
)

const courseConfigTTL = 5 * time.Minute

// CourseService resolves the numeric course identifier tied to a group and
// reads the on-chain course configuration.
type CourseService interface {
	ResolveOrCreateCourseID(ctx context.Context, groupID uuid.UUID) (string, error)
	ResetCourseID(ctx context.Context, groupID, requester uuid.UUID) (string, error)
	GetCourseConfig(ctx context.Context, courseID string) (*chain.CourseConfig, error)
	GenerateCourseID() string
}

type courseService struct {
	groupRepo   repositories.GroupRepository
	chainClient chain.Client
	cacheSvc    caching.CacheService
	clock       Clock
}

func NewCourseService(
	groupRepo repositories.GroupRepository,
	chainClient chain.Client,
	cacheSvc caching.CacheService,
	clock Clock,
) CourseService {
	return &courseService{
		groupRepo:   groupRepo,
		chainClient: chainClient,
		cacheSvc:    cacheSvc,
		clock:       clock,
	}
}

// GenerateCourseID builds a fresh identifier as timestamp followed by six
// random digits. String concatenation, not arithmetic: concurrent creations
// in the same millisecond still diverge on the suffix.
func (s *courseService) GenerateCourseID() string {
	return fmt.Sprintf("%d%s", s.clock.Now().UnixMilli(), random.String(6, random.Numeric))
}

// ResolveOrCreateCourseID returns the group's course id, generating and
// persisting one when missing. The id is registered on-chain later by an
// owner-triggered registration call.
func (s *courseService) ResolveOrCreateCourseID(ctx context.Context, groupID uuid.UUID) (string, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.SubscriptionID != nil && *group.SubscriptionID != "" {
		return *group.SubscriptionID, nil
	}

	courseID := s.GenerateCourseID()
	if err := s.groupRepo.SetSubscriptionID(ctx, groupID, courseID); err != nil {
		return "", err
	}
	return courseID, nil
}

// ResetCourseID replaces the group's course id with a freshly generated one.
// Owner-only, and refused once the current id is confirmed registered
// on-chain: an id with live passes must never be abandoned.
func (s *courseService) ResetCourseID(ctx context.Context, groupID, requester uuid.UUID) (string, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.OwnerID != requester {
		return "", models.ErrNotOwner
	}

	if group.SubscriptionID != nil && *group.SubscriptionID != "" {
		_, err := s.chainClient.GetCourse(ctx, *group.SubscriptionID)
		if err == nil {
			return "", models.ErrAlreadyRegistered
		}
		if !errors.Is(err, models.ErrCourseNotFound) {
			return "", err
		}
		// not registered yet, safe to replace
	}

	courseID := s.GenerateCourseID()
	if err := s.groupRepo.SetSubscriptionID(ctx, groupID, courseID); err != nil {
		return "", err
	}
	if group.SubscriptionID != nil {
		_ = s.cacheSvc.DeleteCourseConfig(ctx, *group.SubscriptionID)
	}
	return courseID, nil
}

// GetCourseConfig reads the on-chain course configuration through the cache.
// An unregistered course surfaces as ErrCourseNotFound, distinct from RPC
// transport failure, so callers can render a "not yet registered" state.
func (s *courseService) GetCourseConfig(ctx context.Context, courseID string) (*chain.CourseConfig, error) {
	if cached, err := s.cacheSvc.GetCourseConfig(ctx, courseID); err == nil && cached != nil {
		return cached, nil
	}

	config, err := s.chainClient.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	// cache write failure is not a read failure
	_ = s.cacheSvc.SetCourseConfig(ctx, config, courseConfigTTL)
	return config, nil
}
