package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"coursepass/internal/chain"
	"coursepass/internal/models"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupRepository) UpdateSettings(ctx context.Context, group *models.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) SetSubscriptionID(ctx context.Context, id uuid.UUID, subscriptionID string) error {
	args := m.Called(ctx, id, subscriptionID)
	return args.Error(0)
}

func (m *MockGroupRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, endsOn, paidAt int64, txHash *string) error {
	args := m.Called(ctx, id, endsOn, paidAt, txHash)
	return args.Error(0)
}

func (m *MockGroupRepository) AdjustMemberNumber(ctx context.Context, id uuid.UUID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockGroupRepository) SetMemberNumber(ctx context.Context, id uuid.UUID, count int) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGroupRepository) ListMonthly(ctx context.Context, limit, offset int) ([]*models.Group, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Group), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) GetByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) MarkActive(ctx context.Context, id uuid.UUID, joinedAt time.Time, passExpiresAt *int64) error {
	args := m.Called(ctx, id, joinedAt, passExpiresAt)
	return args.Error(0)
}

func (m *MockMembershipRepository) MarkLeft(ctx context.Context, id uuid.UUID, leftAt time.Time, passExpiresAt *int64) error {
	args := m.Called(ctx, id, leftAt, passExpiresAt)
	return args.Error(0)
}

func (m *MockMembershipRepository) CountActive(ctx context.Context, groupID uuid.UUID) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

func (m *MockMembershipRepository) DeleteByGroup(ctx context.Context, groupID uuid.UUID) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

type MockAdministratorRepository struct {
	mock.Mock
}

func (m *MockAdministratorRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Administrator, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Administrator), args.Error(1)
}

func (m *MockAdministratorRepository) Upsert(ctx context.Context, admin *models.Administrator) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdministratorRepository) Delete(ctx context.Context, groupID, adminID uuid.UUID) error {
	args := m.Called(ctx, groupID, adminID)
	return args.Error(0)
}

func (m *MockAdministratorRepository) DeleteByGroup(ctx context.Context, groupID uuid.UUID) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *MockAdministratorRepository) IsAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	args := m.Called(ctx, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) GetCourse(ctx context.Context, courseID string) (*chain.CourseConfig, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.CourseConfig), args.Error(1)
}

func (m *MockChainClient) GetPassState(ctx context.Context, courseID, account string) (*chain.PassState, error) {
	args := m.Called(ctx, courseID, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.PassState), args.Error(1)
}

func (m *MockChainClient) CanTransfer(ctx context.Context, courseID, account string) (*chain.TransferStatus, error) {
	args := m.Called(ctx, courseID, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.TransferStatus), args.Error(1)
}

func (m *MockChainClient) BalanceOf(ctx context.Context, account, courseID string) (int64, error) {
	args := m.Called(ctx, account, courseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChainClient) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	args := m.Called(ctx, owner, operator)
	return args.Bool(0), args.Error(1)
}

func (m *MockChainClient) GetActiveListings(ctx context.Context, courseID string) ([]*chain.Listing, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*chain.Listing), args.Error(1)
}

func (m *MockChainClient) RegisterCourse(ctx context.Context, from string, params chain.RegisterCourseParams) (string, error) {
	args := m.Called(ctx, from, params)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) PurchasePrimary(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error) {
	args := m.Called(ctx, from, courseID, maxPrice)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) RenewPass(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error) {
	args := m.Called(ctx, from, courseID, maxPrice)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) CreateListing(ctx context.Context, from, courseID string, price decimal.Decimal, duration int64) (string, error) {
	args := m.Called(ctx, from, courseID, price, duration)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) CancelListing(ctx context.Context, from, courseID string) (string, error) {
	args := m.Called(ctx, from, courseID)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) BuyListing(ctx context.Context, from, courseID, seller string, maxPrice decimal.Decimal) (string, error) {
	args := m.Called(ctx, from, courseID, seller, maxPrice)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (string, error) {
	args := m.Called(ctx, from, operator, approved)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) GetReceipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Receipt), args.Error(1)
}

func (m *MockChainClient) WaitForReceipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Receipt), args.Error(1)
}

type MockCourseRegistrar struct {
	mock.Mock
}

func (m *MockCourseRegistrar) Enqueue(ctx context.Context, from string, params chain.RegisterCourseParams) error {
	args := m.Called(ctx, from, params)
	return args.Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetCourseConfig(ctx context.Context, courseID string) (*chain.CourseConfig, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.CourseConfig), args.Error(1)
}

func (m *MockCacheService) SetCourseConfig(ctx context.Context, config *chain.CourseConfig, ttl time.Duration) error {
	args := m.Called(ctx, config, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteCourseConfig(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

func (m *MockCacheService) GetFloorPrice(ctx context.Context, courseID string) (*decimal.Decimal, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*decimal.Decimal), args.Error(1)
}

func (m *MockCacheService) SetFloorPrice(ctx context.Context, courseID string, price decimal.Decimal, ttl time.Duration) error {
	args := m.Called(ctx, courseID, price, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteFloorPrice(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

func (m *MockCacheService) CoursesWithCachedFloor(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCacheService) GetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string) (*models.GroupView, error) {
	args := m.Called(ctx, groupID, viewerKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupView), args.Error(1)
}

func (m *MockCacheService) SetGroupView(ctx context.Context, groupID uuid.UUID, viewerKey string, view *models.GroupView, ttl time.Duration) error {
	args := m.Called(ctx, groupID, viewerKey, view, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateGroupViews(ctx context.Context, groupID uuid.UUID) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}
