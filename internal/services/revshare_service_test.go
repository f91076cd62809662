package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"coursepass/internal/models"
)

const (
	ownerWallet    = "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa"
	adminWalletA   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	adminWalletB   = "0xcccccccccccccccccccccccccccccccccccccccc"
	treasuryWallet = "0xdddddddddddddddddddddddddddddddddddddddd"
)

type RevShareServiceTestSuite struct {
	suite.Suite
	mockUserRepo *MockUserRepository
	service      RevShareService
	ctx          context.Context
}

func (suite *RevShareServiceTestSuite) SetupTest() {
	suite.mockUserRepo = &MockUserRepository{}
	suite.service = NewRevShareService(suite.mockUserRepo)
	suite.ctx = context.Background()

	suite.mockUserRepo.Test(suite.T())
}

func (suite *RevShareServiceTestSuite) TearDownTest() {
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func TestRevShareServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RevShareServiceTestSuite))
}

func (suite *RevShareServiceTestSuite) expectUser(wallet string) uuid.UUID {
	id := uuid.New()
	suite.mockUserRepo.On("GetByWallet", suite.ctx, wallet).
		Return(&models.User{ID: id, WalletAddress: wallet}, nil)
	return id
}

func (suite *RevShareServiceTestSuite) TestAllocate_MergesDuplicatesAndNormalizesCase() {
	userID := suite.expectUser(adminWalletA)

	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: 1000},
		{WalletAddress: "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", ShareBps: 500},
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{adminWalletA}, allocation.Recipients)
	assert.Equal(suite.T(), []int{1500}, allocation.SharesBps)
	assert.Equal(suite.T(), userID, allocation.Users[adminWalletA])
	assert.Equal(suite.T(), 8500, allocation.OwnerResidualBps)
}

func (suite *RevShareServiceTestSuite) TestAllocate_DropsOwnerAndNonPositiveShares() {
	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: ownerWallet, ShareBps: 5000},
		{WalletAddress: adminWalletA, ShareBps: 0},
		{WalletAddress: adminWalletB, ShareBps: -200},
	})

	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), allocation.Recipients)
	assert.Equal(suite.T(), MaxShareBps, allocation.OwnerResidualBps)
}

func (suite *RevShareServiceTestSuite) TestAllocate_DropsNonFiniteShares() {
	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: math.NaN()},
		{WalletAddress: adminWalletB, ShareBps: math.Inf(1)},
	})

	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), allocation.Recipients)
}

func (suite *RevShareServiceTestSuite) TestAllocate_RoundsFractionalShares() {
	suite.expectUser(adminWalletA)

	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: 1499.6},
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []int{1500}, allocation.SharesBps)
}

func (suite *RevShareServiceTestSuite) TestAllocate_CapsIndividualShareAtFullPie() {
	suite.expectUser(adminWalletA)

	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: 25000},
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []int{MaxShareBps}, allocation.SharesBps)
	assert.Equal(suite.T(), 0, allocation.OwnerResidualBps)
}

func (suite *RevShareServiceTestSuite) TestAllocate_OverflowAcrossAdmins() {
	_, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: 6000},
		{WalletAddress: adminWalletB, ShareBps: 6000},
	})

	assert.ErrorIs(suite.T(), err, models.ErrShareOverflow)
}

func (suite *RevShareServiceTestSuite) TestAllocate_CreatesGuestOnFirstSight() {
	guestID := uuid.New()

	suite.mockUserRepo.On("GetByWallet", suite.ctx, adminWalletA).
		Return(nil, models.ErrUserNotFound).Once()
	suite.mockUserRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.User")).
		Return(nil).Run(func(args mock.Arguments) {
		user := args.Get(1).(*models.User)
		assert.Equal(suite.T(), adminWalletA, user.WalletAddress)
		assert.True(suite.T(), user.Guest)
	})
	suite.mockUserRepo.On("GetByWallet", suite.ctx, adminWalletA).
		Return(&models.User{ID: guestID, WalletAddress: adminWalletA, Guest: true}, nil).Once()

	allocation, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: adminWalletA, ShareBps: 2500},
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), guestID, allocation.Users[adminWalletA])
}

func (suite *RevShareServiceTestSuite) TestAllocate_RejectsMalformedAddress() {
	_, err := suite.service.Allocate(suite.ctx, ownerWallet, []models.AdminShareSpec{
		{WalletAddress: "not-a-wallet", ShareBps: 1000},
	})

	var validationErr *models.ValidationError
	assert.ErrorAs(suite.T(), err, &validationErr)
}
