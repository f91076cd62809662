package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"coursepass/internal/chain"
	"coursepass/internal/logger"
	"coursepass/internal/models"
)

// MockChainClient mocks the chain.Client interface for testing
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

func testRegistrar(chainClient chain.Client) *CourseRegistrar {
	return NewCourseRegistrar(chainClient, logger.New(logger.Config{Env: "test", Level: "error"}))
}

func registerTask(t *testing.T) *asynq.Task {
	task, err := NewCourseRegisterTask("0xcreator", chain.RegisterCourseParams{
		CourseID:  "1750000000000123456",
		PriceUSDC: decimal.RequireFromString("49.99"),
	})
	assert.NoError(t, err)
	return task
}

func TestCourseRegisterHandler_Success(t *testing.T) {
	mockChain := &MockChainClient{}
	mockChain.On("RegisterCourse", mock.Anything, "0xcreator", mock.AnythingOfType("chain.RegisterCourseParams")).
		Return("0xtx", nil)
	mockChain.On("WaitForReceipt", mock.Anything, "0xtx").
		Return(&chain.Receipt{TxHash: "0xtx", Status: chain.ReceiptConfirmed}, nil)

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(), registerTask(t))

	assert.NoError(t, err)
	mockChain.AssertExpectations(t)
}

func TestCourseRegisterHandler_AlreadyRegisteredIsSuccess(t *testing.T) {
	mockChain := &MockChainClient{}
	mockChain.On("RegisterCourse", mock.Anything, "0xcreator", mock.AnythingOfType("chain.RegisterCourseParams")).
		Return("", models.ErrAlreadyRegistered)

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(), registerTask(t))

	assert.NoError(t, err)
	mockChain.AssertNotCalled(t, "WaitForReceipt")
}

func TestCourseRegisterHandler_StateRevertSkipsRetry(t *testing.T) {
	mockChain := &MockChainClient{}
	mockChain.On("RegisterCourse", mock.Anything, "0xcreator", mock.AnythingOfType("chain.RegisterCourseParams")).
		Return("", &models.OnchainStateError{Reason: "shares exceed 10000 bps"})

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(), registerTask(t))

	assert.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCourseRegisterHandler_TransportErrorRetries(t *testing.T) {
	mockChain := &MockChainClient{}
	mockChain.On("RegisterCourse", mock.Anything, "0xcreator", mock.AnythingOfType("chain.RegisterCourseParams")).
		Return("", &models.ChainError{Op: "course_registerCourse", Err: errors.New("connection refused")})

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(), registerTask(t))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestCourseRegisterHandler_FailedReceiptRetries(t *testing.T) {
	mockChain := &MockChainClient{}
	mockChain.On("RegisterCourse", mock.Anything, "0xcreator", mock.AnythingOfType("chain.RegisterCourseParams")).
		Return("0xtx", nil)
	mockChain.On("WaitForReceipt", mock.Anything, "0xtx").
		Return(&chain.Receipt{TxHash: "0xtx", Status: chain.ReceiptFailed}, nil)

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(), registerTask(t))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestCourseRegisterHandler_MalformedPayload(t *testing.T) {
	mockChain := &MockChainClient{}

	err := testRegistrar(mockChain).CourseRegisterHandler(context.Background(),
		asynq.NewTask(TypeCourseRegister, []byte("not json")))

	assert.Error(t, err)
	mockChain.AssertNotCalled(t, "RegisterCourse")
}
