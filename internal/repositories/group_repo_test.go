package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursepass/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const groupColumnsPattern = `SELECT id, name, visibility, billing_cadence, price, owner_id, member_number,\s*` +
	`subscription_id, ends_on, last_subscription_paid_at, last_subscription_tx_hash,\s*` +
	`created_at, updated_at`

var groupColumnNames = []string{"id", "name", "visibility", "billing_cadence", "price", "owner_id",
	"member_number", "subscription_id", "ends_on", "last_subscription_paid_at",
	"last_subscription_tx_hash", "created_at", "updated_at"}

type GroupRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    GroupRepository
	groupID uuid.UUID
	ownerID uuid.UUID
	context context.Context
}

func (suite *GroupRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewGroupRepo(mock)
	suite.groupID = uuid.New()
	suite.ownerID = uuid.New()
	suite.context = context.Background()
}

func (suite *GroupRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestGroupRepoTestSuite(t *testing.T) {
	suite.Run(t, new(GroupRepoTestSuite))
}

func (suite *GroupRepoTestSuite) groupRow(group *models.Group) *pgxmock.Rows {
	return pgxmock.NewRows(groupColumnNames).
		AddRow(group.ID, group.Name, group.Visibility, group.BillingCadence, group.Price,
			group.OwnerID, group.MemberNumber, group.SubscriptionID, group.EndsOn,
			group.LastSubscriptionPaidAt, group.LastSubscriptionTxHash, group.CreatedAt, group.UpdatedAt)
}

func (suite *GroupRepoTestSuite) TestCreate_Success() {
	group := &models.Group{
		ID:             suite.groupID,
		Name:           "Signals Pro",
		Visibility:     models.VisibilityPrivate,
		BillingCadence: models.CadenceMonthly,
		Price:          decimal.RequireFromString("49.99"),
		OwnerID:        suite.ownerID,
	}

	suite.mock.ExpectExec(`
		INSERT INTO groups \(id, name, visibility, billing_cadence, price, owner_id, member_number, subscription_id, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, NOW\(\), NOW\(\)\)
	`).WithArgs(group.ID, group.Name, group.Visibility, group.BillingCadence, group.Price,
		group.OwnerID, group.MemberNumber, group.SubscriptionID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, group)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestCreate_DatabaseError() {
	group := &models.Group{
		ID:      suite.groupID,
		Name:    "Broken",
		OwnerID: suite.ownerID,
	}

	suite.mock.ExpectExec(`INSERT INTO groups`).
		WithArgs(group.ID, group.Name, group.Visibility, group.BillingCadence, group.Price,
			group.OwnerID, group.MemberNumber, group.SubscriptionID).
		WillReturnError(errors.New("database connection failed"))

	err := suite.repo.Create(suite.context, group)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "database connection failed")
}

func (suite *GroupRepoTestSuite) TestGetByID_Success() {
	courseID := "1750000000000123456"
	endsOn := int64(1752576000000)
	now := time.Now()
	group := &models.Group{
		ID:             suite.groupID,
		Name:           "Signals Pro",
		Visibility:     models.VisibilityPrivate,
		BillingCadence: models.CadenceMonthly,
		Price:          decimal.RequireFromString("49.99"),
		OwnerID:        suite.ownerID,
		MemberNumber:   12,
		SubscriptionID: &courseID,
		EndsOn:         &endsOn,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	suite.mock.ExpectQuery(groupColumnsPattern + ` FROM groups WHERE id = \$1`).
		WithArgs(suite.groupID).
		WillReturnRows(suite.groupRow(group))

	result, err := suite.repo.GetByID(suite.context, suite.groupID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), group.ID, result.ID)
	assert.Equal(suite.T(), group.Name, result.Name)
	assert.Equal(suite.T(), courseID, *result.SubscriptionID)
	assert.Equal(suite.T(), endsOn, *result.EndsOn)
	assert.True(suite.T(), group.Price.Equal(result.Price))
}

func (suite *GroupRepoTestSuite) TestGetByID_NormalizesSecondBasedTimestamps() {
	// an older writer stored seconds in ends_on and last_subscription_paid_at
	endsOnSeconds := int64(1752576000)
	paidAtSeconds := int64(1750000000)
	now := time.Now()
	group := &models.Group{
		ID:                     suite.groupID,
		Name:                   "Legacy",
		Visibility:             models.VisibilityPrivate,
		BillingCadence:         models.CadenceMonthly,
		Price:                  decimal.RequireFromString("10"),
		OwnerID:                suite.ownerID,
		EndsOn:                 &endsOnSeconds,
		LastSubscriptionPaidAt: &paidAtSeconds,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	suite.mock.ExpectQuery(groupColumnsPattern + ` FROM groups WHERE id = \$1`).
		WithArgs(suite.groupID).
		WillReturnRows(suite.groupRow(group))

	result, err := suite.repo.GetByID(suite.context, suite.groupID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1752576000000), *result.EndsOn)
	assert.Equal(suite.T(), int64(1750000000000), *result.LastSubscriptionPaidAt)
}

func (suite *GroupRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(groupColumnsPattern + ` FROM groups WHERE id = \$1`).
		WithArgs(suite.groupID).
		WillReturnError(pgx.ErrNoRows)

	result, err := suite.repo.GetByID(suite.context, suite.groupID)
	assert.ErrorIs(suite.T(), err, models.ErrGroupNotFound)
	assert.Nil(suite.T(), result)
}

func (suite *GroupRepoTestSuite) TestUpdateSettings_Success() {
	group := &models.Group{
		ID:             suite.groupID,
		Name:           "Renamed",
		Visibility:     models.VisibilityPublic,
		BillingCadence: models.CadenceFree,
		Price:          decimal.Zero,
	}

	suite.mock.ExpectExec(`
		UPDATE groups
		SET name = \$1, visibility = \$2, billing_cadence = \$3, price = \$4, updated_at = NOW\(\)
		WHERE id = \$5
	`).WithArgs(group.Name, group.Visibility, group.BillingCadence, group.Price, group.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateSettings(suite.context, group)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestSetSubscriptionID_Success() {
	courseID := "1750000000000654321"

	suite.mock.ExpectExec(`UPDATE groups SET subscription_id = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(courseID, suite.groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.SetSubscriptionID(suite.context, suite.groupID, courseID)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestUpdateSubscription_Success() {
	endsOn := int64(1755168000000)
	paidAt := int64(1752576000000)
	txHash := "0xrenewal"

	suite.mock.ExpectExec(`
		UPDATE groups
		SET ends_on = \$1, last_subscription_paid_at = \$2, last_subscription_tx_hash = \$3, updated_at = NOW\(\)
		WHERE id = \$4
	`).WithArgs(endsOn, paidAt, &txHash, suite.groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateSubscription(suite.context, suite.groupID, endsOn, paidAt, &txHash)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestAdjustMemberNumber_Increment() {
	suite.mock.ExpectExec(`UPDATE groups SET member_number = GREATEST\(member_number \+ \$1, 0\), updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(1, suite.groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.AdjustMemberNumber(suite.context, suite.groupID, 1)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestAdjustMemberNumber_Decrement() {
	suite.mock.ExpectExec(`UPDATE groups SET member_number = GREATEST\(member_number \+ \$1, 0\), updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(-1, suite.groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.AdjustMemberNumber(suite.context, suite.groupID, -1)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestSetMemberNumber_Success() {
	suite.mock.ExpectExec(`UPDATE groups SET member_number = GREATEST\(\$1, 0\), updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(7, suite.groupID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.SetMemberNumber(suite.context, suite.groupID, 7)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestDelete_Success() {
	suite.mock.ExpectExec(`DELETE FROM groups WHERE id = \$1`).
		WithArgs(suite.groupID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := suite.repo.Delete(suite.context, suite.groupID)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestDelete_MissingRowIsNoop() {
	suite.mock.ExpectExec(`DELETE FROM groups WHERE id = \$1`).
		WithArgs(suite.groupID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := suite.repo.Delete(suite.context, suite.groupID)
	assert.NoError(suite.T(), err)
}

func (suite *GroupRepoTestSuite) TestListMonthly_Success() {
	limit, offset := 100, 0
	now := time.Now()
	endsOnA := int64(1752576000000)
	endsOnB := int64(1755168000000)

	rows := pgxmock.NewRows(groupColumnNames).
		AddRow(uuid.New(), "Group A", models.VisibilityPrivate, models.CadenceMonthly,
			decimal.RequireFromString("10"), suite.ownerID, 3, (*string)(nil), &endsOnA,
			(*int64)(nil), (*string)(nil), now, now).
		AddRow(uuid.New(), "Group B", models.VisibilityPrivate, models.CadenceMonthly,
			decimal.RequireFromString("25"), suite.ownerID, 9, (*string)(nil), &endsOnB,
			(*int64)(nil), (*string)(nil), now, now)

	suite.mock.ExpectQuery(groupColumnsPattern + `
		FROM groups
		WHERE billing_cadence = 'monthly'
		ORDER BY ends_on ASC NULLS LAST
		LIMIT \$1 OFFSET \$2
	`).WithArgs(limit, offset).
		WillReturnRows(rows)

	result, err := suite.repo.ListMonthly(suite.context, limit, offset)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), result, 2)
	assert.Equal(suite.T(), "Group A", result[0].Name)
	assert.Equal(suite.T(), endsOnB, *result[1].EndsOn)
}

func (suite *GroupRepoTestSuite) TestListMonthly_EmptyResult() {
	suite.mock.ExpectQuery(groupColumnsPattern + `
		FROM groups
		WHERE billing_cadence = 'monthly'
	`).WithArgs(100, 200).
		WillReturnRows(pgxmock.NewRows(groupColumnNames))

	result, err := suite.repo.ListMonthly(suite.context, 100, 200)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), result)
}
