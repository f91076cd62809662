package repositories

import (
	"context"
	"errors"

	"coursepass/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	UpdateSettings(ctx context.Context, group *models.Group) error
	SetSubscriptionID(ctx context.Context, id uuid.UUID, subscriptionID string) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, endsOn, paidAt int64, txHash *string) error
	AdjustMemberNumber(ctx context.Context, id uuid.UUID, delta int) error
	SetMemberNumber(ctx context.Context, id uuid.UUID, count int) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListMonthly(ctx context.Context, limit, offset int) ([]*models.Group, error)
}

type groupRepo struct {
	db Database
}

func NewGroupRepo(db Database) GroupRepository {
	return &groupRepo{db: db}
}

const groupColumns = `id, name, visibility, billing_cadence, price, owner_id, member_number,
		subscription_id, ends_on, last_subscription_paid_at, last_subscription_tx_hash,
		created_at, updated_at`

func (r *groupRepo) scanGroup(row pgx.Row) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(&group.ID, &group.Name, &group.Visibility, &group.BillingCadence, &group.Price,
		&group.OwnerID, &group.MemberNumber, &group.SubscriptionID, &group.EndsOn,
		&group.LastSubscriptionPaidAt, &group.LastSubscriptionTxHash, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrGroupNotFound
		}
		return nil, err
	}
	// older writers stored seconds in these columns
	group.EndsOn = models.NormalizeEpochMillisPtr(group.EndsOn)
	group.LastSubscriptionPaidAt = models.NormalizeEpochMillisPtr(group.LastSubscriptionPaidAt)
	return group, nil
}

func (r *groupRepo) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (id, name, visibility, billing_cadence, price, owner_id, member_number, subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, group.ID, group.Name, group.Visibility, group.BillingCadence,
		group.Price, group.OwnerID, group.MemberNumber, group.SubscriptionID)
	return err
}

func (r *groupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	return r.scanGroup(r.db.QueryRow(ctx, query, id))
}

func (r *groupRepo) UpdateSettings(ctx context.Context, group *models.Group) error {
	query := `
		UPDATE groups
		SET name = $1, visibility = $2, billing_cadence = $3, price = $4, updated_at = NOW()
		WHERE id = $5
	`
	_, err := r.db.Exec(ctx, query, group.Name, group.Visibility, group.BillingCadence, group.Price, group.ID)
	return err
}

func (r *groupRepo) SetSubscriptionID(ctx context.Context, id uuid.UUID, subscriptionID string) error {
	query := `UPDATE groups SET subscription_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, subscriptionID, id)
	return err
}

func (r *groupRepo) UpdateSubscription(ctx context.Context, id uuid.UUID, endsOn, paidAt int64, txHash *string) error {
	query := `
		UPDATE groups
		SET ends_on = $1, last_subscription_paid_at = $2, last_subscription_tx_hash = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, endsOn, paidAt, txHash, id)
	return err
}

// AdjustMemberNumber applies the counter delta in one statement, floored at
// zero on the database side so a retried decrement can never go negative.
func (r *groupRepo) AdjustMemberNumber(ctx context.Context, id uuid.UUID, delta int) error {
	query := `UPDATE groups SET member_number = GREATEST(member_number + $1, 0), updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, delta, id)
	return err
}

// SetMemberNumber overwrites the counter during retry reconciliation, when
// the observed membership count and the stored counter have drifted apart.
func (r *groupRepo) SetMemberNumber(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE groups SET member_number = GREATEST($1, 0), updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, count, id)
	return err
}

func (r *groupRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM groups WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *groupRepo) ListMonthly(ctx context.Context, limit, offset int) ([]*models.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE billing_cadence = 'monthly'
		ORDER BY ends_on ASC NULLS LAST
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.Visibility, &group.BillingCadence, &group.Price,
			&group.OwnerID, &group.MemberNumber, &group.SubscriptionID, &group.EndsOn,
			&group.LastSubscriptionPaidAt, &group.LastSubscriptionTxHash, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, err
		}
		group.EndsOn = models.NormalizeEpochMillisPtr(group.EndsOn)
		group.LastSubscriptionPaidAt = models.NormalizeEpochMillisPtr(group.LastSubscriptionPaidAt)
		groups = append(groups, group)
	}
	return groups, rows.Err()
}
