package repositories

import (
	"context"
	"errors"
	"time"

	"coursepass/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	GetByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*models.Membership, error)
	MarkActive(ctx context.Context, id uuid.UUID, joinedAt time.Time, passExpiresAt *int64) error
	MarkLeft(ctx context.Context, id uuid.UUID, leftAt time.Time, passExpiresAt *int64) error
	CountActive(ctx context.Context, groupID uuid.UUID) (int, error)
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) error
}

type membershipRepo struct {
	db Database
}

func NewMembershipRepo(db Database) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, group_id, user_id, status, joined_at, left_at, pass_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, membership.ID, membership.GroupID, membership.UserID,
		membership.Status, membership.JoinedAt, membership.LeftAt, membership.PassExpiresAt)
	return err
}

func (r *membershipRepo) GetByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) (*models.Membership, error) {
	membership := &models.Membership{}
	query := `
		SELECT id, group_id, user_id, status, joined_at, left_at, pass_expires_at, created_at, updated_at
		FROM memberships
		WHERE group_id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, groupID, userID).Scan(&membership.ID, &membership.GroupID,
		&membership.UserID, &membership.Status, &membership.JoinedAt, &membership.LeftAt,
		&membership.PassExpiresAt, &membership.CreatedAt, &membership.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMembershipNotFound
		}
		return nil, err
	}
	membership.PassExpiresAt = models.NormalizeEpochMillisPtr(membership.PassExpiresAt)
	return membership, nil
}

// MarkActive flips a membership to active, refreshing joined_at and clearing
// left_at, in a single statement.
func (r *membershipRepo) MarkActive(ctx context.Context, id uuid.UUID, joinedAt time.Time, passExpiresAt *int64) error {
	query := `
		UPDATE memberships
		SET status = 'active', joined_at = $1, left_at = NULL, pass_expires_at = COALESCE($2, pass_expires_at), updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, joinedAt, passExpiresAt, id)
	return err
}

// MarkLeft flips a membership to left, optionally snapshotting the last known
// pass expiry for future rejoin decisions.
func (r *membershipRepo) MarkLeft(ctx context.Context, id uuid.UUID, leftAt time.Time, passExpiresAt *int64) error {
	query := `
		UPDATE memberships
		SET status = 'left', left_at = $1, pass_expires_at = COALESCE($2, pass_expires_at), updated_at = NOW()
		WHERE id = $3
	`
	_, err := r.db.Exec(ctx, query, leftAt, passExpiresAt, id)
	return err
}

func (r *membershipRepo) CountActive(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM memberships WHERE group_id = $1 AND status = 'active'`
	if err := r.db.QueryRow(ctx, query, groupID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *membershipRepo) DeleteByGroup(ctx context.Context, groupID uuid.UUID) error {
	query := `DELETE FROM memberships WHERE group_id = $1`
	_, err := r.db.Exec(ctx, query, groupID)
	return err
}
