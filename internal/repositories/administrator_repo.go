package repositories

import (
	"context"

	"coursepass/internal/models"

	"github.com/google/uuid"
)

type AdministratorRepository interface {
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Administrator, error)
	Upsert(ctx context.Context, admin *models.Administrator) error
	Delete(ctx context.Context, groupID, adminID uuid.UUID) error
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) error
	IsAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
}

type administratorRepo struct {
	db Database
}

func NewAdministratorRepo(db Database) AdministratorRepository {
	return &administratorRepo{db: db}
}

func (r *administratorRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Administrator, error) {
	query := `
		SELECT group_id, admin_id, share_bps, created_at
		FROM group_admins
		WHERE group_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []*models.Administrator
	for rows.Next() {
		admin := &models.Administrator{}
		if err := rows.Scan(&admin.GroupID, &admin.AdminID, &admin.ShareBps, &admin.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (r *administratorRepo) Upsert(ctx context.Context, admin *models.Administrator) error {
	query := `
		INSERT INTO group_admins (group_id, admin_id, share_bps, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (group_id, admin_id) DO UPDATE SET share_bps = EXCLUDED.share_bps
	`
	_, err := r.db.Exec(ctx, query, admin.GroupID, admin.AdminID, admin.ShareBps)
	return err
}

func (r *administratorRepo) Delete(ctx context.Context, groupID, adminID uuid.UUID) error {
	query := `DELETE FROM group_admins WHERE group_id = $1 AND admin_id = $2`
	_, err := r.db.Exec(ctx, query, groupID, adminID)
	return err
}

func (r *administratorRepo) DeleteByGroup(ctx context.Context, groupID uuid.UUID) error {
	query := `DELETE FROM group_admins WHERE group_id = $1`
	_, err := r.db.Exec(ctx, query, groupID)
	return err
}

func (r *administratorRepo) IsAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM group_admins WHERE group_id = $1 AND admin_id = $2)`
	if err := r.db.QueryRow(ctx, query, groupID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
