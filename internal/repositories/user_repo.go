package repositories

import (
	"context"
	"errors"

	"coursepass/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, wallet_address, display_name, guest, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (wallet_address) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.WalletAddress, user.DisplayName, user.Guest)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, wallet_address, display_name, guest, created_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.WalletAddress, &user.DisplayName, &user.Guest, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, wallet_address, display_name, guest, created_at FROM users WHERE wallet_address = $1`
	err := r.db.QueryRow(ctx, query, walletAddress).Scan(&user.ID, &user.WalletAddress, &user.DisplayName, &user.Guest, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
