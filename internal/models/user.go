package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a wallet-backed identity. Guest rows are created on first sight of
// an unknown wallet address (revenue-share allocation, joins).
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	WalletAddress string    `json:"wallet_address" db:"wallet_address"`
	DisplayName   *string   `json:"display_name" db:"display_name"`
	Guest         bool      `json:"guest" db:"guest"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
