package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Visibility is the resolved access mode of a group.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Cadence is the resolved billing cadence of a group.
type Cadence string

const (
	CadenceFree    Cadence = "free"
	CadenceMonthly Cadence = "monthly"
)

type Group struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	Name                   string          `json:"name" db:"name"`
	Visibility             Visibility      `json:"visibility" db:"visibility"`
	BillingCadence         Cadence         `json:"billing_cadence" db:"billing_cadence"`
	Price                  decimal.Decimal `json:"price" db:"price"`
	OwnerID                uuid.UUID       `json:"owner_id" db:"owner_id"`
	MemberNumber           int             `json:"member_number" db:"member_number"`
	SubscriptionID         *string         `json:"subscription_id" db:"subscription_id"`
	EndsOn                 *int64          `json:"ends_on" db:"ends_on"`
	LastSubscriptionPaidAt *int64          `json:"last_subscription_paid_at" db:"last_subscription_paid_at"`
	LastSubscriptionTxHash *string         `json:"last_subscription_tx_hash" db:"last_subscription_tx_hash"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether joining the group requires payment proof.
func (g *Group) IsPaid() bool {
	return g.Price.IsPositive()
}

// GroupSettings carries the owner-editable fields for create and update.
type GroupSettings struct {
	Name       string           `json:"name"`
	Visibility string           `json:"visibility"`
	Cadence    string           `json:"billing_cadence"`
	Price      decimal.Decimal  `json:"price"`
	Admins     []AdminShareSpec `json:"admins,omitempty"`
}

// AdminShareSpec is one requested administrator revenue share, as submitted
// by the owner. ShareBps may be fractional before rounding.
type AdminShareSpec struct {
	WalletAddress string  `json:"wallet_address"`
	ShareBps      float64 `json:"share_bps"`
}
