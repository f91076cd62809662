package models

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipActive MembershipStatus = "active"
	MembershipLeft   MembershipStatus = "left"
)

// Membership is the one-per-user-per-group record tracking join/leave state.
type Membership struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	GroupID       uuid.UUID        `json:"group_id" db:"group_id"`
	UserID        uuid.UUID        `json:"user_id" db:"user_id"`
	Status        MembershipStatus `json:"status" db:"status"`
	JoinedAt      *time.Time       `json:"joined_at" db:"joined_at"`
	LeftAt        *time.Time       `json:"left_at" db:"left_at"`
	PassExpiresAt *int64           `json:"pass_expires_at" db:"pass_expires_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// JoinStatus is the outcome reported by the join workflow.
type JoinStatus string

const (
	JoinStatusOwner         JoinStatus = "owner"
	JoinStatusAlreadyMember JoinStatus = "already_member"
	JoinStatusJoined        JoinStatus = "joined"
)

// LeaveStatus is the outcome reported by the leave workflow.
type LeaveStatus string

const (
	LeaveStatusNotMember LeaveStatus = "not_member"
	LeaveStatusLeft      LeaveStatus = "left"
)

// JoinProof is the payment evidence accepted by the join workflow for paid
// groups: either a confirmed payment transaction or an attestation that the
// caller already holds an active on-chain pass.
type JoinProof struct {
	TxHash        *string `json:"tx_hash,omitempty"`
	HasActivePass bool    `json:"has_active_pass,omitempty"`
	PassExpiresAt *int64  `json:"pass_expires_at,omitempty"`
}

// Present reports whether any form of proof was supplied.
func (p JoinProof) Present() bool {
	return (p.TxHash != nil && *p.TxHash != "") || p.HasActivePass
}
