package models

import (
	"time"

	"github.com/google/uuid"
)

// Administrator is one revenue-share row for a group. The owner is never
// stored as an administrator; the owner share is the residual to 10000 bps.
type Administrator struct {
	GroupID   uuid.UUID `json:"group_id" db:"group_id"`
	AdminID   uuid.UUID `json:"admin_id" db:"admin_id"`
	ShareBps  int       `json:"share_bps" db:"share_bps"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
