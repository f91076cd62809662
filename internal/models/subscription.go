package models

// SubscriptionStatus is the derived billing view over a group's subscription
// fields. It is computed, never stored.
type SubscriptionStatus struct {
	EndsOn        *int64  `json:"ends_on"`
	LastPaidAt    *int64  `json:"last_paid_at"`
	TxHash        *string `json:"tx_hash,omitempty"`
	IsExpired     bool    `json:"is_expired"`
	IsRenewalDue  bool    `json:"is_renewal_due"`
	DaysRemaining *int    `json:"days_remaining"`
}

// ViewerAccess is the per-surface access computed for a (group, viewer) pair.
// About is always visible; the rest require public visibility, membership, or
// ownership.
type ViewerAccess struct {
	About     bool `json:"about"`
	Feed      bool `json:"feed"`
	Classroom bool `json:"classroom"`
	Members   bool `json:"members"`
}

// GroupView is the combined read-only view returned by the viewer endpoint.
type GroupView struct {
	Group           *Group              `json:"group"`
	IsOwner         bool                `json:"is_owner"`
	IsAdministrator bool                `json:"is_administrator"`
	IsMember        bool                `json:"is_member"`
	Access          ViewerAccess        `json:"access"`
	Membership      *Membership         `json:"membership,omitempty"`
	Administrators  []*Administrator    `json:"administrators"`
	Subscription    *SubscriptionStatus `json:"subscription,omitempty"`
}
