package chain

import "github.com/shopspring/decimal"

// CourseConfig is the on-chain course configuration, read-only to this
// service after registration.
type CourseConfig struct {
	CourseID         string          `json:"course_id"`
	PriceUSDC        decimal.Decimal `json:"price_usdc"`
	Duration         int64           `json:"duration"`          // seconds
	TransferCooldown int64           `json:"transfer_cooldown"` // seconds
	Splitter         string          `json:"splitter"`
	Creator          string          `json:"creator"`
	Recipients       []string        `json:"recipients"`
	SharesBps        []int           `json:"shares_bps"`
}

// PassState is the per-holder pass view. Timestamps are normalized to epoch
// milliseconds at the decode boundary.
type PassState struct {
	ExpiresAt      int64 `json:"expires_at"`
	CooldownEndsAt int64 `json:"cooldown_ends_at"`
}

// TransferStatus is the canTransfer read: whether the holder's pass is
// currently transferable and, if not, when it becomes so.
type TransferStatus struct {
	Eligible    bool  `json:"eligible"`
	AvailableAt int64 `json:"available_at"`
	ExpiresAt   int64 `json:"expires_at"`
}

// Listing is one secondary-market offer. ExpiresAt == 0 means no expiry.
type Listing struct {
	Seller    string          `json:"seller"`
	PriceUSDC decimal.Decimal `json:"price_usdc"`
	ListedAt  int64           `json:"listed_at"`
	ExpiresAt int64           `json:"expires_at"`
	Active    bool            `json:"active"`
}

// ReceiptStatus is the confirmation state of a submitted transaction.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptFailed    ReceiptStatus = "failed"
)

// Receipt is the confirmation record of a submitted transaction.
type Receipt struct {
	TxHash      string        `json:"tx_hash"`
	Status      ReceiptStatus `json:"status"`
	BlockNumber int64         `json:"block_number"`
}

// RegisterCourseParams carries the one-time course registration call. The
// treasury address and platform fee are baked into the splitter at
// registration; all subsequent fee math happens on-chain.
type RegisterCourseParams struct {
	CourseID         string          `json:"course_id"`
	PriceUSDC        decimal.Decimal `json:"price_usdc"`
	Recipients       []string        `json:"recipients"`
	SharesBps        []int           `json:"shares_bps"`
	Duration         int64           `json:"duration"`
	TransferCooldown int64           `json:"transfer_cooldown"`
	Treasury         string          `json:"treasury"`
	PlatformFeeBps   int             `json:"platform_fee_bps"`
}
