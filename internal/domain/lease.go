package domain

import "time"

// Lease is a time-bounded, paid-for grant of exclusive access to one asset.
// ExpiresAt is the durable fact; in-memory expiry timers are an optimization
// and every read path double-checks ExpiresAt against the clock.
type Lease struct {
	Token       string    `json:"token"`
	AssetID     string    `json:"asset_id"`
	PayerWallet string    `json:"payer_wallet"`
	AmountPaid  string    `json:"amount_paid"`
	StartedAt   time.Time `json:"started_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsExtended  bool      `json:"is_extended"`
	CreatedAt   time.Time `json:"created_at"`
}

func (l *Lease) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
