package domain

import "time"

// PaymentRequirement is the "402" offer: a pure projection of an asset's
// price at offer time. It carries no state; if the price changes between
// offer and redemption, redemption fails, not the offer.
type PaymentRequirement struct {
	Cost    string `json:"cost"`
	Payee   string `json:"payee"`
	Network string `json:"network"`
	Unit    string `json:"unit"`
	AssetID string `json:"asset_id"`
}

// PaymentPayload is the signed message embedded in a payment authorization.
// Amount and payer are trusted only from here, never from transport-level
// claims.
type PaymentPayload struct {
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Payer     string `json:"payer"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Network   string `json:"network,omitempty"`
}

// PaymentAuthorization is the client-submitted single-use proof: the raw
// signed message plus its signature and the claimed signer.
type PaymentAuthorization struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Payer     string `json:"payer"`
}

// PaymentLog is an append-only audit record of every redemption attempt.
// The unique signature column doubles as the replay guard.
type PaymentLog struct {
	ID          int64     `json:"id"`
	Signature   string    `json:"signature"`
	Amount      string    `json:"amount"`
	PayerWallet string    `json:"payer_wallet"`
	AssetID     string    `json:"asset_id"`
	LeaseToken  *string   `json:"lease_token,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EarningsReport aggregates a merchant's successful redemptions.
type EarningsReport struct {
	TotalEarnings string       `json:"total_earnings"`
	PaymentCount  int          `json:"payment_count"`
	Payments      []PaymentLog `json:"payments"`
}
