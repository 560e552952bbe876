package service

import (
	"context"
	"time"

	"gridlease-backend/internal/domain"
)

// IntentParser is the external natural-language oracle. Its internals are
// out of scope; it either returns a structured intent or fails.
type IntentParser interface {
	Parse(ctx context.Context, freeText, requesterWallet string) (*domain.ParsedIntent, error)
}

type AssetService interface {
	CreateAsset(ctx context.Context, merchantID string, asset *domain.Asset) error
	GetAsset(ctx context.Context, id string) (*domain.Asset, *domain.Lease, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListMerchantAssets(ctx context.Context, merchantID string) ([]domain.Asset, error)
	UpdatePrice(ctx context.Context, merchantID, assetID, pricePerUnit string, unit domain.BillingUnit) error
}

type LeaseService interface {
	CreateLease(ctx context.Context, assetID, amountPaid, payer string) (*domain.Lease, error)
	ExtendLease(ctx context.Context, token string, auth domain.PaymentAuthorization) (*domain.Lease, error)
	// ExpireLease is idempotent: expiring a lease that is already gone
	// returns silently.
	ExpireLease(ctx context.Context, token string) error
	GetLease(ctx context.Context, token string) (*domain.Lease, error)
	GetActiveLease(ctx context.Context, assetID string) (*domain.Lease, error)
	// ReconcileExpired expires every lease whose expiry has already
	// passed; run at startup and on a periodic schedule so lost timers
	// self-heal.
	ReconcileExpired(ctx context.Context) (int, error)
	Shutdown()
}

// IntentStatus is the polling projection of an intent's progress.
type IntentStatus struct {
	Intent        *domain.Intent `json:"intent"`
	SelectedAsset *domain.Asset  `json:"selected_asset,omitempty"`
	TotalCost     string         `json:"total_cost,omitempty"`
}

type MatchingService interface {
	CreateIntent(ctx context.Context, requesterWallet, message, signature string) (*domain.Intent, *domain.ParsedIntent, error)
	GetIntentStatus(ctx context.Context, intentID string) (*IntentStatus, error)
	Scan(ctx context.Context)
	AcceptAndPay(ctx context.Context, intentID string, auth domain.PaymentAuthorization) (*domain.Lease, error)
	Reject(ctx context.Context, intentID string) error
	Cancel(ctx context.Context, intentID string) error
}

// Redemption is the verified outcome of a payment authorization. Amount
// and payer come from the signed payload only.
type Redemption struct {
	Amount    string
	Payer     string
	Signature string
}

type PaymentService interface {
	BuildChallenge(asset *domain.Asset) domain.PaymentRequirement
	ParseAuthorizationHeader(header string) (domain.PaymentAuthorization, error)
	VerifyAndRedeem(ctx context.Context, auth domain.PaymentAuthorization, expectedAsset *domain.Asset) (*Redemption, error)
	AttachLease(ctx context.Context, signature, leaseToken string) error
}

type MerchantService interface {
	Register(ctx context.Context, name, email, wallet string) (*domain.Merchant, string, error)
	Authenticate(ctx context.Context, apiKey string) (*domain.Merchant, error)
	Login(ctx context.Context, apiKey string) (string, *domain.Merchant, error)
	RegenerateAPIKey(ctx context.Context, merchantID string) (string, error)
	Deactivate(ctx context.Context, merchantID string) error
	EarningsReport(ctx context.Context, merchantID string, from, to *time.Time) (*domain.EarningsReport, error)
}

type EmailService interface {
	SendLeaseCreatedNotification(ctx context.Context, email, assetName, payer string, expiresAt time.Time) error
	SendLeaseExpiredNotification(ctx context.Context, email, assetName string) error
}
