package repository

import (
	"context"
	"time"

	"gridlease-backend/internal/domain"
)

// AssetRepository is the asset registry's storage contract. TryOccupy and
// Release are atomic conditional updates at the store, never
// read-modify-write pairs in application code.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context) ([]domain.Asset, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Asset, error)
	UpdatePrice(ctx context.Context, id, pricePerUnit string, unit domain.BillingUnit) error

	// FindQualifying returns AVAILABLE assets of the given type priced at
	// or under maxUnitPrice, cheapest first, creation order breaking ties.
	FindQualifying(ctx context.Context, assetType domain.AssetType, maxUnitPrice string) ([]domain.Asset, error)

	// TryOccupy flips AVAILABLE to OCCUPIED and records the lease token.
	// Exactly one of several racing callers wins; the rest get false.
	TryOccupy(ctx context.Context, assetID, leaseToken string) (bool, error)

	// Release flips the asset back to AVAILABLE only while it is still
	// held by leaseToken. A stale caller whose lease has been superseded
	// matches no row, so a newer lease is never released out from under
	// its holder.
	Release(ctx context.Context, assetID, leaseToken string) error
}

type IntentRepository interface {
	Create(ctx context.Context, intent *domain.Intent) error
	GetByID(ctx context.Context, id string) (*domain.Intent, error)
	ListUnresolved(ctx context.Context) ([]domain.Intent, error)

	// SetCandidate moves UNRESOLVED to CANDIDATE_SELECTED; returns false
	// if the intent was no longer unresolved.
	SetCandidate(ctx context.Context, intentID, assetID string) (bool, error)

	// ClearCandidate moves CANDIDATE_SELECTED back to UNRESOLVED and
	// drops the asset reference; returns false if no candidate was held.
	ClearCandidate(ctx context.Context, intentID string) (bool, error)

	// MarkFulfilled moves CANDIDATE_SELECTED to FULFILLED and stores the
	// lease token; returns false if the intent was not awaiting payment.
	MarkFulfilled(ctx context.Context, intentID, leaseToken string) (bool, error)

	Cancel(ctx context.Context, intentID string) error
}

type LeaseRepository interface {
	Create(ctx context.Context, lease *domain.Lease) error
	GetByToken(ctx context.Context, token string) (*domain.Lease, error)

	// GetActiveByAsset returns the unique lease with expiresAt > now for
	// the asset, or ErrLeaseNotFound.
	GetActiveByAsset(ctx context.Context, assetID string, now time.Time) (*domain.Lease, error)

	// Delete removes the lease record; returns false if it was already
	// gone, which keeps expiry idempotent.
	Delete(ctx context.Context, token string) (bool, error)

	UpdateExpiry(ctx context.Context, token string, expiresAt time.Time, isExtended bool) error

	// ListExpired returns leases whose expiresAt has passed, for the
	// startup/periodic reconcile sweep.
	ListExpired(ctx context.Context, now time.Time) ([]domain.Lease, error)
}

type PaymentLogRepository interface {
	// Create appends a redemption record. A duplicate signature returns
	// domain.ErrReplayedAuthorization.
	Create(ctx context.Context, log *domain.PaymentLog) error
	ExistsBySignature(ctx context.Context, signature string) (bool, error)
	SetLeaseToken(ctx context.Context, signature, leaseToken string) error
	ListByMerchant(ctx context.Context, merchantID string, from, to *time.Time) ([]domain.PaymentLog, error)
}

type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id string) (*domain.Merchant, error)
	GetByAPIKeyID(ctx context.Context, keyID string) (*domain.Merchant, error)
	UpdateAPIKey(ctx context.Context, id, keyID, keyHash string) error
	SetActive(ctx context.Context, id string, active bool) error
}
