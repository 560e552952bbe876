package domain

import "errors"

// Matching-phase errors are swallowed into events; payment- and
// extension-phase errors are returned synchronously to the caller.
var (
	ErrParseFailure          = errors.New("could not understand request")
	ErrNoQualifyingAsset     = errors.New("no qualifying asset available")
	ErrAssetNotFound         = errors.New("asset not found")
	ErrAssetUnavailable      = errors.New("asset is not available")
	ErrIntentNotFound        = errors.New("intent not found")
	ErrNoCandidateSelected   = errors.New("intent has no selected asset")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrStaleAuthorization    = errors.New("authorization timestamp too old")
	ErrReplayedAuthorization = errors.New("authorization already redeemed")
	ErrLeaseNotFound         = errors.New("lease not found")
	ErrLeaseExpired          = errors.New("lease already expired")
	ErrMerchantNotFound      = errors.New("merchant not found")
	ErrInvalidAPIKey         = errors.New("invalid API key")
)
