package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/utils"
)

// authorizationScheme prefixes the payment header value. The rest of the
// header is base64url-encoded JSON matching domain.PaymentAuthorization.
const authorizationScheme = "PAY2"

// maxClockSkew tolerates authorizations timestamped slightly in the future
// by a fast client clock.
const maxClockSkew = time.Minute

type paymentService struct {
	payments repository.PaymentLogRepository
	verifier security.SignatureVerifier
	network  string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewPaymentService(
	payments repository.PaymentLogRepository,
	verifier security.SignatureVerifier,
	network string,
	timeoutSeconds int,
) PaymentService {
	return &paymentService{
		payments: payments,
		verifier: verifier,
		network:  network,
		timeout:  time.Duration(timeoutSeconds) * time.Second,
		logger:   logger.WithService("payment"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BuildChallenge projects an asset's current price into a payment offer.
// The offer carries no server state; a later redemption is checked against
// the price current at redemption time, not at offer time.
func (s *paymentService) BuildChallenge(asset *domain.Asset) domain.PaymentRequirement {
	return domain.PaymentRequirement{
		Cost:    asset.PricePerUnit,
		Payee:   asset.MerchantWallet,
		Network: s.network,
		Unit:    string(asset.Unit),
		AssetID: asset.ID,
	}
}

// ParseAuthorizationHeader decodes a "PAY2 <base64url json>" header value.
func (s *paymentService) ParseAuthorizationHeader(header string) (domain.PaymentAuthorization, error) {
	var auth domain.PaymentAuthorization

	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || parts[0] != authorizationScheme {
		return auth, fmt.Errorf("%w: expected %q scheme", domain.ErrInvalidSignature, authorizationScheme)
	}

	raw, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(parts[1])
	}
	if err != nil {
		return auth, fmt.Errorf("%w: malformed header encoding", domain.ErrInvalidSignature)
	}

	if err := json.Unmarshal(raw, &auth); err != nil {
		return auth, fmt.Errorf("%w: malformed authorization payload", domain.ErrInvalidSignature)
	}
	return auth, nil
}

// VerifyAndRedeem checks a payment authorization end to end and burns its
// signature. Amount and payer are read only from the signed message; the
// transport-level payer claim, when present, must agree with it.
func (s *paymentService) VerifyAndRedeem(ctx context.Context, auth domain.PaymentAuthorization, expectedAsset *domain.Asset) (*Redemption, error) {
	if auth.Message == "" || auth.Signature == "" {
		return nil, fmt.Errorf("%w: missing message or signature", domain.ErrInvalidSignature)
	}

	var payload domain.PaymentPayload
	if err := json.Unmarshal([]byte(auth.Message), &payload); err != nil {
		return nil, fmt.Errorf("%w: message is not a payment payload", domain.ErrInvalidSignature)
	}
	if payload.Payer == "" {
		return nil, fmt.Errorf("%w: payload names no payer", domain.ErrInvalidSignature)
	}
	if auth.Payer != "" && auth.Payer != payload.Payer {
		return nil, fmt.Errorf("%w: claimed payer does not match signed payer", domain.ErrInvalidSignature)
	}

	sig, err := base64.StdEncoding.DecodeString(auth.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature encoding", domain.ErrInvalidSignature)
	}
	if !s.verifier.Verify([]byte(auth.Message), sig, payload.Payer) {
		return nil, domain.ErrInvalidSignature
	}

	if payload.AssetID != expectedAsset.ID {
		return nil, fmt.Errorf("%w: authorization is bound to a different asset", domain.ErrInvalidSignature)
	}

	now := s.now()
	issued := time.UnixMilli(payload.Timestamp)
	if now.Sub(issued) > s.timeout || issued.After(now.Add(maxClockSkew)) {
		return nil, domain.ErrStaleAuthorization
	}

	if payload.Price != "" {
		signedPrice, err := utils.ParsePrice(payload.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable signed price", domain.ErrInvalidSignature)
		}
		currentPrice, err := utils.ParsePrice(expectedAsset.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("invalid asset price: %w", err)
		}
		if !signedPrice.Equal(currentPrice) {
			// The merchant repriced between offer and redemption.
			return nil, domain.ErrStaleAuthorization
		}
	}

	if _, err := utils.ParsePrice(payload.Amount); err != nil {
		return nil, fmt.Errorf("invalid payment amount: %w", err)
	}

	exists, err := s.payments.ExistsBySignature(ctx, auth.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to check replay: %w", err)
	}
	if exists {
		return nil, domain.ErrReplayedAuthorization
	}

	// The unique signature column makes this insert the atomic redeem
	// point; a concurrent redeem of the same signature loses here.
	record := &domain.PaymentLog{
		Signature:   auth.Signature,
		Amount:      payload.Amount,
		PayerWallet: payload.Payer,
		AssetID:     expectedAsset.ID,
		Success:     true,
		Timestamp:   now,
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Payment redeemed",
		"asset_id", expectedAsset.ID,
		"payer", payload.Payer,
		"amount", payload.Amount)
	return &Redemption{
		Amount:    payload.Amount,
		Payer:     payload.Payer,
		Signature: auth.Signature,
	}, nil
}

func (s *paymentService) AttachLease(ctx context.Context, signature, leaseToken string) error {
	return s.payments.SetLeaseToken(ctx, signature, leaseToken)
}
