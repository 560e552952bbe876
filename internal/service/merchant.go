package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository"
	"gridlease-backend/internal/security"
)

type merchantService struct {
	merchants repository.MerchantRepository
	payments  repository.PaymentLogRepository
	tokens    security.TokenManager
	logger    *slog.Logger
}

func NewMerchantService(
	merchants repository.MerchantRepository,
	payments repository.PaymentLogRepository,
	tokens security.TokenManager,
) MerchantService {
	return &merchantService{
		merchants: merchants,
		payments:  payments,
		tokens:    tokens,
		logger:    logger.WithService("merchant"),
	}
}

// Register creates a merchant and returns the full API key. This is the
// only time the key is available in clear; afterwards only its bcrypt hash
// exists.
func (s *merchantService) Register(ctx context.Context, name, email, wallet string) (*domain.Merchant, string, error) {
	if name == "" || email == "" || wallet == "" {
		return nil, "", fmt.Errorf("name, email and wallet address are required")
	}

	key, keyID, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	merchant := &domain.Merchant{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		WalletAddress: wallet,
		APIKeyID:      keyID,
		APIKeyHash:    keyHash,
		IsActive:      true,
	}
	if err := s.merchants.Create(ctx, merchant); err != nil {
		return nil, "", fmt.Errorf("failed to create merchant: %w", err)
	}

	s.logger.Info("Merchant registered", "merchant_id", merchant.ID, "name", name)
	return merchant, key, nil
}

func (s *merchantService) Authenticate(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	keyID, secret, ok := security.SplitAPIKey(apiKey)
	if !ok {
		return nil, domain.ErrInvalidAPIKey
	}
	merchant, err := s.merchants.GetByAPIKeyID(ctx, keyID)
	if err != nil {
		return nil, domain.ErrInvalidAPIKey
	}
	if !merchant.IsActive {
		return nil, domain.ErrInvalidAPIKey
	}
	if !security.CompareAPIKey(merchant.APIKeyHash, secret) {
		return nil, domain.ErrInvalidAPIKey
	}
	return merchant, nil
}

func (s *merchantService) Login(ctx context.Context, apiKey string) (string, *domain.Merchant, error) {
	merchant, err := s.Authenticate(ctx, apiKey)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.GenerateAccessToken(merchant.ID, merchant.WalletAddress)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, merchant, nil
}

// RegenerateAPIKey replaces the merchant's key; the old one stops working
// immediately.
func (s *merchantService) RegenerateAPIKey(ctx context.Context, merchantID string) (string, error) {
	if _, err := s.merchants.GetByID(ctx, merchantID); err != nil {
		return "", err
	}
	key, keyID, keyHash, err := security.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.merchants.UpdateAPIKey(ctx, merchantID, keyID, keyHash); err != nil {
		return "", err
	}
	s.logger.Info("Merchant API key regenerated", "merchant_id", merchantID)
	return key, nil
}

func (s *merchantService) Deactivate(ctx context.Context, merchantID string) error {
	if err := s.merchants.SetActive(ctx, merchantID, false); err != nil {
		return err
	}
	s.logger.Info("Merchant deactivated", "merchant_id", merchantID)
	return nil
}

// EarningsReport sums the merchant's successful redemptions in 6-decimal
// fixed point over an optional time window.
func (s *merchantService) EarningsReport(ctx context.Context, merchantID string, from, to *time.Time) (*domain.EarningsReport, error) {
	payments, err := s.payments.ListByMerchant(ctx, merchantID, from, to)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, p := range payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			s.logger.Warn("Skipping unparseable payment amount",
				"payment_id", p.ID, "amount", p.Amount)
			continue
		}
		total = total.Add(amount)
	}

	return &domain.EarningsReport{
		TotalEarnings: total.StringFixed(6),
		PaymentCount:  len(payments),
		Payments:      payments,
	}, nil
}
