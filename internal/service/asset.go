package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository"
	"gridlease-backend/internal/utils"
)

type assetService struct {
	assets    repository.AssetRepository
	merchants repository.MerchantRepository
	leases    LeaseService
	logger    *slog.Logger
}

func NewAssetService(
	assets repository.AssetRepository,
	merchants repository.MerchantRepository,
	leases LeaseService,
) AssetService {
	return &assetService{
		assets:    assets,
		merchants: merchants,
		leases:    leases,
		logger:    logger.WithService("asset"),
	}
}

func (s *assetService) CreateAsset(ctx context.Context, merchantID string, asset *domain.Asset) error {
	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		return err
	}
	if asset.Name == "" {
		return fmt.Errorf("asset name is required")
	}
	if err := validateAssetType(asset.Type); err != nil {
		return err
	}
	if err := validateBillingUnit(asset.Unit); err != nil {
		return err
	}
	if _, err := utils.ParsePrice(asset.PricePerUnit); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}

	asset.MerchantID = merchant.ID
	asset.MerchantWallet = merchant.WalletAddress
	asset.Status = domain.AssetStatusAvailable
	asset.CurrentLease = nil

	if err := s.assets.Create(ctx, asset); err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	s.logger.Info("Asset listed",
		"asset_id", asset.ID,
		"merchant_id", merchant.ID,
		"type", asset.Type,
		"price_per_unit", asset.PricePerUnit,
		"unit", asset.Unit)
	return nil
}

// GetAsset returns the asset together with its active lease, if any. An
// OCCUPIED asset whose lease turns out to be gone or past expiry is healed
// on the spot before returning.
func (s *assetService) GetAsset(ctx context.Context, id string) (*domain.Asset, *domain.Lease, error) {
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if asset.Status != domain.AssetStatusOccupied || asset.CurrentLease == nil {
		return asset, nil, nil
	}

	lease, err := s.leases.GetLease(ctx, *asset.CurrentLease)
	switch {
	case err == nil:
		return asset, lease, nil
	case errors.Is(err, domain.ErrLeaseExpired):
		// GetLease already tore the lease down.
	case errors.Is(err, domain.ErrLeaseNotFound):
		// Occupied asset with no lease row; release it directly.
		s.logger.Warn("Occupied asset has no lease record, releasing",
			"asset_id", asset.ID, "lease_token", *asset.CurrentLease)
		if relErr := s.assets.Release(ctx, asset.ID, *asset.CurrentLease); relErr != nil {
			return nil, nil, relErr
		}
	default:
		return nil, nil, err
	}

	healed, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return healed, nil, nil
}

func (s *assetService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.assets.List(ctx)
}

func (s *assetService) ListMerchantAssets(ctx context.Context, merchantID string) ([]domain.Asset, error) {
	return s.assets.ListByMerchant(ctx, merchantID)
}

// UpdatePrice reprices an asset. Ownership is checked first; a foreign
// asset looks like a missing one so listings are not probeable.
func (s *assetService) UpdatePrice(ctx context.Context, merchantID, assetID, pricePerUnit string, unit domain.BillingUnit) error {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.MerchantID != merchantID {
		return domain.ErrAssetNotFound
	}
	if err := validateBillingUnit(unit); err != nil {
		return err
	}
	if _, err := utils.ParsePrice(pricePerUnit); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}

	if err := s.assets.UpdatePrice(ctx, assetID, pricePerUnit, unit); err != nil {
		return err
	}
	s.logger.Info("Asset repriced",
		"asset_id", assetID,
		"price_per_unit", pricePerUnit,
		"unit", unit,
		"at", time.Now().UTC())
	return nil
}

func validateAssetType(t domain.AssetType) error {
	switch t {
	case domain.AssetTypeGPU, domain.AssetTypeCPU, domain.AssetTypePrinter, domain.AssetTypeIoT:
		return nil
	}
	return fmt.Errorf("unknown asset type %q", t)
}

func validateBillingUnit(u domain.BillingUnit) error {
	switch u {
	case domain.BillingUnitMinute, domain.BillingUnitHour, domain.BillingUnitDay, domain.BillingUnitSession:
		return nil
	}
	return fmt.Errorf("unknown billing unit %q", u)
}
