package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/repository"
)

type assetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) repository.AssetRepository {
	return &assetRepository{db: db}
}

const assetColumns = `id, merchant_id, name, type, price_per_unit, unit, status, merchant_wallet, current_lease, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (*domain.Asset, error) {
	a := &domain.Asset{}
	err := row.Scan(&a.ID, &a.MerchantID, &a.Name, &a.Type, &a.PricePerUnit, &a.Unit, &a.Status, &a.MerchantWallet, &a.CurrentLease, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.AssetStatusAvailable
	}
	query := `INSERT INTO assets (id, merchant_id, name, type, price_per_unit, unit, status, merchant_wallet, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.MerchantID, a.Name, a.Type, a.PricePerUnit, a.Unit, a.Status, a.MerchantWallet, time.Now(), time.Now())
	return err
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	return a, err
}

func (r *assetRepository) List(ctx context.Context) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at DESC`
	return r.queryAssets(ctx, query)
}

func (r *assetRepository) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE merchant_id = $1 ORDER BY created_at DESC`
	return r.queryAssets(ctx, query, merchantID)
}

func (r *assetRepository) UpdatePrice(ctx context.Context, id, pricePerUnit string, unit domain.BillingUnit) error {
	query := `UPDATE assets SET price_per_unit = $1, unit = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, pricePerUnit, unit, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

// FindQualifying orders by price ascending with creation order breaking
// ties, so greedy cheapest-first selection stays deterministic.
func (r *assetRepository) FindQualifying(ctx context.Context, assetType domain.AssetType, maxUnitPrice string) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets
	          WHERE status = $1 AND type = $2 AND price_per_unit <= $3::numeric
	          ORDER BY price_per_unit ASC, created_at ASC`
	return r.queryAssets(ctx, query, domain.AssetStatusAvailable, assetType, maxUnitPrice)
}

// TryOccupy is a compare-and-set: the WHERE clause only matches an
// AVAILABLE row, so concurrent callers racing for one asset see exactly
// one rows-affected of 1.
func (r *assetRepository) TryOccupy(ctx context.Context, assetID, leaseToken string) (bool, error) {
	query := `UPDATE assets SET status = $1, current_lease = $2, updated_at = $3
	          WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, domain.AssetStatusOccupied, leaseToken, time.Now(), assetID, domain.AssetStatusAvailable)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Release is the inverse CAS of TryOccupy: the WHERE clause pins the row
// to the lease being torn down, so a late expiry of an old lease cannot
// free an asset a newer lease has since occupied.
func (r *assetRepository) Release(ctx context.Context, assetID, leaseToken string) error {
	query := `UPDATE assets SET status = $1, current_lease = NULL, updated_at = $2
	          WHERE id = $3 AND current_lease = $4`
	_, err := r.db.ExecContext(ctx, query, domain.AssetStatusAvailable, time.Now(), assetID, leaseToken)
	return err
}

func (r *assetRepository) queryAssets(ctx context.Context, query string, args ...any) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}
