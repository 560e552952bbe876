package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/repository"
)

type leaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) repository.LeaseRepository {
	return &leaseRepository{db: db}
}

const leaseColumns = `token, asset_id, payer_wallet, amount_paid, started_at, expires_at, is_extended, created_at`

func scanLease(row interface{ Scan(...any) error }) (*domain.Lease, error) {
	l := &domain.Lease{}
	err := row.Scan(&l.Token, &l.AssetID, &l.PayerWallet, &l.AmountPaid, &l.StartedAt, &l.ExpiresAt, &l.IsExtended, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *leaseRepository) Create(ctx context.Context, l *domain.Lease) error {
	query := `INSERT INTO leases (token, asset_id, payer_wallet, amount_paid, started_at, expires_at, is_extended, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, l.Token, l.AssetID, l.PayerWallet, l.AmountPaid, l.StartedAt, l.ExpiresAt, l.IsExtended, time.Now())
	return err
}

func (r *leaseRepository) GetByToken(ctx context.Context, token string) (*domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases WHERE token = $1`
	l, err := scanLease(r.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeaseNotFound
	}
	return l, err
}

func (r *leaseRepository) GetActiveByAsset(ctx context.Context, assetID string, now time.Time) (*domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases
	          WHERE asset_id = $1 AND expires_at > $2
	          ORDER BY created_at DESC LIMIT 1`
	l, err := scanLease(r.db.QueryRowContext(ctx, query, assetID, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeaseNotFound
	}
	return l, err
}

func (r *leaseRepository) Delete(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leases WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *leaseRepository) UpdateExpiry(ctx context.Context, token string, expiresAt time.Time, isExtended bool) error {
	query := `UPDATE leases SET expires_at = $1, is_extended = $2 WHERE token = $3`
	res, err := r.db.ExecContext(ctx, query, expiresAt, isExtended, token)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrLeaseNotFound
	}
	return nil
}

func (r *leaseRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Lease, error) {
	query := `SELECT ` + leaseColumns + ` FROM leases WHERE expires_at <= $1`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}
