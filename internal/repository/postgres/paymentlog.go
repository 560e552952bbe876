package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/repository"
)

type paymentLogRepository struct {
	db *sql.DB
}

func NewPaymentLogRepository(db *sql.DB) repository.PaymentLogRepository {
	return &paymentLogRepository{db: db}
}

const uniqueViolation = "23505"

// Create appends a redemption record. The unique index on signature is the
// replay guard: a second insert of the same signature maps to
// ErrReplayedAuthorization.
func (r *paymentLogRepository) Create(ctx context.Context, l *domain.PaymentLog) error {
	query := `INSERT INTO payment_logs (signature, amount, payer_wallet, asset_id, lease_token, success, error, timestamp)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, l.Signature, l.Amount, l.PayerWallet, l.AssetID, l.LeaseToken, l.Success, l.Error, time.Now()).Scan(&l.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrReplayedAuthorization
		}
		return err
	}
	return nil
}

func (r *paymentLogRepository) ExistsBySignature(ctx context.Context, signature string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM payment_logs WHERE signature = $1`
	if err := r.db.QueryRowContext(ctx, query, signature).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *paymentLogRepository) SetLeaseToken(ctx context.Context, signature, leaseToken string) error {
	query := `UPDATE payment_logs SET lease_token = $1 WHERE signature = $2`
	_, err := r.db.ExecContext(ctx, query, leaseToken, signature)
	return err
}

func (r *paymentLogRepository) ListByMerchant(ctx context.Context, merchantID string, from, to *time.Time) ([]domain.PaymentLog, error) {
	query := `SELECT p.id, p.signature, p.amount, p.payer_wallet, p.asset_id, p.lease_token, p.success, p.error, p.timestamp
	          FROM payment_logs p JOIN assets a ON a.id = p.asset_id
	          WHERE a.merchant_id = $1 AND p.success = true`
	args := []any{merchantID}
	if from != nil && to != nil {
		query += ` AND p.timestamp BETWEEN $2 AND $3`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY p.timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.PaymentLog
	for rows.Next() {
		var l domain.PaymentLog
		if err := rows.Scan(&l.ID, &l.Signature, &l.Amount, &l.PayerWallet, &l.AssetID, &l.LeaseToken, &l.Success, &l.Error, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
