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

type merchantRepository struct {
	db *sql.DB
}

func NewMerchantRepository(db *sql.DB) repository.MerchantRepository {
	return &merchantRepository{db: db}
}

const merchantColumns = `id, name, email, wallet_address, api_key_id, api_key_hash, is_active, created_at, updated_at`

func scanMerchant(row interface{ Scan(...any) error }) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.WalletAddress, &m.APIKeyID, &m.APIKeyHash, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *merchantRepository) Create(ctx context.Context, m *domain.Merchant) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `INSERT INTO merchants (id, name, email, wallet_address, api_key_id, api_key_hash, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.Name, m.Email, m.WalletAddress, m.APIKeyID, m.APIKeyHash, m.IsActive, time.Now(), time.Now())
	return err
}

func (r *merchantRepository) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	m, err := scanMerchant(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMerchantNotFound
	}
	return m, err
}

func (r *merchantRepository) GetByAPIKeyID(ctx context.Context, keyID string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE api_key_id = $1`
	m, err := scanMerchant(r.db.QueryRowContext(ctx, query, keyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMerchantNotFound
	}
	return m, err
}

func (r *merchantRepository) UpdateAPIKey(ctx context.Context, id, keyID, keyHash string) error {
	query := `UPDATE merchants SET api_key_id = $1, api_key_hash = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, keyID, keyHash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMerchantNotFound
	}
	return nil
}

func (r *merchantRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE merchants SET is_active = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMerchantNotFound
	}
	return nil
}
