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

type intentRepository struct {
	db *sql.DB
}

func NewIntentRepository(db *sql.DB) repository.IntentRepository {
	return &intentRepository{db: db}
}

const intentColumns = `id, requester_wallet, asset_type, asset_name, duration_minutes, max_price_per_unit, action, selected_asset_id, lease_token, status, created_at, updated_at`

func scanIntent(row interface{ Scan(...any) error }) (*domain.Intent, error) {
	i := &domain.Intent{}
	err := row.Scan(&i.ID, &i.RequesterWallet, &i.AssetType, &i.AssetName, &i.DurationMinutes, &i.MaxPricePerUnit, &i.Action, &i.SelectedAssetID, &i.LeaseToken, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *intentRepository) Create(ctx context.Context, i *domain.Intent) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = domain.IntentStatusUnresolved
	}
	query := `INSERT INTO intents (id, requester_wallet, asset_type, asset_name, duration_minutes, max_price_per_unit, action, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, i.ID, i.RequesterWallet, i.AssetType, i.AssetName, i.DurationMinutes, i.MaxPricePerUnit, i.Action, i.Status, time.Now(), time.Now())
	return err
}

func (r *intentRepository) GetByID(ctx context.Context, id string) (*domain.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM intents WHERE id = $1`
	i, err := scanIntent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIntentNotFound
	}
	return i, err
}

// ListUnresolved excludes intents holding a candidate, so an intent in
// CANDIDATE_SELECTED is never re-scanned until reset.
func (r *intentRepository) ListUnresolved(ctx context.Context) ([]domain.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM intents WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, domain.IntentStatusUnresolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.Intent
	for rows.Next() {
		i, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *i)
	}
	return intents, rows.Err()
}

func (r *intentRepository) SetCandidate(ctx context.Context, intentID, assetID string) (bool, error) {
	query := `UPDATE intents SET status = $1, selected_asset_id = $2, updated_at = $3
	          WHERE id = $4 AND status = $5`
	return r.conditionalUpdate(ctx, query, domain.IntentStatusCandidateSelected, assetID, time.Now(), intentID, domain.IntentStatusUnresolved)
}

func (r *intentRepository) ClearCandidate(ctx context.Context, intentID string) (bool, error) {
	query := `UPDATE intents SET status = $1, selected_asset_id = NULL, updated_at = $2
	          WHERE id = $3 AND status = $4`
	return r.conditionalUpdate(ctx, query, domain.IntentStatusUnresolved, time.Now(), intentID, domain.IntentStatusCandidateSelected)
}

func (r *intentRepository) MarkFulfilled(ctx context.Context, intentID, leaseToken string) (bool, error) {
	query := `UPDATE intents SET status = $1, lease_token = $2, updated_at = $3
	          WHERE id = $4 AND status = $5`
	return r.conditionalUpdate(ctx, query, domain.IntentStatusFulfilled, leaseToken, time.Now(), intentID, domain.IntentStatusCandidateSelected)
}

func (r *intentRepository) Cancel(ctx context.Context, intentID string) error {
	query := `UPDATE intents SET status = $1, selected_asset_id = NULL, updated_at = $2
	          WHERE id = $3 AND status NOT IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, domain.IntentStatusCancelled, time.Now(), intentID, domain.IntentStatusFulfilled, domain.IntentStatusCancelled)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrIntentNotFound
	}
	return nil
}

func (r *intentRepository) conditionalUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
