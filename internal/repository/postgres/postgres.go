package postgres

import (
	"database/sql"

	"gridlease-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.AssetRepository
	repository.IntentRepository
	repository.LeaseRepository
	repository.PaymentLogRepository
	repository.MerchantRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                   db,
		AssetRepository:      NewAssetRepository(db),
		IntentRepository:     NewIntentRepository(db),
		LeaseRepository:      NewLeaseRepository(db),
		PaymentLogRepository: NewPaymentLogRepository(db),
		MerchantRepository:   NewMerchantRepository(db),
	}
}
