package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/events"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/repository"
	"gridlease-backend/internal/utils"
)

// leaseService owns the lease lifecycle: creation after payment, expiry
// timers, extension, and the reconcile sweep. The database row is the
// durable source of truth; the timer map only makes expiry prompt.
type leaseService struct {
	assets    repository.AssetRepository
	leases    repository.LeaseRepository
	merchants repository.MerchantRepository
	payment   PaymentService
	publisher events.Publisher
	email     EmailService
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewLeaseService(
	assets repository.AssetRepository,
	leases repository.LeaseRepository,
	merchants repository.MerchantRepository,
	payment PaymentService,
	publisher events.Publisher,
	email EmailService,
) LeaseService {
	return &leaseService{
		assets:    assets,
		leases:    leases,
		merchants: merchants,
		payment:   payment,
		publisher: publisher,
		email:     email,
		logger:    logger.WithService("lease"),
		timers:    make(map[string]*time.Timer),
	}
}

// CreateLease converts a verified payment into exclusive access. The lease
// row is written first, then TryOccupy decides the race; the loser's row is
// rolled back and the caller gets ErrAssetUnavailable.
func (s *leaseService) CreateLease(ctx context.Context, assetID, amountPaid, payer string) (*domain.Lease, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status != domain.AssetStatusAvailable {
		return nil, domain.ErrAssetUnavailable
	}

	duration, err := utils.DurationForAmount(amountPaid, asset.PricePerUnit, asset.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute lease duration: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("payment of %s buys no lease time", amountPaid)
	}

	now := time.Now().UTC()
	lease := &domain.Lease{
		Token:       "lease_" + uuid.NewString(),
		AssetID:     asset.ID,
		PayerWallet: payer,
		AmountPaid:  amountPaid,
		StartedAt:   now,
		ExpiresAt:   now.Add(duration),
		CreatedAt:   now,
	}
	if err := s.leases.Create(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to persist lease: %w", err)
	}

	occupied, err := s.assets.TryOccupy(ctx, asset.ID, lease.Token)
	if err != nil {
		s.rollbackLease(ctx, lease.Token)
		return nil, fmt.Errorf("failed to occupy asset: %w", err)
	}
	if !occupied {
		// Another payer won the asset between status check and occupy.
		s.rollbackLease(ctx, lease.Token)
		return nil, domain.ErrAssetUnavailable
	}

	s.scheduleExpiry(lease.Token, duration)
	s.notifyLeaseCreated(asset, lease)

	s.logger.Info("Lease created",
		"lease_token", lease.Token,
		"asset_id", asset.ID,
		"payer", payer,
		"amount", amountPaid,
		"expires_at", lease.ExpiresAt)
	return lease, nil
}

// ExtendLease verifies an additional payment and pushes the expiry forward
// by the time that payment buys at the asset's current price.
func (s *leaseService) ExtendLease(ctx context.Context, token string, auth domain.PaymentAuthorization) (*domain.Lease, error) {
	lease, err := s.leases.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if !lease.Active(now) {
		go s.expire(token)
		return nil, domain.ErrLeaseExpired
	}

	asset, err := s.assets.GetByID(ctx, lease.AssetID)
	if err != nil {
		return nil, err
	}

	redemption, err := s.payment.VerifyAndRedeem(ctx, auth, asset)
	if err != nil {
		return nil, err
	}

	additional, err := utils.DurationForAmount(redemption.Amount, asset.PricePerUnit, asset.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute extension duration: %w", err)
	}
	if additional <= 0 {
		return nil, fmt.Errorf("payment of %s buys no lease time", redemption.Amount)
	}

	newExpiry := lease.ExpiresAt.Add(additional)
	if err := s.leases.UpdateExpiry(ctx, token, newExpiry, true); err != nil {
		return nil, err
	}
	if err := s.payment.AttachLease(ctx, redemption.Signature, token); err != nil {
		s.logger.Warn("Failed to attach lease token to payment record",
			"lease_token", token, "error", err)
	}

	lease.ExpiresAt = newExpiry
	lease.IsExtended = true
	s.scheduleExpiry(token, newExpiry.Sub(now))

	s.logger.Info("Lease extended",
		"lease_token", token,
		"amount", redemption.Amount,
		"expires_at", newExpiry)
	return lease, nil
}

// ExpireLease tears a lease down: cancel the timer, delete the lease row,
// and release the asset. Deleting the row decides the race; the timer
// callback, the reconcile sweep, and lazy read-path checks can all call
// this on the same token, but only the caller whose delete took effect
// touches the registry or publishes.
func (s *leaseService) ExpireLease(ctx context.Context, token string) error {
	s.cancelTimer(token)

	lease, err := s.leases.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrLeaseNotFound) {
			return nil
		}
		return err
	}

	deleted, err := s.leases.Delete(ctx, token)
	if err != nil {
		return err
	}
	if !deleted {
		// A concurrent expiry got here first; it owns the teardown.
		return nil
	}

	// The release is pinned to this token, so even a crash between the
	// delete and here only strands the asset OCCUPIED until the read-path
	// self-heal releases it.
	if err := s.assets.Release(ctx, lease.AssetID, token); err != nil {
		return fmt.Errorf("failed to release asset %s: %w", lease.AssetID, err)
	}

	s.publisher.Publish(events.Event{
		Kind:            events.KindLeaseExpired,
		RequesterWallet: lease.PayerWallet,
		Timestamp:       time.Now().UTC(),
		Message:         "Your lease has expired and the asset was reclaimed",
		LeaseToken:      token,
	})
	if s.email != nil {
		if asset, err := s.assets.GetByID(ctx, lease.AssetID); err == nil {
			s.notifyLeaseExpired(asset)
		}
	}

	s.logger.Info("Lease expired", "lease_token", token, "asset_id", lease.AssetID)
	return nil
}

func (s *leaseService) GetLease(ctx context.Context, token string) (*domain.Lease, error) {
	lease, err := s.leases.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !lease.Active(time.Now().UTC()) {
		// Read paths trust the clock over the timer.
		if err := s.ExpireLease(ctx, token); err != nil {
			s.logger.Warn("Lazy expiry failed", "lease_token", token, "error", err)
		}
		return nil, domain.ErrLeaseExpired
	}
	return lease, nil
}

func (s *leaseService) GetActiveLease(ctx context.Context, assetID string) (*domain.Lease, error) {
	return s.leases.GetActiveByAsset(ctx, assetID, time.Now().UTC())
}

// ReconcileExpired sweeps leases whose expiry passed while no timer fired,
// which happens after a restart or a missed callback.
func (s *leaseService) ReconcileExpired(ctx context.Context) (int, error) {
	expired, err := s.leases.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, lease := range expired {
		if err := s.ExpireLease(ctx, lease.Token); err != nil {
			s.logger.Error("Failed to reconcile expired lease",
				"lease_token", lease.Token, "error", err)
			continue
		}
		count++
	}
	if count > 0 {
		s.logger.Info("Reconciled expired leases", "count", count)
	}
	return count, nil
}

// Shutdown stops all pending expiry timers. Leases stay intact; the next
// startup reconcile picks up anything that expired in the meantime.
func (s *leaseService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, timer := range s.timers {
		timer.Stop()
		delete(s.timers, token)
	}
}

func (s *leaseService) scheduleExpiry(token string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[token]; ok {
		existing.Stop()
	}
	s.timers[token] = time.AfterFunc(d, func() {
		s.expire(token)
	})
}

func (s *leaseService) expire(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.ExpireLease(ctx, token); err != nil {
		s.logger.Error("Timer expiry failed", "lease_token", token, "error", err)
	}
}

func (s *leaseService) cancelTimer(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[token]; ok {
		timer.Stop()
		delete(s.timers, token)
	}
}

func (s *leaseService) rollbackLease(ctx context.Context, token string) {
	if _, err := s.leases.Delete(ctx, token); err != nil {
		s.logger.Error("Failed to roll back lease", "lease_token", token, "error", err)
	}
}

func (s *leaseService) notifyLeaseCreated(asset *domain.Asset, lease *domain.Lease) {
	if s.email == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		merchant, err := s.merchants.GetByID(ctx, asset.MerchantID)
		if err != nil {
			s.logger.Warn("Merchant lookup for notification failed",
				"merchant_id", asset.MerchantID, "error", err)
			return
		}
		if err := s.email.SendLeaseCreatedNotification(ctx, merchant.Email, asset.Name, lease.PayerWallet, lease.ExpiresAt); err != nil {
			s.logger.Warn("Lease notification failed", "error", err)
		}
	}()
}

func (s *leaseService) notifyLeaseExpired(asset *domain.Asset) {
	if s.email == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		merchant, err := s.merchants.GetByID(ctx, asset.MerchantID)
		if err != nil {
			return
		}
		if err := s.email.SendLeaseExpiredNotification(ctx, merchant.Email, asset.Name); err != nil {
			s.logger.Warn("Expiry notification failed", "error", err)
		}
	}()
}
