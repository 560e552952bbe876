package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/events"
)

type MockAssetRepo struct {
	mock.Mock
}

func (m *MockAssetRepo) Create(ctx context.Context, asset *domain.Asset) error {
	return m.Called(ctx, asset).Error(0)
}

func (m *MockAssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepo) List(ctx context.Context) ([]domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *MockAssetRepo) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Asset, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *MockAssetRepo) UpdatePrice(ctx context.Context, id, pricePerUnit string, unit domain.BillingUnit) error {
	return m.Called(ctx, id, pricePerUnit, unit).Error(0)
}

func (m *MockAssetRepo) FindQualifying(ctx context.Context, assetType domain.AssetType, maxUnitPrice string) ([]domain.Asset, error) {
	args := m.Called(ctx, assetType, maxUnitPrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *MockAssetRepo) TryOccupy(ctx context.Context, assetID, leaseToken string) (bool, error) {
	args := m.Called(ctx, assetID, leaseToken)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetRepo) Release(ctx context.Context, assetID, leaseToken string) error {
	return m.Called(ctx, assetID, leaseToken).Error(0)
}

type MockIntentRepo struct {
	mock.Mock
}

func (m *MockIntentRepo) Create(ctx context.Context, intent *domain.Intent) error {
	return m.Called(ctx, intent).Error(0)
}

func (m *MockIntentRepo) GetByID(ctx context.Context, id string) (*domain.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Intent), args.Error(1)
}

func (m *MockIntentRepo) ListUnresolved(ctx context.Context) ([]domain.Intent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Intent), args.Error(1)
}

func (m *MockIntentRepo) SetCandidate(ctx context.Context, intentID, assetID string) (bool, error) {
	args := m.Called(ctx, intentID, assetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIntentRepo) ClearCandidate(ctx context.Context, intentID string) (bool, error) {
	args := m.Called(ctx, intentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIntentRepo) MarkFulfilled(ctx context.Context, intentID, leaseToken string) (bool, error) {
	args := m.Called(ctx, intentID, leaseToken)
	return args.Bool(0), args.Error(1)
}

func (m *MockIntentRepo) Cancel(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

type MockLeaseRepo struct {
	mock.Mock
}

func (m *MockLeaseRepo) Create(ctx context.Context, lease *domain.Lease) error {
	return m.Called(ctx, lease).Error(0)
}

func (m *MockLeaseRepo) GetByToken(ctx context.Context, token string) (*domain.Lease, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *MockLeaseRepo) GetActiveByAsset(ctx context.Context, assetID string, now time.Time) (*domain.Lease, error) {
	args := m.Called(ctx, assetID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *MockLeaseRepo) Delete(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeaseRepo) UpdateExpiry(ctx context.Context, token string, expiresAt time.Time, isExtended bool) error {
	return m.Called(ctx, token, expiresAt, isExtended).Error(0)
}

func (m *MockLeaseRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Lease, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lease), args.Error(1)
}

type MockPaymentLogRepo struct {
	mock.Mock
}

func (m *MockPaymentLogRepo) Create(ctx context.Context, log *domain.PaymentLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockPaymentLogRepo) ExistsBySignature(ctx context.Context, signature string) (bool, error) {
	args := m.Called(ctx, signature)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentLogRepo) SetLeaseToken(ctx context.Context, signature, leaseToken string) error {
	return m.Called(ctx, signature, leaseToken).Error(0)
}

func (m *MockPaymentLogRepo) ListByMerchant(ctx context.Context, merchantID string, from, to *time.Time) ([]domain.PaymentLog, error) {
	args := m.Called(ctx, merchantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentLog), args.Error(1)
}

type MockMerchantRepo struct {
	mock.Mock
}

func (m *MockMerchantRepo) Create(ctx context.Context, merchant *domain.Merchant) error {
	return m.Called(ctx, merchant).Error(0)
}

func (m *MockMerchantRepo) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *MockMerchantRepo) GetByAPIKeyID(ctx context.Context, keyID string) (*domain.Merchant, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *MockMerchantRepo) UpdateAPIKey(ctx context.Context, id, keyID, keyHash string) error {
	return m.Called(ctx, id, keyID, keyHash).Error(0)
}

func (m *MockMerchantRepo) SetActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(ctx context.Context, freeText, requesterWallet string) (*domain.ParsedIntent, error) {
	args := m.Called(ctx, freeText, requesterWallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParsedIntent), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) BuildChallenge(asset *domain.Asset) domain.PaymentRequirement {
	return m.Called(asset).Get(0).(domain.PaymentRequirement)
}

func (m *MockPaymentService) ParseAuthorizationHeader(header string) (domain.PaymentAuthorization, error) {
	args := m.Called(header)
	return args.Get(0).(domain.PaymentAuthorization), args.Error(1)
}

func (m *MockPaymentService) VerifyAndRedeem(ctx context.Context, auth domain.PaymentAuthorization, expectedAsset *domain.Asset) (*Redemption, error) {
	args := m.Called(ctx, auth, expectedAsset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Redemption), args.Error(1)
}

func (m *MockPaymentService) AttachLease(ctx context.Context, signature, leaseToken string) error {
	return m.Called(ctx, signature, leaseToken).Error(0)
}

// capturePublisher records published events for assertions. Safe for use
// from the async scan goroutine.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func (p *capturePublisher) last() (events.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return events.Event{}, false
	}
	return p.events[len(p.events)-1], true
}
