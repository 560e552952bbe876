package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/security"
)

func newMerchantFixture() (*MockMerchantRepo, *MockPaymentLogRepo, MerchantService) {
	merchants := new(MockMerchantRepo)
	payments := new(MockPaymentLogRepo)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", 60)
	return merchants, payments, NewMerchantService(merchants, payments, tokens)
}

func TestMerchantRegisterAndAuthenticate(t *testing.T) {
	merchants, _, svc := newMerchantFixture()

	var stored *domain.Merchant
	merchants.On("Create", mock.Anything, mock.AnythingOfType("*domain.Merchant")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Merchant) }).
		Return(nil)

	merchant, apiKey, err := svc.Register(context.Background(), "Acme Compute", "ops@acme.test", "acme-wallet")
	assert.NoError(t, err)
	assert.NotEmpty(t, apiKey)
	assert.True(t, merchant.IsActive)
	// Only the key ID and hash are stored, never the secret.
	assert.NotContains(t, apiKey, stored.APIKeyHash)

	merchants.On("GetByAPIKeyID", mock.Anything, stored.APIKeyID).Return(stored, nil)

	got, err := svc.Authenticate(context.Background(), apiKey)
	assert.NoError(t, err)
	assert.Equal(t, merchant.ID, got.ID)
}

func TestMerchantAuthenticateRejections(t *testing.T) {
	t.Run("MalformedKey", func(t *testing.T) {
		_, _, svc := newMerchantFixture()
		_, err := svc.Authenticate(context.Background(), "not-a-key")
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("UnknownKeyID", func(t *testing.T) {
		merchants, _, svc := newMerchantFixture()
		merchants.On("GetByAPIKeyID", mock.Anything, "missing").
			Return(nil, domain.ErrMerchantNotFound)

		_, err := svc.Authenticate(context.Background(), "glk_missing_secret")
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})

	t.Run("DeactivatedMerchant", func(t *testing.T) {
		merchants, _, svc := newMerchantFixture()
		merchants.On("GetByAPIKeyID", mock.Anything, "keyid").
			Return(&domain.Merchant{ID: "m1", APIKeyID: "keyid", IsActive: false}, nil)

		_, err := svc.Authenticate(context.Background(), "glk_keyid_secret")
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	})
}

func TestEarningsReport(t *testing.T) {
	_, payments, svc := newMerchantFixture()
	now := time.Now().UTC()
	payments.On("ListByMerchant", mock.Anything, "m1", (*time.Time)(nil), (*time.Time)(nil)).
		Return([]domain.PaymentLog{
			{ID: 1, Amount: "3.000000", Timestamp: now},
			{ID: 2, Amount: "1.250000", Timestamp: now},
			{ID: 3, Amount: "not-a-number", Timestamp: now},
		}, nil)

	report, err := svc.EarningsReport(context.Background(), "m1", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "4.250000", report.TotalEarnings)
	assert.Equal(t, 3, report.PaymentCount)
}
