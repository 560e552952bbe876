package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/service"
)

type mockMatching struct{ mock.Mock }

func (m *mockMatching) CreateIntent(ctx context.Context, wallet, message, signature string) (*domain.Intent, *domain.ParsedIntent, error) {
	args := m.Called(ctx, wallet, message, signature)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Intent), args.Get(1).(*domain.ParsedIntent), args.Error(2)
}

func (m *mockMatching) GetIntentStatus(ctx context.Context, intentID string) (*service.IntentStatus, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IntentStatus), args.Error(1)
}

func (m *mockMatching) Scan(ctx context.Context) { m.Called(ctx) }

func (m *mockMatching) AcceptAndPay(ctx context.Context, intentID string, auth domain.PaymentAuthorization) (*domain.Lease, error) {
	args := m.Called(ctx, intentID, auth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *mockMatching) Reject(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

func (m *mockMatching) Cancel(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

type mockAssets struct{ mock.Mock }

func (m *mockAssets) CreateAsset(ctx context.Context, merchantID string, asset *domain.Asset) error {
	return m.Called(ctx, merchantID, asset).Error(0)
}

func (m *mockAssets) GetAsset(ctx context.Context, id string) (*domain.Asset, *domain.Lease, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	lease, _ := args.Get(1).(*domain.Lease)
	return args.Get(0).(*domain.Asset), lease, args.Error(2)
}

func (m *mockAssets) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *mockAssets) ListMerchantAssets(ctx context.Context, merchantID string) ([]domain.Asset, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *mockAssets) UpdatePrice(ctx context.Context, merchantID, assetID, pricePerUnit string, unit domain.BillingUnit) error {
	return m.Called(ctx, merchantID, assetID, pricePerUnit, unit).Error(0)
}

type mockLeases struct{ mock.Mock }

func (m *mockLeases) CreateLease(ctx context.Context, assetID, amountPaid, payer string) (*domain.Lease, error) {
	args := m.Called(ctx, assetID, amountPaid, payer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *mockLeases) ExtendLease(ctx context.Context, token string, auth domain.PaymentAuthorization) (*domain.Lease, error) {
	args := m.Called(ctx, token, auth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *mockLeases) ExpireLease(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockLeases) GetLease(ctx context.Context, token string) (*domain.Lease, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *mockLeases) GetActiveLease(ctx context.Context, assetID string) (*domain.Lease, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *mockLeases) ReconcileExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockLeases) Shutdown() { m.Called() }

type mockPayment struct{ mock.Mock }

func (m *mockPayment) BuildChallenge(asset *domain.Asset) domain.PaymentRequirement {
	return m.Called(asset).Get(0).(domain.PaymentRequirement)
}

func (m *mockPayment) ParseAuthorizationHeader(header string) (domain.PaymentAuthorization, error) {
	args := m.Called(header)
	return args.Get(0).(domain.PaymentAuthorization), args.Error(1)
}

func (m *mockPayment) VerifyAndRedeem(ctx context.Context, auth domain.PaymentAuthorization, asset *domain.Asset) (*service.Redemption, error) {
	args := m.Called(ctx, auth, asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Redemption), args.Error(1)
}

func (m *mockPayment) AttachLease(ctx context.Context, signature, leaseToken string) error {
	return m.Called(ctx, signature, leaseToken).Error(0)
}

type mockMerchants struct{ mock.Mock }

func (m *mockMerchants) Register(ctx context.Context, name, email, wallet string) (*domain.Merchant, string, error) {
	args := m.Called(ctx, name, email, wallet)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Merchant), args.String(1), args.Error(2)
}

func (m *mockMerchants) Authenticate(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *mockMerchants) Login(ctx context.Context, apiKey string) (string, *domain.Merchant, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.Merchant), args.Error(2)
}

func (m *mockMerchants) RegenerateAPIKey(ctx context.Context, merchantID string) (string, error) {
	args := m.Called(ctx, merchantID)
	return args.String(0), args.Error(1)
}

func (m *mockMerchants) Deactivate(ctx context.Context, merchantID string) error {
	return m.Called(ctx, merchantID).Error(0)
}

func (m *mockMerchants) EarningsReport(ctx context.Context, merchantID string, from, to *time.Time) (*domain.EarningsReport, error) {
	args := m.Called(ctx, merchantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EarningsReport), args.Error(1)
}

type routerFixture struct {
	matching  *mockMatching
	assets    *mockAssets
	leases    *mockLeases
	payment   *mockPayment
	merchants *mockMerchants
	tokens    security.TokenManager
	handler   http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		matching:  new(mockMatching),
		assets:    new(mockAssets),
		leases:    new(mockLeases),
		payment:   new(mockPayment),
		merchants: new(mockMerchants),
		tokens:    security.NewTokenManager("0123456789abcdef0123456789abcdef", 60),
	}
	f.handler = NewRouter(RouterDeps{
		Matching:  f.matching,
		Assets:    f.assets,
		Leases:    f.leases,
		Payment:   f.payment,
		Merchants: f.merchants,
		Tokens:    f.tokens,
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func sampleAsset() *domain.Asset {
	return &domain.Asset{
		ID:             "asset-1",
		MerchantID:     "merchant-1",
		Name:           "RTX 4090 Rig",
		Type:           domain.AssetTypeGPU,
		PricePerUnit:   "0.100000",
		Unit:           domain.BillingUnitMinute,
		Status:         domain.AssetStatusAvailable,
		MerchantWallet: "merchant-wallet",
	}
}

func TestCreateIntentEndpoint(t *testing.T) {
	f := newRouterFixture()
	intent := &domain.Intent{ID: "intent-1", Status: domain.IntentStatusUnresolved}
	parsed := &domain.ParsedIntent{AssetType: domain.AssetTypeGPU, DurationMinutes: 30}

	f.matching.On("CreateIntent", mock.Anything, "wallet-1", "rent a gpu", "sig").
		Return(intent, parsed, nil)

	rec := f.do(t, "POST", "/api/v1/intents",
		`{"wallet":"wallet-1","message":"rent a gpu","signature":"sig"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp createIntentResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "intent-1", resp.Intent.ID)
}

func TestCreateIntentParseFailure(t *testing.T) {
	f := newRouterFixture()
	f.matching.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, domain.ErrParseFailure)

	rec := f.do(t, "POST", "/api/v1/intents",
		`{"wallet":"w","message":"gibberish","signature":"sig"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"Replay", domain.ErrReplayedAuthorization, http.StatusConflict},
		{"AssetTaken", domain.ErrAssetUnavailable, http.StatusConflict},
		{"BadSignature", domain.ErrInvalidSignature, http.StatusBadRequest},
		{"Stale", domain.ErrStaleAuthorization, http.StatusBadRequest},
		{"Missing", domain.ErrIntentNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture()
			f.matching.On("AcceptAndPay", mock.Anything, "intent-1", mock.Anything).
				Return(nil, tc.err)

			rec := f.do(t, "POST", "/api/v1/intents/intent-1/accept",
				`{"message":"{}","signature":"sig","payer":"w"}`, nil)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestAssetAccessPaymentRequired(t *testing.T) {
	f := newRouterFixture()
	asset := sampleAsset()
	f.assets.On("GetAsset", mock.Anything, "asset-1").Return(asset, nil, nil)
	f.payment.On("BuildChallenge", asset).Return(domain.PaymentRequirement{
		Cost:    "0.100000",
		Payee:   "merchant-wallet",
		Network: "solana-devnet",
		Unit:    "minute",
		AssetID: "asset-1",
	})

	rec := f.do(t, "GET", "/api/v1/assets/asset-1/access", "", nil)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "0.100000", rec.Header().Get("X-Cost"))
	assert.Equal(t, "merchant-wallet", rec.Header().Get("X-Address"))
	assert.Equal(t, "solana-devnet", rec.Header().Get("X-Network"))
	assert.Equal(t, "minute", rec.Header().Get("X-Unit"))
	assert.Equal(t, "asset-1", rec.Header().Get("X-Asset-Id"))
}

func TestAssetAccessWithPaymentHeader(t *testing.T) {
	f := newRouterFixture()
	asset := sampleAsset()
	auth := domain.PaymentAuthorization{Message: "{}", Signature: "sig", Payer: "payer-1"}
	lease := &domain.Lease{Token: "lease_1", AssetID: "asset-1", PayerWallet: "payer-1"}

	f.assets.On("GetAsset", mock.Anything, "asset-1").Return(asset, nil, nil)
	f.payment.On("ParseAuthorizationHeader", "PAY2 abc").Return(auth, nil)
	f.payment.On("VerifyAndRedeem", mock.Anything, auth, asset).
		Return(&service.Redemption{Amount: "3.000000", Payer: "payer-1", Signature: "sig"}, nil)
	f.leases.On("CreateLease", mock.Anything, "asset-1", "3.000000", "payer-1").Return(lease, nil)
	f.payment.On("AttachLease", mock.Anything, "sig", "lease_1").Return(nil)

	rec := f.do(t, "GET", "/api/v1/assets/asset-1/access", "",
		map[string]string{"X-Payment": "PAY2 abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp accessGrantedResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Access)
	assert.Equal(t, "lease_1", resp.LeaseToken)
}

func TestAssetAccessWithValidLeaseToken(t *testing.T) {
	f := newRouterFixture()
	asset := sampleAsset()
	lease := &domain.Lease{Token: "lease_1", AssetID: "asset-1", ExpiresAt: time.Now().Add(time.Hour)}

	f.assets.On("GetAsset", mock.Anything, "asset-1").Return(asset, nil, nil)
	f.leases.On("GetLease", mock.Anything, "lease_1").Return(lease, nil)

	rec := f.do(t, "GET", "/api/v1/assets/asset-1/access", "",
		map[string]string{"X-Lease-Token": "lease_1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssetAccessWithForeignLeaseToken(t *testing.T) {
	f := newRouterFixture()
	f.assets.On("GetAsset", mock.Anything, "asset-1").Return(sampleAsset(), nil, nil)
	f.leases.On("GetLease", mock.Anything, "lease_other").
		Return(&domain.Lease{Token: "lease_other", AssetID: "asset-2"}, nil)

	rec := f.do(t, "GET", "/api/v1/assets/asset-1/access", "",
		map[string]string{"X-Lease-Token": "lease_other"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeaseStatusEndpoint(t *testing.T) {
	f := newRouterFixture()
	lease := &domain.Lease{
		Token:     "lease_1",
		AssetID:   "asset-1",
		ExpiresAt: time.Now().UTC().Add(29*time.Minute + 30*time.Second),
	}
	f.leases.On("GetLease", mock.Anything, "lease_1").Return(lease, nil)

	rec := f.do(t, "GET", "/api/v1/leases/lease_1", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp leaseStatusResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// Partial minutes round up.
	assert.Equal(t, 30, resp.MinutesRemaining)
}

func TestLeaseStatusGoneAfterExpiry(t *testing.T) {
	f := newRouterFixture()
	f.leases.On("GetLease", mock.Anything, "lease_1").Return(nil, domain.ErrLeaseExpired)

	rec := f.do(t, "GET", "/api/v1/leases/lease_1", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestMerchantEndpointsRequireAuth(t *testing.T) {
	f := newRouterFixture()
	rec := f.do(t, "POST", "/api/v1/assets",
		`{"name":"x","type":"gpu","price_per_unit":"0.1","unit":"minute"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMerchantCreateAssetWithJWT(t *testing.T) {
	f := newRouterFixture()
	token, err := f.tokens.GenerateAccessToken("merchant-1", "merchant-wallet")
	assert.NoError(t, err)

	f.assets.On("CreateAsset", mock.Anything, "merchant-1", mock.AnythingOfType("*domain.Asset")).Return(nil)

	rec := f.do(t, "POST", "/api/v1/assets",
		`{"name":"RTX 4090 Rig","type":"gpu","price_per_unit":"0.100000","unit":"minute"}`,
		map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.assets.AssertExpectations(t)
}

func TestMerchantAuthWithAPIKey(t *testing.T) {
	f := newRouterFixture()
	f.merchants.On("Authenticate", mock.Anything, "glk_id_secret").
		Return(&domain.Merchant{ID: "merchant-1", IsActive: true}, nil)
	f.assets.On("ListMerchantAssets", mock.Anything, "merchant-1").
		Return([]domain.Asset{*sampleAsset()}, nil)

	rec := f.do(t, "GET", "/api/v1/merchant/assets", "",
		map[string]string{"X-API-Key": "glk_id_secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
