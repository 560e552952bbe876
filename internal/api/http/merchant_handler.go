package http

import (
	"net/http"
	"time"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/service"
)

type MerchantHandler struct {
	merchants service.MerchantService
	assets    service.AssetService
}

func NewMerchantHandler(merchants service.MerchantService, assets service.AssetService) *MerchantHandler {
	return &MerchantHandler{merchants: merchants, assets: assets}
}

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
}

type registerResponse struct {
	Merchant *domain.Merchant `json:"merchant"`
	// APIKey is returned exactly once, at registration or regeneration.
	APIKey string `json:"api_key"`
}

func (h *MerchantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	merchant, apiKey, err := h.merchants.Register(r.Context(), req.Name, req.Email, req.WalletAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Merchant: merchant, APIKey: apiKey})
}

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type loginResponse struct {
	Token    string           `json:"token"`
	Merchant *domain.Merchant `json:"merchant"`
}

func (h *MerchantHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, merchant, err := h.merchants.Login(r.Context(), req.APIKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Merchant: merchant})
}

func (h *MerchantHandler) RegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	apiKey, err := h.merchants.RegenerateAPIKey(r.Context(), merchantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": apiKey})
}

func (h *MerchantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.merchants.Deactivate(r.Context(), merchantID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *MerchantHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListMerchantAssets(r.Context(), merchantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// Earnings reports the merchant's redeemed payments, optionally windowed
// by RFC 3339 "from"/"to" query parameters.
func (h *MerchantHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	report, err := h.merchants.EarningsReport(r.Context(), merchantID(r), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name + " timestamp"})
		return nil, false
	}
	return &t, true
}
