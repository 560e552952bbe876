package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/service"
)

// AssetHandler exposes the public asset catalog, merchant listing
// management, and the paid access endpoint.
type AssetHandler struct {
	assets  service.AssetService
	leases  service.LeaseService
	payment service.PaymentService
}

func NewAssetHandler(assets service.AssetService, leases service.LeaseService, payment service.PaymentService) *AssetHandler {
	return &AssetHandler{assets: assets, leases: leases, payment: payment}
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListAssets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

type assetDetailResponse struct {
	Asset       *domain.Asset `json:"asset"`
	ActiveLease *domain.Lease `json:"active_lease,omitempty"`
}

func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset, lease, err := h.assets.GetAsset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetDetailResponse{Asset: asset, ActiveLease: lease})
}

type createAssetRequest struct {
	Name         string             `json:"name"`
	Type         domain.AssetType   `json:"type"`
	PricePerUnit string             `json:"price_per_unit"`
	Unit         domain.BillingUnit `json:"unit"`
}

func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	asset := &domain.Asset{
		Name:         req.Name,
		Type:         req.Type,
		PricePerUnit: req.PricePerUnit,
		Unit:         req.Unit,
	}
	if err := h.assets.CreateAsset(r.Context(), merchantID(r), asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

type updatePriceRequest struct {
	PricePerUnit string             `json:"price_per_unit"`
	Unit         domain.BillingUnit `json:"unit"`
}

func (h *AssetHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.assets.UpdatePrice(r.Context(), merchantID(r), mux.Vars(r)["id"], req.PricePerUnit, req.Unit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type accessGrantedResponse struct {
	Access     bool          `json:"access"`
	Lease      *domain.Lease `json:"lease"`
	LeaseToken string        `json:"lease_token"`
}

// Access is the pay-per-use gate. A valid lease token grants access; a
// payment authorization header buys a fresh lease on the spot; anything
// else gets 402 with the payment requirement in headers and body.
func (h *AssetHandler) Access(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["id"]
	asset, _, err := h.assets.GetAsset(r.Context(), assetID)
	if err != nil {
		writeError(w, err)
		return
	}

	if token := r.Header.Get("X-Lease-Token"); token != "" {
		lease, err := h.leases.GetLease(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		if lease.AssetID != assetID {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "lease is for a different asset"})
			return
		}
		writeJSON(w, http.StatusOK, accessGrantedResponse{Access: true, Lease: lease, LeaseToken: lease.Token})
		return
	}

	if header := r.Header.Get("X-Payment"); header != "" {
		auth, err := h.payment.ParseAuthorizationHeader(header)
		if err != nil {
			writeError(w, err)
			return
		}
		redemption, err := h.payment.VerifyAndRedeem(r.Context(), auth, asset)
		if err != nil {
			writeError(w, err)
			return
		}
		lease, err := h.leases.CreateLease(r.Context(), asset.ID, redemption.Amount, redemption.Payer)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := h.payment.AttachLease(r.Context(), redemption.Signature, lease.Token); err != nil {
			logger.Warn("Failed to attach lease token to payment record",
				"lease_token", lease.Token, "error", err)
		}
		writeJSON(w, http.StatusOK, accessGrantedResponse{Access: true, Lease: lease, LeaseToken: lease.Token})
		return
	}

	h.writePaymentRequired(w, asset)
}

func (h *AssetHandler) writePaymentRequired(w http.ResponseWriter, asset *domain.Asset) {
	requirement := h.payment.BuildChallenge(asset)

	w.Header().Set("X-Cost", requirement.Cost)
	w.Header().Set("X-Address", requirement.Payee)
	w.Header().Set("X-Network", requirement.Network)
	w.Header().Set("X-Unit", requirement.Unit)
	w.Header().Set("X-Asset-Id", requirement.AssetID)
	writeJSON(w, http.StatusPaymentRequired, requirement)
}
