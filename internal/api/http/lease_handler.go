package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/service"
	"gridlease-backend/internal/utils"
)

type LeaseHandler struct {
	leases service.LeaseService
}

func NewLeaseHandler(leases service.LeaseService) *LeaseHandler {
	return &LeaseHandler{leases: leases}
}

type leaseStatusResponse struct {
	Lease            *domain.Lease `json:"lease"`
	MinutesRemaining int           `json:"minutes_remaining"`
}

func (h *LeaseHandler) Status(w http.ResponseWriter, r *http.Request) {
	lease, err := h.leases.GetLease(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaseStatusResponse{
		Lease:            lease,
		MinutesRemaining: utils.MinutesRemaining(lease.ExpiresAt, time.Now().UTC()),
	})
}

func (h *LeaseHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var auth domain.PaymentAuthorization
	if !decodeBody(w, r, &auth) {
		return
	}

	lease, err := h.leases.ExtendLease(r.Context(), mux.Vars(r)["token"], auth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaseStatusResponse{
		Lease:            lease,
		MinutesRemaining: utils.MinutesRemaining(lease.ExpiresAt, time.Now().UTC()),
	})
}
