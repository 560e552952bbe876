package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/service"
)

// IntentHandler exposes the intent lifecycle: create, poll, accept with
// payment, reject, cancel.
type IntentHandler struct {
	matching service.MatchingService
}

func NewIntentHandler(matching service.MatchingService) *IntentHandler {
	return &IntentHandler{matching: matching}
}

type createIntentRequest struct {
	Wallet    string `json:"wallet"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type createIntentResponse struct {
	Intent *domain.Intent       `json:"intent"`
	Parsed *domain.ParsedIntent `json:"parsed"`
}

func (h *IntentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	intent, parsed, err := h.matching.CreateIntent(r.Context(), req.Wallet, req.Message, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createIntentResponse{Intent: intent, Parsed: parsed})
}

func (h *IntentHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.matching.GetIntentStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *IntentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var auth domain.PaymentAuthorization
	if !decodeBody(w, r, &auth) {
		return
	}

	lease, err := h.matching.AcceptAndPay(r.Context(), mux.Vars(r)["id"], auth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lease)
}

func (h *IntentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.matching.Reject(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *IntentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.matching.Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
