// Package http is the REST surface of the engine: intent lifecycle,
// asset catalog and paid access, lease status and extension, and the
// merchant dashboard endpoints.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"gridlease-backend/internal/security"
	"gridlease-backend/internal/service"
)

type RouterDeps struct {
	Matching  service.MatchingService
	Assets    service.AssetService
	Leases    service.LeaseService
	Payment   service.PaymentService
	Merchants service.MerchantService
	Tokens    security.TokenManager
}

func NewRouter(deps RouterDeps) *mux.Router {
	intents := NewIntentHandler(deps.Matching)
	assets := NewAssetHandler(deps.Assets, deps.Leases, deps.Payment)
	leases := NewLeaseHandler(deps.Leases)
	merchants := NewMerchantHandler(deps.Merchants, deps.Assets)

	router := mux.NewRouter()
	router.Use(RequestLogging)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Intent lifecycle
	api.HandleFunc("/intents", intents.Create).Methods("POST")
	api.HandleFunc("/intents/{id}", intents.Status).Methods("GET")
	api.HandleFunc("/intents/{id}/accept", intents.Accept).Methods("POST")
	api.HandleFunc("/intents/{id}/reject", intents.Reject).Methods("POST")
	api.HandleFunc("/intents/{id}/cancel", intents.Cancel).Methods("POST")

	// Asset catalog and paid access
	api.HandleFunc("/assets", assets.List).Methods("GET")
	api.HandleFunc("/assets/{id}", assets.Get).Methods("GET")
	api.HandleFunc("/assets/{id}/access", assets.Access).Methods("GET")

	// Lease status and extension
	api.HandleFunc("/leases/{token}", leases.Status).Methods("GET")
	api.HandleFunc("/leases/{token}/extend", leases.Extend).Methods("POST")

	// Merchant onboarding
	api.HandleFunc("/auth/register", merchants.Register).Methods("POST")
	api.HandleFunc("/auth/login", merchants.Login).Methods("POST")

	// Merchant endpoints behind JWT or API key
	authed := api.NewRoute().Subrouter()
	authed.Use(MerchantAuth(deps.Merchants, deps.Tokens))
	authed.HandleFunc("/auth/regenerate", merchants.RegenerateAPIKey).Methods("POST")
	authed.HandleFunc("/auth/deactivate", merchants.Deactivate).Methods("POST")
	authed.HandleFunc("/assets", assets.Create).Methods("POST")
	authed.HandleFunc("/assets/{id}/price", assets.UpdatePrice).Methods("PUT")
	authed.HandleFunc("/merchant/assets", merchants.ListAssets).Methods("GET")
	authed.HandleFunc("/merchant/earnings", merchants.Earnings).Methods("GET")

	return router
}
