// Package events delivers asynchronous matching and lease progress events
// to interested observers, keyed by intent or by requester wallet.
package events

import "time"

type Kind string

const (
	KindNoMatch      Kind = "NO_MATCH"
	KindMatchFound   Kind = "MATCH_FOUND"
	KindMatchLost    Kind = "MATCH_LOST"
	KindLeaseExpired Kind = "LEASE_EXPIRED"
	KindError        Kind = "ERROR"
)

// AssetRef is the asset projection carried on match events.
type AssetRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PricePerUnit string `json:"price_per_unit"`
}

// Event is a tagged variant; Kind decides which optional fields are set.
// Delivery is at-least-once, so consumers must tolerate duplicates.
type Event struct {
	Kind            Kind      `json:"kind"`
	IntentID        string    `json:"intent_id,omitempty"`
	RequesterWallet string    `json:"requester_wallet,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Message         string    `json:"message"`
	Asset           *AssetRef `json:"asset,omitempty"`
	TotalCost       string    `json:"total_cost,omitempty"`
	LeaseToken      string    `json:"lease_token,omitempty"`
}

// Publisher is the event sink the engine and lease manager write to.
type Publisher interface {
	Publish(event Event)
}
