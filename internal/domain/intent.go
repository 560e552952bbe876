package domain

type IntentStatus string

const (
	// IntentStatusUnresolved intents are picked up by every scan cycle.
	IntentStatusUnresolved IntentStatus = "UNRESOLVED"
	// IntentStatusCandidateSelected intents hold a soft match and are
	// skipped by the scan until rejected or fulfilled.
	IntentStatusCandidateSelected IntentStatus = "CANDIDATE_SELECTED"
	IntentStatusFulfilled         IntentStatus = "FULFILLED"
	IntentStatusCancelled         IntentStatus = "CANCELLED"
)

type IntentAction string

const (
	IntentActionBuy    IntentAction = "buy"
	IntentActionExtend IntentAction = "extend"
	IntentActionCancel IntentAction = "cancel"
)

const (
	MinIntentDurationMinutes = 1
	MaxIntentDurationMinutes = 480
)

// Intent is a structured, parsed compute request. The candidate asset is a
// soft reservation only; the asset stays AVAILABLE until payment completes.
type Intent struct {
	ID              string       `json:"id"`
	RequesterWallet string       `json:"requester_wallet"`
	AssetType       AssetType    `json:"asset_type"`
	AssetName       string       `json:"asset_name,omitempty"`
	DurationMinutes int32        `json:"duration_minutes"`
	MaxPricePerUnit string       `json:"max_price_per_unit"`
	Action          IntentAction `json:"action"`
	SelectedAssetID *string      `json:"selected_asset_id,omitempty"`
	LeaseToken      *string      `json:"lease_token,omitempty"`
	Status          IntentStatus `json:"status"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}

// ParsedIntent is the parser oracle's output, before persistence.
type ParsedIntent struct {
	AssetType       AssetType    `json:"asset_type"`
	AssetName       string       `json:"asset_name,omitempty"`
	DurationMinutes int32        `json:"duration_minutes"`
	MaxPricePerUnit string       `json:"max_price_per_unit"`
	Action          IntentAction `json:"action"`
}
