package domain

type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "AVAILABLE"
	AssetStatusOccupied    AssetStatus = "OCCUPIED"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
)

type AssetType string

const (
	AssetTypeGPU     AssetType = "gpu"
	AssetTypeCPU     AssetType = "cpu"
	AssetTypePrinter AssetType = "printer"
	AssetTypeIoT     AssetType = "iot"
)

type BillingUnit string

const (
	BillingUnitMinute  BillingUnit = "minute"
	BillingUnitHour    BillingUnit = "hour"
	BillingUnitDay     BillingUnit = "day"
	BillingUnitSession BillingUnit = "session"
)

// Asset is a leasable resource listed by a merchant. PricePerUnit is a
// fixed-point decimal string with 6 fractional digits, quoted against Unit.
type Asset struct {
	ID             string      `json:"id"`
	MerchantID     string      `json:"merchant_id"`
	Name           string      `json:"name"`
	Type           AssetType   `json:"type"`
	PricePerUnit   string      `json:"price_per_unit"`
	Unit           BillingUnit `json:"unit"`
	Status         AssetStatus `json:"status"`
	MerchantWallet string      `json:"merchant_wallet"`
	CurrentLease   *string     `json:"current_lease,omitempty"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}
