package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gridlease-backend/internal/domain"
)

// millisPerUnit is the table-driven billing-unit conversion: how many
// milliseconds one base unit of a price buys. A "session" is billed as one
// hour-scaled block (see DESIGN.md, Open Questions).
var millisPerUnit = map[domain.BillingUnit]int64{
	domain.BillingUnitMinute:  60_000,
	domain.BillingUnitHour:    3_600_000,
	domain.BillingUnitDay:     86_400_000,
	domain.BillingUnitSession: 3_600_000,
}

// MillisPerUnit returns the millisecond weight of one base unit.
// Unknown units fall back to minute, matching the original pricing table.
func MillisPerUnit(unit domain.BillingUnit) int64 {
	if ms, ok := millisPerUnit[unit]; ok {
		return ms
	}
	return millisPerUnit[domain.BillingUnitMinute]
}

// ParsePrice parses a fixed-point decimal string and requires it to be
// strictly positive.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("amount must be greater than 0, got %q", s)
	}
	return d, nil
}

// DurationForAmount converts a paid amount into lease time:
// baseUnits = amount / pricePerUnit, then scaled by the unit table.
func DurationForAmount(amount, pricePerUnit string, unit domain.BillingUnit) (time.Duration, error) {
	amt, err := ParsePrice(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %w", err)
	}
	price, err := ParsePrice(pricePerUnit)
	if err != nil {
		return 0, fmt.Errorf("invalid price: %w", err)
	}

	baseUnits := amt.Div(price)
	ms := baseUnits.Mul(decimal.NewFromInt(MillisPerUnit(unit)))
	return time.Duration(ms.IntPart()) * time.Millisecond, nil
}

// TotalCost is the match-time cost projection: pricePerUnit multiplied by
// the requested duration in minutes, fixed to 6 decimal places.
func TotalCost(pricePerUnit string, durationMinutes int32) (string, error) {
	price, err := ParsePrice(pricePerUnit)
	if err != nil {
		return "", err
	}
	return price.Mul(decimal.NewFromInt32(durationMinutes)).StringFixed(6), nil
}

// MinutesRemaining is ceil((expiresAt - now) / 1m), clamped to zero.
func MinutesRemaining(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute > 0 {
		minutes++
	}
	return minutes
}
