package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gridlease-backend/internal/domain"
)

func TestDurationForAmount(t *testing.T) {
	t.Run("MinuteUnit", func(t *testing.T) {
		// 1.000000 at 0.100000/minute buys 10 minutes
		d, err := DurationForAmount("1.000000", "0.100000", domain.BillingUnitMinute)
		assert.NoError(t, err)
		assert.Equal(t, 10*time.Minute, d)
	})

	t.Run("HourUnit", func(t *testing.T) {
		d, err := DurationForAmount("0.500000", "0.250000", domain.BillingUnitHour)
		assert.NoError(t, err)
		assert.Equal(t, 2*time.Hour, d)
	})

	t.Run("DayUnit", func(t *testing.T) {
		d, err := DurationForAmount("3.000000", "2.000000", domain.BillingUnitDay)
		assert.NoError(t, err)
		assert.Equal(t, 36*time.Hour, d)
	})

	t.Run("SessionBilledAsHour", func(t *testing.T) {
		d, err := DurationForAmount("0.100000", "0.100000", domain.BillingUnitSession)
		assert.NoError(t, err)
		assert.Equal(t, time.Hour, d)
	})

	t.Run("FractionalUnits", func(t *testing.T) {
		// 0.250000 at 0.100000/minute = 2.5 minutes
		d, err := DurationForAmount("0.250000", "0.100000", domain.BillingUnitMinute)
		assert.NoError(t, err)
		assert.Equal(t, 150*time.Second, d)
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		_, err := DurationForAmount("0.000000", "0.100000", domain.BillingUnitMinute)
		assert.Error(t, err)
	})

	t.Run("ZeroPrice", func(t *testing.T) {
		_, err := DurationForAmount("1.000000", "0", domain.BillingUnitMinute)
		assert.Error(t, err)
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		_, err := DurationForAmount("not-a-number", "0.100000", domain.BillingUnitMinute)
		assert.Error(t, err)
	})
}

func TestTotalCost(t *testing.T) {
	t.Run("ScenarioA", func(t *testing.T) {
		// 0.10/minute for 30 minutes
		cost, err := TotalCost("0.10", 30)
		assert.NoError(t, err)
		assert.Equal(t, "3.000000", cost)
	})

	t.Run("SixDecimalPlaces", func(t *testing.T) {
		cost, err := TotalCost("0.000015", 7)
		assert.NoError(t, err)
		assert.Equal(t, "0.000105", cost)
	})

	t.Run("NegativePrice", func(t *testing.T) {
		_, err := TotalCost("-0.10", 30)
		assert.Error(t, err)
	})
}

func TestMinutesRemaining(t *testing.T) {
	now := time.Now()

	t.Run("RoundsUp", func(t *testing.T) {
		assert.Equal(t, 2, MinutesRemaining(now.Add(61*time.Second), now))
	})

	t.Run("Exact", func(t *testing.T) {
		assert.Equal(t, 5, MinutesRemaining(now.Add(5*time.Minute), now))
	})

	t.Run("ClampsToZero", func(t *testing.T) {
		assert.Equal(t, 0, MinutesRemaining(now.Add(-time.Minute), now))
		assert.Equal(t, 0, MinutesRemaining(now, now))
	})
}

func TestMillisPerUnit(t *testing.T) {
	assert.Equal(t, int64(60_000), MillisPerUnit(domain.BillingUnitMinute))
	assert.Equal(t, int64(3_600_000), MillisPerUnit(domain.BillingUnitHour))
	assert.Equal(t, int64(86_400_000), MillisPerUnit(domain.BillingUnitDay))
	assert.Equal(t, int64(3_600_000), MillisPerUnit(domain.BillingUnitSession))
	// unknown unit defaults to minute
	assert.Equal(t, int64(60_000), MillisPerUnit(domain.BillingUnit("fortnight")))
}
