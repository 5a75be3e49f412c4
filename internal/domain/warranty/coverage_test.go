package warranty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCoverage(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unknown when end date is empty", func(t *testing.T) {
		c := EvaluateCoverage("", now)
		assert.Equal(t, CoverageUnknown, c.State)
		assert.Nil(t, c.EndsAt)
	})

	t.Run("unknown when end date is garbage", func(t *testing.T) {
		assert.Equal(t, CoverageUnknown, EvaluateCoverage("soon", now).State)
		assert.Equal(t, CoverageUnknown, EvaluateCoverage("2024-02-30", now).State)
	})

	t.Run("active rounds partial days up", func(t *testing.T) {
		c := EvaluateCoverage("2024-03-03", now)
		assert.True(t, c.IsActive())
		// 1.5 days remain
		assert.Equal(t, 2, c.DaysRemaining)
		require.NotNil(t, c.EndsAt)
		assert.Equal(t, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), *c.EndsAt)
	})

	t.Run("expired when end date has passed", func(t *testing.T) {
		c := EvaluateCoverage("2024-03-01", now)
		assert.Equal(t, CoverageExpired, c.State)
		assert.Zero(t, c.DaysRemaining)
	})

	t.Run("accepts RFC3339 timestamps", func(t *testing.T) {
		c := EvaluateCoverage("2025-03-01T00:00:00Z", now)
		assert.Equal(t, CoverageActive, c.State)
		assert.Equal(t, 365, c.DaysRemaining)
	})
}

func TestDeviceCoverage(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, CoverageUnknown, DeviceCoverage(nil, now).State)
	assert.Equal(t, CoverageUnknown, DeviceCoverage(&Device{}, now).State)

	d := &Device{WarrantyEnd: StringPtr("2024-03-11")}
	c := DeviceCoverage(d, now)
	assert.Equal(t, CoverageActive, c.State)
	assert.Equal(t, 10, c.DaysRemaining)
}

func TestEnums(t *testing.T) {
	assert.True(t, DeviceStatusInRepair.IsValid())
	assert.False(t, DeviceStatus("lost").IsValid())
	assert.True(t, TestResultWarning.IsValid())
	assert.False(t, TestResult("ok").IsValid())
	assert.True(t, JobRoleRepairman.IsValid())
	assert.False(t, JobRole("ceo").IsValid())
	assert.True(t, AccountRoleViewer.IsValid())
	assert.False(t, AccountRole("root").IsValid())
}

func TestPointerHelpers(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Nil(t, Int64Ptr(0))
	assert.Equal(t, int64(7), *Int64Ptr(7))
}
