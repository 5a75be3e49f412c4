package warranty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/domain/shared"
	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/infrastructure/cache"
)

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) DeviceBySerial(ctx context.Context, serial string) (*warranty.Device, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*warranty.Device), args.Error(1)
}

func (m *MockBackend) RepairsForDevice(ctx context.Context, deviceID int64) ([]warranty.Repair, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]warranty.Repair), args.Error(1)
}

type countingObserver struct {
	lookups map[string]int
	hits    int
	misses  int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{lookups: make(map[string]int)}
}

func (o *countingObserver) ObserveWarrantyLookup(result string) { o.lookups[result]++ }

func (o *countingObserver) ObserveCache(_ string, hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestService_Lookup(t *testing.T) {
	ctx := context.Background()

	device := &warranty.Device{
		ID:            42,
		SerialNumber:  "MV0042",
		WarrantyStart: warranty.StringPtr("2024-03-20"),
		WarrantyEnd:   warranty.StringPtr("2025-03-20"),
		Status:        warranty.DeviceStatusActive,
	}

	t.Run("active warranty with repairs", func(t *testing.T) {
		backend := new(MockBackend)
		obs := newCountingObserver()
		svc := NewService(backend, WithClock(fixedClock), WithObserver(obs))

		backend.On("DeviceBySerial", ctx, "MV0042").Return(device, nil)
		backend.On("RepairsForDevice", ctx, int64(42)).Return([]warranty.Repair{{ID: 1, DeviceID: 42, ReportedIssue: "no power"}}, nil)

		result, err := svc.Lookup(ctx, "  MV۰۰۴۲ ")
		require.NoError(t, err)
		assert.Equal(t, "MV0042", result.Serial)
		assert.Equal(t, warranty.CoverageActive, result.Coverage.State)
		assert.Equal(t, 365, result.Coverage.DaysRemaining)
		assert.Equal(t, "1403-01-01", result.WarrantyStartPersian)
		assert.Equal(t, "1403-12-30", result.WarrantyEndPersian)
		assert.Len(t, result.Repairs, 1)
		assert.Equal(t, fixedNow, result.CheckedAt)
		assert.Equal(t, 1, obs.lookups["active"])
	})

	t.Run("repair failure is tolerated", func(t *testing.T) {
		backend := new(MockBackend)
		svc := NewService(backend, WithClock(fixedClock))

		backend.On("DeviceBySerial", ctx, "MV0042").Return(device, nil)
		backend.On("RepairsForDevice", ctx, int64(42)).Return(nil, errors.New("timeout"))

		result, err := svc.Lookup(ctx, "MV0042")
		require.NoError(t, err)
		assert.NotNil(t, result.Repairs)
		assert.Empty(t, result.Repairs)
	})

	t.Run("unknown serial", func(t *testing.T) {
		backend := new(MockBackend)
		obs := newCountingObserver()
		svc := NewService(backend, WithObserver(obs))

		backend.On("DeviceBySerial", ctx, "NOPE").Return(nil, shared.ErrNotFound)

		_, err := svc.Lookup(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrDeviceNotFound)
		assert.Equal(t, 1, obs.lookups["not_found"])
	})

	t.Run("upstream errors propagate", func(t *testing.T) {
		backend := new(MockBackend)
		svc := NewService(backend)

		backend.On("DeviceBySerial", ctx, "MV1").Return(nil, shared.ErrUpstream)

		_, err := svc.Lookup(ctx, "MV1")
		assert.ErrorIs(t, err, shared.ErrUpstream)
	})

	t.Run("empty serial", func(t *testing.T) {
		backend := new(MockBackend)
		svc := NewService(backend)

		_, err := svc.Lookup(ctx, "   ")
		assert.ErrorIs(t, err, ErrSerialRequired)
		backend.AssertNotCalled(t, "DeviceBySerial", mock.Anything, mock.Anything)
	})

	t.Run("unknown coverage without end date", func(t *testing.T) {
		backend := new(MockBackend)
		svc := NewService(backend, WithClock(fixedClock))

		backend.On("DeviceBySerial", ctx, "MV7").Return(&warranty.Device{ID: 7, SerialNumber: "MV7"}, nil)
		backend.On("RepairsForDevice", ctx, int64(7)).Return([]warranty.Repair{}, nil)

		result, err := svc.Lookup(ctx, "MV7")
		require.NoError(t, err)
		assert.Equal(t, warranty.CoverageUnknown, result.Coverage.State)
		assert.Empty(t, result.WarrantyEndPersian)
	})
}

func TestService_LookupCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryStore()
	defer store.Close()

	backend := new(MockBackend)
	obs := newCountingObserver()
	now := fixedNow
	svc := NewService(backend,
		WithCache(store, time.Minute),
		WithObserver(obs),
		WithClock(func() time.Time { return now }),
	)

	backend.On("DeviceBySerial", ctx, "MV0001").Return(&warranty.Device{
		ID:           1,
		SerialNumber: "MV0001",
		WarrantyEnd:  warranty.StringPtr("2024-03-22"),
	}, nil).Once()
	backend.On("RepairsForDevice", ctx, int64(1)).Return([]warranty.Repair{}, nil).Once()

	first, err := svc.Lookup(ctx, "MV0001")
	require.NoError(t, err)
	assert.Equal(t, warranty.CoverageActive, first.Coverage.State)

	// Coverage is re-evaluated against the clock on cached reads.
	now = fixedNow.AddDate(0, 0, 3)
	second, err := svc.Lookup(ctx, "MV0001")
	require.NoError(t, err)
	assert.Equal(t, warranty.CoverageExpired, second.Coverage.State)

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	backend.AssertExpectations(t)

	require.NoError(t, svc.Invalidate(ctx, "MV0001"))
	_, ok, err := store.Get(ctx, "warranty:MV0001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_CorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryStore()
	defer store.Close()
	require.NoError(t, store.Set(ctx, "warranty:MV9", []byte("{not json"), time.Minute))

	backend := new(MockBackend)
	svc := NewService(backend, WithCache(store, time.Minute))
	backend.On("DeviceBySerial", ctx, "MV9").Return(&warranty.Device{ID: 9, SerialNumber: "MV9"}, nil)
	backend.On("RepairsForDevice", ctx, int64(9)).Return([]warranty.Repair{}, nil)

	result, err := svc.Lookup(ctx, "MV9")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Device.ID)
	backend.AssertNumberOfCalls(t, "DeviceBySerial", 1)
}
