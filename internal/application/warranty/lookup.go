package warranty

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marv/gateway/internal/domain/calendar"
	"github.com/marv/gateway/internal/domain/shared"
	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/infrastructure/cache"
)

var (
	ErrSerialRequired = shared.NewDomainError("INVALID_INPUT", "Serial number is required")
	ErrDeviceNotFound = shared.NewDomainError("DEVICE_NOT_FOUND", "No device found with this serial")
)

// Backend is the subset of the warranty backend API used by lookups
type Backend interface {
	DeviceBySerial(ctx context.Context, serial string) (*warranty.Device, error)
	RepairsForDevice(ctx context.Context, deviceID int64) ([]warranty.Repair, error)
}

// Observer receives lookup and cache outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveWarrantyLookup(result string)
	ObserveCache(cache string, hit bool)
}

type noopObserver struct{}

func (noopObserver) ObserveWarrantyLookup(string) {}
func (noopObserver) ObserveCache(string, bool)    {}

// Result is the answer to a warranty lookup
type Result struct {
	Serial               string            `json:"serial"`
	Device               *warranty.Device  `json:"device"`
	Coverage             warranty.Coverage `json:"coverage"`
	WarrantyStartPersian string            `json:"warranty_start_persian,omitempty"`
	WarrantyEndPersian   string            `json:"warranty_end_persian,omitempty"`
	Repairs              []warranty.Repair `json:"repairs"`
	CheckedAt            time.Time         `json:"checked_at"`
}

// cachedLookup is what gets cached. Coverage depends on the clock, so it is
// evaluated on every read instead of being stored.
type cachedLookup struct {
	Device  *warranty.Device  `json:"device"`
	Repairs []warranty.Repair `json:"repairs"`
}

const cacheName = "warranty"

// Service answers public warranty lookups
type Service struct {
	backend  Backend
	store    cache.Store
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
}

// Option configures a Service
type Option func(*Service)

// WithCache caches backend answers in store for ttl. A zero ttl disables caching.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.store = store
		s.ttl = ttl
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the lookup observer
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the time source used for coverage
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new lookup Service
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		now:      time.Now,
		logger:   zap.NewNop(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup finds the device with the given serial, its repairs and its
// warranty coverage. A failure to load repairs yields an empty repair list.
func (s *Service) Lookup(ctx context.Context, serialNumber string) (*Result, error) {
	serialNumber = strings.TrimSpace(calendar.ToLatinDigits(serialNumber))
	if serialNumber == "" {
		s.observer.ObserveWarrantyLookup("invalid")
		return nil, ErrSerialRequired
	}

	entry, err := s.load(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.observer.ObserveWarrantyLookup("not_found")
			return nil, ErrDeviceNotFound
		}
		s.observer.ObserveWarrantyLookup("error")
		return nil, err
	}

	now := s.now()
	result := &Result{
		Serial:    serialNumber,
		Device:    entry.Device,
		Coverage:  warranty.DeviceCoverage(entry.Device, now),
		Repairs:   entry.Repairs,
		CheckedAt: now,
	}
	if d := entry.Device; d != nil {
		if d.WarrantyStart != nil {
			result.WarrantyStartPersian = calendar.GregorianToPersian(*d.WarrantyStart)
		}
		if d.WarrantyEnd != nil {
			result.WarrantyEndPersian = calendar.GregorianToPersian(*d.WarrantyEnd)
		}
	}

	s.observer.ObserveWarrantyLookup(string(result.Coverage.State))
	return result, nil
}

func (s *Service) load(ctx context.Context, serialNumber string) (*cachedLookup, error) {
	key := "warranty:" + serialNumber
	if entry, ok := s.fromCache(ctx, key); ok {
		return entry, nil
	}

	device, err := s.backend.DeviceBySerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	repairs, err := s.backend.RepairsForDevice(ctx, device.ID)
	if err != nil {
		s.logger.Warn("failed to load repairs for warranty lookup",
			zap.String("serial", serialNumber),
			zap.Int64("device_id", device.ID),
			zap.Error(err),
		)
		repairs = nil
	}
	if repairs == nil {
		repairs = make([]warranty.Repair, 0)
	}

	entry := &cachedLookup{Device: device, Repairs: repairs}
	s.toCache(ctx, key, entry)
	return entry, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*cachedLookup, bool) {
	if s.store == nil || s.ttl <= 0 {
		return nil, false
	}

	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("warranty cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	s.observer.ObserveCache(cacheName, ok)
	if !ok {
		return nil, false
	}

	var entry cachedLookup
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("discarding corrupt warranty cache entry", zap.String("key", key), zap.Error(err))
		_ = s.store.Delete(ctx, key)
		return nil, false
	}
	return &entry, true
}

func (s *Service) toCache(ctx context.Context, key string, entry *cachedLookup) {
	if s.store == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("warranty cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached answer for a serial
func (s *Service) Invalidate(ctx context.Context, serialNumber string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, "warranty:"+strings.TrimSpace(serialNumber))
}
