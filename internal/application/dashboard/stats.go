// Package dashboard aggregates the counters shown on the dashboard home page.
package dashboard

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marv/gateway/internal/domain/warranty"
)

// RecentLimit is how many devices and repairs Stats carries
const RecentLimit = 5

// Lister lists one backend collection. marvapi.Resource satisfies it.
type Lister[T any] interface {
	List(ctx context.Context, params url.Values) ([]T, error)
}

// Sources are the collections the dashboard counts
type Sources struct {
	Persons  Lister[warranty.Person]
	Products Lister[warranty.Product]
	Devices  Lister[warranty.Device]
	Repairs  Lister[warranty.Repair]
	Tests    Lister[warranty.TestRecord]
}

// Counts holds one total per collection
type Counts struct {
	Persons  int `json:"persons"`
	Products int `json:"products"`
	Devices  int `json:"devices"`
	Repairs  int `json:"repairs"`
	Tests    int `json:"tests"`
}

// Stats is the dashboard summary
type Stats struct {
	Counts           Counts                        `json:"counts"`
	DevicesByStatus  map[warranty.DeviceStatus]int `json:"devices_by_status"`
	ActiveWarranties int                           `json:"active_warranties"`
	WarrantyRepairs  int                           `json:"warranty_repairs"`
	RecentDevices    []warranty.Device             `json:"recent_devices"`
	RecentRepairs    []warranty.Repair             `json:"recent_repairs"`
	Unavailable      []string                      `json:"unavailable,omitempty"`
	GeneratedAt      time.Time                     `json:"generated_at"`
}

// Service builds dashboard statistics
type Service struct {
	sources Sources
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new dashboard Service
func NewService(sources Sources, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sources: sources, logger: logger, now: time.Now}
}

// Stats fetches every collection concurrently. A collection that fails to
// load counts as empty and is named in Unavailable.
func (s *Service) Stats(ctx context.Context) *Stats {
	var (
		persons  []warranty.Person
		products []warranty.Product
		devices  []warranty.Device
		repairs  []warranty.Repair
		tests    []warranty.TestRecord

		mu          sync.Mutex
		unavailable []string
	)

	markUnavailable := func(name string, err error) {
		s.logger.Warn("dashboard source unavailable", zap.String("source", name), zap.Error(err))
		mu.Lock()
		unavailable = append(unavailable, name)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		persons = fetch(ctx, "persons", s.sources.Persons, markUnavailable)
		return nil
	})
	g.Go(func() error {
		products = fetch(ctx, "products", s.sources.Products, markUnavailable)
		return nil
	})
	g.Go(func() error {
		devices = fetch(ctx, "devices", s.sources.Devices, markUnavailable)
		return nil
	})
	g.Go(func() error {
		repairs = fetch(ctx, "repairs", s.sources.Repairs, markUnavailable)
		return nil
	})
	g.Go(func() error {
		tests = fetch(ctx, "tests", s.sources.Tests, markUnavailable)
		return nil
	})
	_ = g.Wait()

	now := s.now()
	stats := &Stats{
		Counts: Counts{
			Persons:  len(persons),
			Products: len(products),
			Devices:  len(devices),
			Repairs:  len(repairs),
			Tests:    len(tests),
		},
		DevicesByStatus: make(map[warranty.DeviceStatus]int),
		RecentDevices:   head(devices, RecentLimit),
		RecentRepairs:   head(repairs, RecentLimit),
		GeneratedAt:     now,
	}

	for i := range devices {
		stats.DevicesByStatus[devices[i].Status]++
		if warranty.DeviceCoverage(&devices[i], now).IsActive() {
			stats.ActiveWarranties++
		}
	}
	for _, r := range repairs {
		if r.IsWarrantyRepair {
			stats.WarrantyRepairs++
		}
	}

	sort.Strings(unavailable)
	stats.Unavailable = unavailable
	return stats
}

func fetch[T any](ctx context.Context, name string, l Lister[T], onErr func(string, error)) []T {
	if l == nil {
		return nil
	}
	items, err := l.List(ctx, nil)
	if err != nil {
		onErr(name, err)
		return nil
	}
	return items
}

// head returns the first n items in backend order, never nil.
func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
