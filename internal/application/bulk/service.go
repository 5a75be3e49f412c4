package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marv/gateway/internal/domain/bulk"
	"github.com/marv/gateway/internal/domain/calendar"
	"github.com/marv/gateway/internal/domain/serial"
	"github.com/marv/gateway/internal/domain/shared"
	"github.com/marv/gateway/internal/domain/warranty"
)

// Failure codes recorded against individual serials
const (
	FailureDeviceNotFound = "DEVICE_NOT_FOUND"
	FailureUpstream       = "UPSTREAM_ERROR"
	FailureCancelled      = "CANCELLED"
	FailureInterrupted    = "INTERRUPTED"
)

// Backend is the subset of the warranty backend API used by bulk runs
type Backend interface {
	CreateDevicesBulk(ctx context.Context, devices []warranty.Device) ([]warranty.Device, error)
	DeviceBySerial(ctx context.Context, serial string) (*warranty.Device, error)
	CreateTest(ctx context.Context, test *warranty.TestRecord) (*warranty.TestRecord, error)
}

// Observer receives run outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveBulkRun(kind, status string, succeeded, failed int)
	ObserveSerialsExpanded(n int)
}

type noopObserver struct{}

func (noopObserver) ObserveBulkRun(string, string, int, int) {}
func (noopObserver) ObserveSerialsExpanded(int)              {}

// Config bounds the size and parallelism of runs
type Config struct {
	MaxRangeSize int64
	Concurrency  int
}

// Service expands serial ranges and provisions devices and tests over them
type Service struct {
	backend  Backend
	runs     bulk.RunRepository
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the run observer
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService creates a new bulk Service
func NewService(backend Backend, runs bulk.RunRepository, cfg Config, opts ...Option) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	s := &Service{
		backend:  backend,
		runs:     runs,
		cfg:      cfg,
		logger:   zap.NewNop(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RangeInput is a serial range as typed by a user
type RangeInput struct {
	StartSerial string
	EndSerial   string
	Prefix      string
}

func (in RangeInput) normalize() RangeInput {
	return RangeInput{
		StartSerial: strings.TrimSpace(calendar.ToLatinDigits(in.StartSerial)),
		EndSerial:   strings.TrimSpace(calendar.ToLatinDigits(in.EndSerial)),
		Prefix:      calendar.ToLatinDigits(in.Prefix),
	}
}

// Expand validates a range against the configured size limit and returns it with its serials
func (s *Service) Expand(in RangeInput) (serial.Range, []string, error) {
	r, err := s.parse(in)
	if err != nil {
		return serial.Range{}, nil, err
	}
	serials := r.Serials()
	s.observer.ObserveSerialsExpanded(len(serials))
	return r, serials, nil
}

func (s *Service) parse(in RangeInput) (serial.Range, error) {
	in = in.normalize()
	r, err := serial.Parse(in.StartSerial, in.EndSerial, in.Prefix)
	if err != nil {
		return serial.Range{}, err
	}
	if err := r.Limit(s.cfg.MaxRangeSize); err != nil {
		return serial.Range{}, err
	}
	return r, nil
}

// DeviceRequest creates one device per serial, all sharing the same attributes
type DeviceRequest struct {
	RangeInput
	ProductID     *int64
	AssembledBy   *int64
	TestedBy      *int64
	AssemblyDate  string
	TestDate      string
	WarrantyStart string
	WarrantyEnd   string
	Status        warranty.DeviceStatus
	Note          string
	RequestedBy   string
}

// TestRequest records the same test against every device in the range
type TestRequest struct {
	RangeInput
	TesterID    *int64
	TestName    string
	TestDate    string
	Result      warranty.TestResult
	Notes       string
	RequestedBy string
}

// CreateDevices expands the range and creates every device in a single
// backend call. A backend failure fails the whole run and is returned.
func (s *Service) CreateDevices(ctx context.Context, req DeviceRequest) (*bulk.Run, error) {
	status := req.Status
	if status == "" {
		status = warranty.DeviceStatusActive
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_DEVICE_STATUS", fmt.Sprintf("Invalid device status: %s", status))
	}

	r, err := s.parse(req.RangeInput)
	if err != nil {
		return nil, err
	}
	serials := r.Serials()
	s.observer.ObserveSerialsExpanded(len(serials))

	run, err := s.startRun(ctx, bulk.RunKindDevices, req.RangeInput, r, len(serials), req.RequestedBy)
	if err != nil {
		return nil, err
	}

	devices := make([]warranty.Device, len(serials))
	for i, sn := range serials {
		devices[i] = warranty.Device{
			SerialNumber:  sn,
			ProductID:     req.ProductID,
			AssembledBy:   req.AssembledBy,
			TestedBy:      req.TestedBy,
			AssemblyDate:  warranty.StringPtr(req.AssemblyDate),
			TestDate:      warranty.StringPtr(req.TestDate),
			WarrantyStart: warranty.StringPtr(req.WarrantyStart),
			WarrantyEnd:   warranty.StringPtr(req.WarrantyEnd),
			Status:        status,
			Note:          req.Note,
		}
	}

	if _, err := s.backend.CreateDevicesBulk(ctx, devices); err != nil {
		code, msg := failureOf(err)
		if failErr := run.Fail([]bulk.Failure{{Code: code, Message: msg}}); failErr != nil {
			return nil, failErr
		}
		createErr := fmt.Errorf("bulk device creation failed: %w", err)
		return run, errors.Join(createErr, s.finish(ctx, run))
	}

	if err := run.Complete(len(serials), nil); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// CreateTests expands the range, resolves each serial to a device and records
// one test per device. Serials are processed concurrently and fail independently.
func (s *Service) CreateTests(ctx context.Context, req TestRequest) (*bulk.Run, error) {
	if strings.TrimSpace(req.TestName) == "" {
		return nil, shared.NewDomainError("INVALID_TEST_NAME", "Test name is required")
	}
	result := req.Result
	if result == "" {
		result = warranty.TestResultPassed
	}
	if !result.IsValid() {
		return nil, shared.NewDomainError("INVALID_TEST_RESULT", fmt.Sprintf("Invalid test result: %s", result))
	}

	r, err := s.parse(req.RangeInput)
	if err != nil {
		return nil, err
	}
	serials := r.Serials()
	s.observer.ObserveSerialsExpanded(len(serials))

	run, err := s.startRun(ctx, bulk.RunKindTests, req.RangeInput, r, len(serials), req.RequestedBy)
	if err != nil {
		return nil, err
	}

	errs := make([]error, len(serials))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, sn := range serials {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = s.createTest(ctx, sn, req, result)
			return nil
		})
	}
	_ = g.Wait()

	failures := make([]bulk.Failure, 0)
	for i, err := range errs {
		if err == nil {
			continue
		}
		code, msg := failureOf(err)
		failures = append(failures, bulk.Failure{Serial: serials[i], Code: code, Message: msg})
	}

	if err := run.Complete(len(serials)-len(failures), failures); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		s.logger.Warn("bulk test run finished with failures",
			zap.String("run_id", run.ID.String()),
			zap.Int("failed", len(failures)),
			zap.Int("total", run.Total),
		)
	}
	if err := s.finish(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

func (s *Service) createTest(ctx context.Context, sn string, req TestRequest, result warranty.TestResult) error {
	device, err := s.backend.DeviceBySerial(ctx, sn)
	if err != nil {
		return err
	}
	_, err = s.backend.CreateTest(ctx, &warranty.TestRecord{
		DeviceID: device.ID,
		TesterID: req.TesterID,
		TestName: strings.TrimSpace(req.TestName),
		TestDate: warranty.StringPtr(req.TestDate),
		Result:   result,
		Notes:    req.Notes,
	})
	return err
}

func (s *Service) startRun(ctx context.Context, kind bulk.RunKind, in RangeInput, r serial.Range, total int, requestedBy string) (*bulk.Run, error) {
	in = in.normalize()
	run, err := bulk.NewRun(kind, in.StartSerial, in.EndSerial, r.Prefix, requestedBy)
	if err != nil {
		return nil, err
	}
	if err := run.Start(total); err != nil {
		return nil, err
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save bulk run: %w", err)
	}
	s.logger.Info("bulk run started",
		zap.String("run_id", run.ID.String()),
		zap.String("kind", string(kind)),
		zap.Int("total", total),
	)
	return run, nil
}

// finish persists a terminal run. The caller's context may already be
// cancelled, so the save gets its own deadline.
func (s *Service) finish(ctx context.Context, run *bulk.Run) error {
	s.observer.ObserveBulkRun(string(run.Kind), string(run.Status), run.Succeeded, run.FailedCount)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Save(saveCtx, run); err != nil {
		s.logger.Error("failed to save bulk run", zap.String("run_id", run.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to save bulk run: %w", err)
	}

	s.logger.Info("bulk run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.FailedCount),
		zap.Duration("duration", run.Duration()),
	)
	return nil
}

// GetRun returns a run by ID
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*bulk.Run, error) {
	return s.runs.FindByID(ctx, id)
}

// ListRunsFilter holds the optional, untyped filters accepted from callers.
// Unknown kinds and statuses are ignored.
type ListRunsFilter struct {
	Kind        string
	Status      string
	RequestedBy string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	OrderBy     string
	OrderDir    string
}

// ListRuns returns runs newest first unless another order is requested
func (s *Service) ListRuns(ctx context.Context, filter ListRunsFilter, page, pageSize int) (*bulk.RunListResult, error) {
	repoFilter := bulk.RunFilter{
		RequestedBy: filter.RequestedBy,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		OrderBy:     filter.OrderBy,
		OrderDir:    filter.OrderDir,
	}

	if filter.Kind != "" {
		kind := bulk.RunKind(filter.Kind)
		if kind.IsValid() {
			repoFilter.Kind = &kind
		}
	}

	if filter.Status != "" {
		status := bulk.RunStatus(filter.Status)
		if status.IsValid() {
			repoFilter.Status = &status
		}
	}

	return s.runs.FindAll(ctx, repoFilter, page, pageSize)
}

// RecoverInterrupted fails runs that a previous process left unfinished.
// It returns the number of runs recovered.
func (s *Service) RecoverInterrupted(ctx context.Context) (int, error) {
	runs, err := s.runs.FindUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load unfinished runs: %w", err)
	}

	recovered := 0
	for _, run := range runs {
		if err := run.Fail([]bulk.Failure{{Code: FailureInterrupted, Message: "Run was interrupted before it finished"}}); err != nil {
			continue
		}
		if err := s.runs.Save(ctx, run); err != nil {
			return recovered, fmt.Errorf("failed to save run %s: %w", run.ID, err)
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Warn("marked interrupted bulk runs as failed", zap.Int("count", recovered))
	}
	return recovered, nil
}

func failureOf(err error) (code, message string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled, err.Error()
	case errors.Is(err, shared.ErrNotFound):
		return FailureDeviceNotFound, "Device not found"
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code, err.Error()
	}
	return FailureUpstream, err.Error()
}
