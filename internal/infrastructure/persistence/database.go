package persistence

import (
	"fmt"
	"time"

	"github.com/marv/gateway/internal/infrastructure/config"
	"github.com/marv/gateway/internal/infrastructure/persistence/models"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	driver string
}

type options struct {
	gorm    *gorm.Config
	tracing []otelgorm.Option
}

// Option configures NewDatabase
type Option func(*options)

// WithLogger routes GORM output through l
func WithLogger(l gormlogger.Interface) Option {
	return func(o *options) {
		o.gorm.Logger = l
	}
}

// WithTracing registers the otelgorm plugin so every query gets a span. A nil
// tp uses the global tracer provider. Query variables are left out of span
// statements unless withVariables is set.
func WithTracing(tp trace.TracerProvider, withVariables bool) Option {
	return func(o *options) {
		o.tracing = []otelgorm.Option{}
		if tp != nil {
			o.tracing = append(o.tracing, otelgorm.WithTracerProvider(tp))
		}
		if !withVariables {
			o.tracing = append(o.tracing, otelgorm.WithoutQueryVariables())
		}
	}
}

// NewDatabase opens the configured database (sqlite or postgres) and checks it with a ping
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := &options{gorm: &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	}}
	for _, opt := range opts {
		opt(o)
	}
	gormCfg := o.gorm

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
		gormCfg.PrepareStmt = true
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing != nil {
		dbName := "sqlite"
		if cfg.Driver == "postgres" {
			dbName = cfg.DBName
		}
		plugin := otelgorm.NewPlugin(append(o.tracing, otelgorm.WithDBName(dbName))...)
		if err := db.Use(plugin); err != nil {
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver != "postgres" {
		// sqlite allows a single writer, and every ":memory:" connection is its own database.
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, driver: cfg.Driver}, nil
}

// Migrate creates or updates the gateway's tables
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(&models.BulkRunModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.driver
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}
