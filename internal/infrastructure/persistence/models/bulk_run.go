package models

import (
	"time"

	"github.com/marv/gateway/internal/domain/bulk"
)

// BulkRunModel is the persistence model for the bulk.Run aggregate
type BulkRunModel struct {
	AggregateModel
	Kind        bulk.RunKind   `gorm:"type:varchar(20);not null;index"`
	StartSerial string         `gorm:"type:varchar(128);not null"`
	EndSerial   string         `gorm:"type:varchar(128);not null"`
	Prefix      string         `gorm:"type:varchar(128)"`
	Total       int            `gorm:"not null;default:0"`
	Succeeded   int            `gorm:"not null;default:0"`
	FailedCount int            `gorm:"column:failed;not null;default:0"`
	Status      bulk.RunStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Failures    string         `gorm:"type:text"`
	RequestedBy string         `gorm:"type:varchar(150);index"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (BulkRunModel) TableName() string {
	return "bulk_runs"
}

// ToDomain converts the persistence model to a domain Run.
// Unreadable failure JSON yields an empty failure list.
func (m *BulkRunModel) ToDomain() *bulk.Run {
	run := &bulk.Run{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		StartSerial:       m.StartSerial,
		EndSerial:         m.EndSerial,
		Prefix:            m.Prefix,
		Total:             m.Total,
		Succeeded:         m.Succeeded,
		FailedCount:       m.FailedCount,
		Status:            m.Status,
		RequestedBy:       m.RequestedBy,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
	}
	if err := run.SetFailuresFromJSON(m.Failures); err != nil {
		run.Failures = make([]bulk.Failure, 0)
	}
	return run
}

// FromDomain populates the persistence model from a domain Run
func (m *BulkRunModel) FromDomain(r *bulk.Run) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Kind = r.Kind
	m.StartSerial = r.StartSerial
	m.EndSerial = r.EndSerial
	m.Prefix = r.Prefix
	m.Total = r.Total
	m.Succeeded = r.Succeeded
	m.FailedCount = r.FailedCount
	m.Status = r.Status
	m.RequestedBy = r.RequestedBy
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt

	if failures, err := r.FailuresJSON(); err == nil {
		m.Failures = failures
	} else {
		m.Failures = "[]"
	}
}

// BulkRunModelFromDomain creates a new persistence model from a domain Run
func BulkRunModelFromDomain(r *bulk.Run) *BulkRunModel {
	m := &BulkRunModel{}
	m.FromDomain(r)
	return m
}
