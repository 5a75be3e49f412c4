// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns. Repositories convert between the two.
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - bulk_run.go: Bulk provisioning runs and their per-serial failures
package models
