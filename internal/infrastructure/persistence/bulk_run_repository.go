package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marv/gateway/internal/domain/bulk"
	"github.com/marv/gateway/internal/domain/shared"
	"github.com/marv/gateway/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBulkRunRepository implements bulk.RunRepository using GORM
type GormBulkRunRepository struct {
	db *gorm.DB
}

// NewGormBulkRunRepository creates a new GormBulkRunRepository
func NewGormBulkRunRepository(db *gorm.DB) *GormBulkRunRepository {
	return &GormBulkRunRepository{db: db}
}

// FindByID finds a run by ID
func (r *GormBulkRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.Run, error) {
	var model models.BulkRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns runs newest first with pagination and filtering
func (r *GormBulkRunRepository) FindAll(ctx context.Context, filter bulk.RunFilter, page, pageSize int) (*bulk.RunListResult, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.BulkRunModel{}), filter)

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, err
	}

	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var runModels []models.BulkRunModel
	if err := query.Order(bulkRunOrder(filter.OrderBy, filter.OrderDir)).Find(&runModels).Error; err != nil {
		return nil, err
	}

	return &bulk.RunListResult{
		Items:      toDomainRuns(runModels),
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// FindUnfinished finds runs left pending or processing, oldest first
func (r *GormBulkRunRepository) FindUnfinished(ctx context.Context) ([]*bulk.Run, error) {
	var runModels []models.BulkRunModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []bulk.RunStatus{bulk.RunStatusPending, bulk.RunStatusProcessing}).
		Order("created_at ASC").
		Find(&runModels).Error; err != nil {
		return nil, err
	}
	return toDomainRuns(runModels), nil
}

// Save saves a run (create or update)
func (r *GormBulkRunRepository) Save(ctx context.Context, run *bulk.Run) error {
	return r.db.WithContext(ctx).Save(models.BulkRunModelFromDomain(run)).Error
}

// Delete deletes a run by ID
func (r *GormBulkRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BulkRunModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormBulkRunRepository) applyFilters(query *gorm.DB, filter bulk.RunFilter) *gorm.DB {
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RequestedBy != "" {
		query = query.Where("requested_by = ?", filter.RequestedBy)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func toDomainRuns(runModels []models.BulkRunModel) []*bulk.Run {
	runs := make([]*bulk.Run, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs
}

var _ bulk.RunRepository = (*GormBulkRunRepository)(nil)
