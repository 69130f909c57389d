package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"launchpad_backend/internal/models"
)

var ErrPlanNotFound = errors.New("catalog plan not found")

type CatalogRepository interface {
	FindPlan(ctx context.Context, name, period string) (*models.CatalogPlan, error)
	ListActive(ctx context.Context) ([]models.CatalogPlan, error)
	Upsert(ctx context.Context, plan *models.CatalogPlan) error
}

type CatalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &CatalogRepositoryImpl{db: db}
}

// FindPlan matches the plan name case-insensitively.
func (r *CatalogRepositoryImpl) FindPlan(ctx context.Context, name, period string) (*models.CatalogPlan, error) {
	var plan models.CatalogPlan
	err := r.db.WithContext(ctx).
		Where("plan_key = ? AND period = ? AND active = ?", models.PlanKeyFor(name), period, true).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *CatalogRepositoryImpl) ListActive(ctx context.Context) ([]models.CatalogPlan, error) {
	var plans []models.CatalogPlan
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("plan_key ASC, price ASC").
		Find(&plans).Error
	return plans, err
}

// Upsert inserts the plan or refreshes price and name of an existing (plan, period).
func (r *CatalogRepositoryImpl) Upsert(ctx context.Context, plan *models.CatalogPlan) error {
	plan.PlanKey = models.PlanKeyFor(plan.Name)
	if plan.Currency == "" {
		plan.Currency = "KES"
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_key"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "currency", "active", "updated_at"}),
	}).Create(plan).Error
}
