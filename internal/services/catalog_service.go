package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"launchpad_backend/internal/config"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

type CatalogService interface {
	ListPlans(ctx context.Context) ([]dto.PlanResponse, error)
	Price(ctx context.Context, plan, period string) (*models.CatalogPlan, error)
	Seed(ctx context.Context, entries []config.PlanPrice) error
}

type CatalogServiceImpl struct {
	catalog repositories.CatalogRepository
}

func NewCatalogService(catalog repositories.CatalogRepository) CatalogService {
	return &CatalogServiceImpl{catalog: catalog}
}

func (s *CatalogServiceImpl) ListPlans(ctx context.Context) ([]dto.PlanResponse, error) {
	plans, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, dto.PlanResponse{Plan: p.Name, Period: p.Period, Price: p.Price, Currency: p.Currency})
	}
	return out, nil
}

// Price is the only source of truth for what a plan costs.
func (s *CatalogServiceImpl) Price(ctx context.Context, plan, period string) (*models.CatalogPlan, error) {
	p, err := s.catalog.FindPlan(ctx, plan, period)
	if err != nil {
		if errors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrUnknownPlan.WithDetails(map[string]string{"plan": plan, "period": period})
		}
		return nil, apperrors.DatabaseError(err)
	}
	return p, nil
}

func (s *CatalogServiceImpl) Seed(ctx context.Context, entries []config.PlanPrice) error {
	for _, e := range entries {
		price, err := decimal.NewFromString(e.Price)
		if err != nil || !price.IsPositive() {
			return fmt.Errorf("catalog entry %s/%s: invalid price %q", e.Plan, e.Period, e.Price)
		}
		plan := &models.CatalogPlan{Name: e.Plan, Period: e.Period, Price: price, Active: true}
		if err := s.catalog.Upsert(ctx, plan); err != nil {
			return fmt.Errorf("catalog entry %s/%s: %w", e.Plan, e.Period, err)
		}
	}
	logger.Info("catalog seeded", "plans", len(entries))
	return nil
}
