package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogPlan is the server-side price list; client amounts are checked against it.
type CatalogPlan struct {
	BaseModel
	PlanKey  string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_catalog_plan_period" json:"-"`
	Name     string          `gorm:"type:varchar(100);not null" json:"plan"`
	Period   string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_catalog_plan_period" json:"period"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency string          `gorm:"type:varchar(3);not null;default:KES" json:"currency"`
	Active   bool            `gorm:"not null;default:true" json:"active"`
}

func (CatalogPlan) TableName() string { return "catalog_plans" }

func PlanKeyFor(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
