package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/geometry"
	"github.com/sanventru/odoomegastock-sub001/internal/production/recipe"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/shopspring/decimal"
)

// ConsumptionService 订单技术单（面积、重量、辅料）
type ConsumptionService struct {
	repos  *repository.Repositories
	uplift float64
}

func NewConsumptionService(repos *repository.Repositories, uplift float64) *ConsumptionService {
	if uplift < 0 {
		uplift = geometry.DefaultWasteUplift
	}
	return &ConsumptionService{repos: repos, uplift: uplift}
}

// TechnicalSheet 订单技术单
type TechnicalSheet struct {
	OrderID     string               `json:"order_id"`
	OrderNumber string               `json:"orden_produccion"`
	FluteCode   string               `json:"flauta"`
	TestName    string               `json:"test_name"`
	Quantity    int                  `json:"cantidad"`
	Printed     bool                 `json:"impreso"`
	Consumption geometry.Consumption `json:"consumo"`
	// 母卷单价已知时的纸张成本估算
	PaperCost *decimal.Decimal `json:"costo_papel,omitempty"`
}

// ForOrder 计算订单消耗；配方必须存在，楞型缺失时不补偿
func (s *ConsumptionService) ForOrder(ctx context.Context, orderID string) (*TechnicalSheet, error) {
	po, err := s.repos.ProductionOrder.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find production order: %w", err)
	}
	if po.TestName == "" {
		return nil, apperr.Wrap(apperr.ErrRecipeValidation, "order %s has no test", po.OrderNumber)
	}
	rec, err := s.repos.Recipe.FindByName(ctx, po.TestName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.ErrRecipeValidation, "unknown test %q", po.TestName)
	}
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	r := rec.ToRecipe()
	if err := recipe.Validate(r); err != nil {
		return nil, err
	}

	var flute *entity.Flute
	if po.FluteCode != "" {
		flute, err = s.repos.Flute.FindByCode(ctx, po.FluteCode)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find flute: %w", err)
		}
	}

	printed, coverage := false, 0.0
	if po.ProductCode != "" {
		if p, err := s.repos.Product.FindByCode(ctx, po.ProductCode); err == nil {
			printed, coverage = p.Printed, p.InkCoverage
		}
	}

	uplift := s.uplift
	c := geometry.Compute(geometry.ConsumptionInput{
		Product:      po.GeometryProduct(),
		Compensation: flute.Compensation(),
		Recipe:       r,
		Quantity:     po.Quantity,
		Printed:      printed,
		InkCoverage:  coverage,
		WasteUplift:  &uplift,
	})

	sheet := &TechnicalSheet{
		OrderID:     po.ID,
		OrderNumber: po.OrderNumber,
		FluteCode:   po.FluteCode,
		TestName:    po.TestName,
		Quantity:    po.Quantity,
		Printed:     printed,
		Consumption: c,
	}
	if cost, ok := s.paperCost(ctx, po.BobinaUsed, c.TotalPaperKg); ok {
		sheet.PaperCost = &cost
	}
	return sheet, nil
}

// paperCost 按所用母卷宽度的单价估算
func (s *ConsumptionService) paperCost(ctx context.Context, reelWidth, kg float64) (decimal.Decimal, bool) {
	if reelWidth <= 0 {
		return decimal.Zero, false
	}
	reels, err := s.repos.Bobina.List(ctx, true)
	if err != nil {
		return decimal.Zero, false
	}
	for _, b := range reels {
		if b.Width == reelWidth && b.CostPerKg.IsPositive() {
			return b.CostPerKg.Mul(decimal.NewFromFloat(kg)).Round(2), true
		}
	}
	return decimal.Zero, false
}
