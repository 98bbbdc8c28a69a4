package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
)

// OrderService 生产订单维护
type OrderService struct {
	repos *repository.Repositories
}

func NewOrderService(repos *repository.Repositories) *OrderService {
	return &OrderService{repos: repos}
}

// OrderRequest 创建/修改订单，指针字段为空表示不修改
type OrderRequest struct {
	OrderNumber    *string    `json:"orden_produccion"`
	Client         *string    `json:"cliente"`
	CustomerOrder  *string    `json:"pedido"`
	ProductCode    *string    `json:"codigo"`
	Description    *string    `json:"descripcion"`
	FluteCode      *string    `json:"flauta"`
	TestName       *string    `json:"test_name"`
	Length         *float64   `json:"largo"`
	Width          *float64   `json:"ancho"`
	Height         *float64   `json:"alto"`
	Ceja           *float64   `json:"ceja"`
	Quantity       *int       `json:"cantidad"`
	Cavity         *int       `json:"cavidad"`
	OrderDate      *time.Time `json:"fecha_pedido_cliente"`
	DueDate        *time.Time `json:"fecha_entrega_cliente"`
	ProductionDate *time.Time `json:"fecha_produccion"`
	DeliveredQty   *int       `json:"cantidad_entregada"`
}

func (s *OrderService) Create(ctx context.Context, req *OrderRequest) (*entity.ProductionOrder, error) {
	po := &entity.ProductionOrder{
		ID:     uuid.New().String(),
		Status: entity.POStatusPending,
		Cavity: 1,
	}
	if err := applyOrder(po, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(po.Client) == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "client is required")
	}
	if err := s.ensureUniqueNumber(ctx, po.OrderNumber, ""); err != nil {
		return nil, err
	}
	if err := s.repos.ProductionOrder.Create(ctx, po); err != nil {
		return nil, fmt.Errorf("create production order: %w", err)
	}
	return po, nil
}

// Update 已排产的订单需先撤销排产
func (s *OrderService) Update(ctx context.Context, id string, req *OrderRequest) (*entity.ProductionOrder, error) {
	po, err := s.repos.ProductionOrder.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find production order: %w", err)
	}
	if po.Status != entity.POStatusPending || po.GroupID != "" {
		return nil, apperr.Wrap(apperr.ErrStateMachineIllegal, "order %s is planned (%s), reset planning first", po.OrderNumber, po.Status)
	}
	if err := applyOrder(po, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(po.Client) == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "client is required")
	}
	if err := s.ensureUniqueNumber(ctx, po.OrderNumber, po.ID); err != nil {
		return nil, err
	}
	if err := s.repos.ProductionOrder.Save(ctx, po); err != nil {
		return nil, fmt.Errorf("update production order: %w", err)
	}
	return po, nil
}

func (s *OrderService) ensureUniqueNumber(ctx context.Context, number, selfID string) error {
	if number == "" {
		return nil
	}
	existing, err := s.repos.ProductionOrder.FindByOrderNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check order number: %w", err)
	}
	if existing.ID != selfID {
		return apperr.Wrap(apperr.ErrInterface, "order number %s already exists", number)
	}
	return nil
}

func applyOrder(po *entity.ProductionOrder, req *OrderRequest) error {
	str := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	str(&po.OrderNumber, req.OrderNumber)
	str(&po.Client, req.Client)
	str(&po.CustomerOrder, req.CustomerOrder)
	str(&po.ProductCode, req.ProductCode)
	str(&po.Description, req.Description)
	str(&po.TestName, req.TestName)
	if req.FluteCode != nil {
		po.FluteCode = entity.NormalizeFluteCode(*req.FluteCode)
	}

	for _, v := range []*float64{req.Length, req.Width, req.Height, req.Ceja} {
		if v != nil && *v < 0 {
			return apperr.Wrap(apperr.ErrInterface, "dimensions cannot be negative")
		}
	}
	if req.Length != nil {
		po.Length = *req.Length
	}
	if req.Width != nil {
		po.Width = *req.Width
	}
	if req.Height != nil {
		po.Height = *req.Height
	}
	if req.Ceja != nil {
		po.Ceja = *req.Ceja
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return apperr.Wrap(apperr.ErrInterface, "quantity cannot be negative")
		}
		po.Quantity = *req.Quantity
	}
	if req.Cavity != nil {
		if *req.Cavity <= 0 {
			return apperr.Wrap(apperr.ErrInterface, "cavity must be positive")
		}
		po.Cavity = *req.Cavity
	}
	if req.DeliveredQty != nil {
		po.DeliveredQty = *req.DeliveredQty
	}
	if req.OrderDate != nil {
		po.OrderDate = req.OrderDate
	}
	if req.DueDate != nil {
		po.DueDate = req.DueDate
	}
	if req.ProductionDate != nil {
		po.ProductionDate = req.ProductionDate
	}
	return nil
}

// OrderView 订单及派生值
type OrderView struct {
	entity.ProductionOrder
	Cuts              int     `json:"cortes"`
	LinearMeters      float64 `json:"metros_lineales"`
	CompliancePercent float64 `json:"cumplimiento_pct"`
}

func newOrderView(po entity.ProductionOrder) OrderView {
	return OrderView{
		ProductionOrder:   po,
		Cuts:              po.Cuts(),
		LinearMeters:      round2(po.LinearMeters()),
		CompliancePercent: round2(po.CompliancePercent()),
	}
}

func (s *OrderService) Get(ctx context.Context, id string) (*OrderView, error) {
	po, err := s.repos.ProductionOrder.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find production order: %w", err)
	}
	v := newOrderView(*po)
	return &v, nil
}

func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) ([]OrderView, int64, error) {
	list, total, err := s.repos.ProductionOrder.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list production orders: %w", err)
	}
	views := make([]OrderView, 0, len(list))
	for _, po := range list {
		views = append(views, newOrderView(po))
	}
	return views, total, nil
}
