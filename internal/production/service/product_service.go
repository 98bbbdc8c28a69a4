package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
)

// ProductService 产品目录
type ProductService struct {
	repos      *repository.Repositories
	autoCoding bool
}

func NewProductService(repos *repository.Repositories, autoCoding bool) *ProductService {
	return &ProductService{repos: repos, autoCoding: autoCoding}
}

type ProductRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	FluteCode   *string  `json:"flute_code"`
	TestName    *string  `json:"test_name"`
	Length      *float64 `json:"length"`
	Width       *float64 `json:"width"`
	Height      *float64 `json:"height"`
	Ceja        *float64 `json:"ceja"`
	Printed     *bool    `json:"printed"`
	InkCoverage *float64 `json:"ink_coverage"`
}

// Create 开启自动编码且未填编码时按类别生成 <CAT>-<NNNNN>
func (s *ProductService) Create(ctx context.Context, req *ProductRequest) (*entity.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "product name is required")
	}
	category := req.Category
	if category == "" {
		category = entity.CategoryOtros
	}
	if !entity.ValidCategory(category) {
		return nil, apperr.Wrap(apperr.ErrInterface, "unknown category %q", category)
	}

	p := &entity.Product{
		ID:       uuid.New().String(),
		Code:     strings.TrimSpace(req.Code),
		Name:     name,
		Category: category,
	}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}

	if p.Code == "" {
		if !s.autoCoding {
			return nil, apperr.Wrap(apperr.ErrInterface, "product code is required")
		}
		code, err := s.nextCode(ctx, category)
		if err != nil {
			return nil, err
		}
		p.Code = code
	}

	if err := s.repos.Product.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrInterface, "product code %s already exists", p.Code)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *ProductService) nextCode(ctx context.Context, category string) (string, error) {
	prefix := entity.CategoryPrefix(category) + "-"
	seq, err := s.repos.Product.NextCode(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("next product code: %w", err)
	}
	return fmt.Sprintf("%s%05d", prefix, seq), nil
}

func (s *ProductService) Update(ctx context.Context, id string, req *ProductRequest) (*entity.Product, error) {
	p, err := s.repos.Product.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if n := strings.TrimSpace(req.Name); n != "" {
		p.Name = n
	}
	if c := strings.TrimSpace(req.Code); c != "" {
		p.Code = c
	}
	if req.Category != "" {
		if !entity.ValidCategory(req.Category) {
			return nil, apperr.Wrap(apperr.ErrInterface, "unknown category %q", req.Category)
		}
		p.Category = req.Category
	}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}
	if err := s.repos.Product.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func applyProduct(p *entity.Product, req *ProductRequest) error {
	if req.FluteCode != nil {
		p.FluteCode = entity.NormalizeFluteCode(*req.FluteCode)
	}
	if req.TestName != nil {
		p.TestName = strings.TrimSpace(*req.TestName)
	}
	for _, v := range []*float64{req.Length, req.Width, req.Height, req.Ceja} {
		if v != nil && *v < 0 {
			return apperr.Wrap(apperr.ErrInterface, "dimensions cannot be negative")
		}
	}
	if req.Length != nil {
		p.Length = *req.Length
	}
	if req.Width != nil {
		p.Width = *req.Width
	}
	if req.Height != nil {
		p.Height = *req.Height
	}
	if req.Ceja != nil {
		p.Ceja = *req.Ceja
	}
	if req.Printed != nil {
		p.Printed = *req.Printed
	}
	if req.InkCoverage != nil {
		if *req.InkCoverage < 0 || *req.InkCoverage > 1 {
			return apperr.Wrap(apperr.ErrInterface, "ink coverage must be between 0 and 1")
		}
		p.InkCoverage = *req.InkCoverage
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.repos.Product.FindByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context, params repository.ProductListParams) ([]entity.Product, int64, error) {
	return s.repos.Product.List(ctx, params)
}
