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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService 楞型、母卷、工作中心基础数据
type CatalogService struct {
	repos  *repository.Repositories
	cache  *CatalogCache
	logger *zap.Logger
}

func NewCatalogService(repos *repository.Repositories, cache *CatalogCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{repos: repos, cache: cache, logger: logger}
}

// ==================== 楞型 ====================

type FluteRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	DeltaLength *float64 `json:"compensacion_largo"`
	DeltaWidth  *float64 `json:"compensacion_ancho"`
	DeltaHeight *float64 `json:"compensacion_alto"`
	Active      *bool    `json:"active"`
}

func (s *CatalogService) CreateFlute(ctx context.Context, req *FluteRequest) (*entity.Flute, error) {
	code := entity.NormalizeFluteCode(req.Code)
	if code == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "flute code is required")
	}
	f := &entity.Flute{
		ID:     uuid.New().String(),
		Code:   code,
		Name:   req.Name,
		Active: true,
	}
	applyFlute(f, req)
	if err := s.repos.Flute.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrInterface, "flute %s already exists", code)
		}
		return nil, fmt.Errorf("create flute: %w", err)
	}
	s.cache.Invalidate(ctx)
	return f, nil
}

func (s *CatalogService) UpdateFlute(ctx context.Context, id string, req *FluteRequest) (*entity.Flute, error) {
	f, err := s.repos.Flute.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find flute: %w", err)
	}
	if req.Code != "" {
		f.Code = entity.NormalizeFluteCode(req.Code)
	}
	if req.Name != "" {
		f.Name = req.Name
	}
	applyFlute(f, req)
	if err := s.repos.Flute.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update flute: %w", err)
	}
	s.cache.Invalidate(ctx)
	return f, nil
}

func applyFlute(f *entity.Flute, req *FluteRequest) {
	if req.DeltaLength != nil {
		f.DeltaLength = *req.DeltaLength
	}
	if req.DeltaWidth != nil {
		f.DeltaWidth = *req.DeltaWidth
	}
	if req.DeltaHeight != nil {
		f.DeltaHeight = *req.DeltaHeight
	}
	if req.Active != nil {
		f.Active = *req.Active
	}
}

func (s *CatalogService) GetFlute(ctx context.Context, id string) (*entity.Flute, error) {
	return s.repos.Flute.FindByID(ctx, id)
}

func (s *CatalogService) ListFlutes(ctx context.Context) ([]entity.Flute, error) {
	return s.repos.Flute.List(ctx)
}

// ==================== 母卷 ====================

type BobinaRequest struct {
	Code         string           `json:"code"`
	Width        *float64         `json:"ancho"`
	Description  *string          `json:"descripcion"`
	Active       *bool            `json:"activa"`
	Supplier     *string          `json:"proveedor"`
	StockMin     *float64         `json:"stock_minimo"`
	StockCurrent *float64         `json:"stock_actual"`
	CostPerKg    *decimal.Decimal `json:"costo_kg"`
	Notes        *string          `json:"notas"`
}

func (s *CatalogService) CreateBobina(ctx context.Context, req *BobinaRequest) (*entity.Bobina, error) {
	if req.Width == nil || *req.Width <= 0 {
		return nil, apperr.Wrap(apperr.ErrInterface, "reel width must be positive")
	}
	b := &entity.Bobina{
		ID:     uuid.New().String(),
		Code:   strings.TrimSpace(req.Code),
		Active: true,
	}
	if b.Code == "" {
		b.Code = fmt.Sprintf("BOB-%.0f", *req.Width)
	}
	if err := applyBobina(b, req); err != nil {
		return nil, err
	}
	if err := s.repos.Bobina.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrInterface, "reel %s already exists", b.Code)
		}
		return nil, fmt.Errorf("create bobina: %w", err)
	}
	s.cache.Invalidate(ctx)
	return b, nil
}

func (s *CatalogService) UpdateBobina(ctx context.Context, id string, req *BobinaRequest) (*entity.Bobina, error) {
	b, err := s.repos.Bobina.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find bobina: %w", err)
	}
	if req.Code != "" {
		b.Code = strings.TrimSpace(req.Code)
	}
	if err := applyBobina(b, req); err != nil {
		return nil, err
	}
	if err := s.repos.Bobina.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update bobina: %w", err)
	}
	s.cache.Invalidate(ctx)
	return b, nil
}

func applyBobina(b *entity.Bobina, req *BobinaRequest) error {
	if req.Width != nil {
		if *req.Width <= 0 {
			return apperr.Wrap(apperr.ErrInterface, "reel width must be positive")
		}
		b.Width = *req.Width
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Active != nil {
		b.Active = *req.Active
	}
	if req.Supplier != nil {
		b.Supplier = *req.Supplier
	}
	if req.StockMin != nil {
		b.StockMin = *req.StockMin
	}
	if req.StockCurrent != nil {
		b.StockCurrent = *req.StockCurrent
	}
	if req.CostPerKg != nil {
		if req.CostPerKg.IsNegative() {
			return apperr.Wrap(apperr.ErrInterface, "cost per kg cannot be negative")
		}
		b.CostPerKg = *req.CostPerKg
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
	return nil
}

func (s *CatalogService) GetBobina(ctx context.Context, id string) (*entity.Bobina, error) {
	return s.repos.Bobina.FindByID(ctx, id)
}

func (s *CatalogService) ListBobinas(ctx context.Context, activeOnly bool) ([]entity.Bobina, error) {
	return s.repos.Bobina.List(ctx, activeOnly)
}

// ==================== 初始数据 ====================

// CatalogSeed 初始基础数据（configs/catalog.yaml）
type CatalogSeed struct {
	Flutes []struct {
		Code        string  `yaml:"code"`
		Name        string  `yaml:"name"`
		DeltaLength float64 `yaml:"delta_length"`
		DeltaWidth  float64 `yaml:"delta_width"`
		DeltaHeight float64 `yaml:"delta_height"`
	} `yaml:"flutes"`
	Bobinas []struct {
		Code        string  `yaml:"code"`
		Width       float64 `yaml:"width"`
		Description string  `yaml:"description"`
		Supplier    string  `yaml:"supplier"`
		CostPerKg   string  `yaml:"cost_per_kg"`
	} `yaml:"bobinas"`
}

// SeedResult 初始化统计
type SeedResult struct {
	Flutes  int `json:"flutes"`
	Bobinas int `json:"bobinas"`
}

// Seed 写入楞型与母卷；已存在的编码跳过。seed 为空或无母卷时写入默认宽度
func (s *CatalogService) Seed(ctx context.Context, seed *CatalogSeed) (*SeedResult, error) {
	res := &SeedResult{}
	if seed == nil {
		seed = &CatalogSeed{}
	}
	for _, fs := range seed.Flutes {
		f := &entity.Flute{
			ID:          uuid.New().String(),
			Code:        entity.NormalizeFluteCode(fs.Code),
			Name:        fs.Name,
			DeltaLength: fs.DeltaLength,
			DeltaWidth:  fs.DeltaWidth,
			DeltaHeight: fs.DeltaHeight,
			Active:      true,
		}
		if _, err := s.repos.Flute.FindByCode(ctx, f.Code); err == nil {
			continue
		}
		if err := s.repos.Flute.Create(ctx, f); err != nil {
			return res, fmt.Errorf("seed flute %s: %w", f.Code, err)
		}
		res.Flutes++
	}

	existing, err := s.repos.Bobina.List(ctx, false)
	if err != nil {
		return res, fmt.Errorf("list bobinas: %w", err)
	}
	codes := make(map[string]bool, len(existing))
	for _, b := range existing {
		codes[b.Code] = true
	}

	type reelSeed struct {
		code, desc, supplier string
		width                float64
		cost                 decimal.Decimal
	}
	var reels []reelSeed
	for _, bs := range seed.Bobinas {
		cost := decimal.Zero
		if bs.CostPerKg != "" {
			cost, err = decimal.NewFromString(bs.CostPerKg)
			if err != nil {
				return res, fmt.Errorf("reel %s cost: %w", bs.Code, err)
			}
		}
		reels = append(reels, reelSeed{code: bs.Code, desc: bs.Description, supplier: bs.Supplier, width: bs.Width, cost: cost})
	}
	if len(reels) == 0 && len(existing) == 0 {
		for _, w := range entity.DefaultBobinaWidths {
			reels = append(reels, reelSeed{code: fmt.Sprintf("BOB-%.0f", w), desc: fmt.Sprintf("Bobina %.0f mm", w), width: w, cost: decimal.Zero})
		}
	}

	for _, r := range reels {
		if r.width <= 0 || codes[r.code] {
			continue
		}
		b := &entity.Bobina{
			ID:          uuid.New().String(),
			Code:        r.code,
			Width:       r.width,
			Description: r.desc,
			Supplier:    r.supplier,
			CostPerKg:   r.cost,
			Active:      true,
		}
		if err := s.repos.Bobina.Create(ctx, b); err != nil {
			return res, fmt.Errorf("seed bobina %s: %w", r.code, err)
		}
		codes[r.code] = true
		res.Bobinas++
	}

	if res.Flutes > 0 || res.Bobinas > 0 {
		s.cache.Invalidate(ctx)
		s.logger.Info("catalog seeded", zap.Int("flutes", res.Flutes), zap.Int("bobinas", res.Bobinas))
	}
	return res, nil
}

// ==================== 工作中心 ====================

type WorkCenterRequest struct {
	Name                     string   `json:"name"`
	Code                     *string  `json:"code"`
	PowerConsumptionKW       *float64 `json:"power_consumption_kw"`
	CompressedAirConsumption *float64 `json:"compressed_air_consumption"`
	HydraulicOilConsumption  *float64 `json:"hydraulic_oil_consumption"`
	LubricantConsumption     *float64 `json:"lubricant_consumption"`
	MaxWidthMM               *float64 `json:"max_width_mm"`
	MaxLengthMM              *float64 `json:"max_length_mm"`
	MaxThicknessMM           *float64 `json:"max_thickness_mm"`
	TheoreticalCapacity      *float64 `json:"theoretical_capacity"`
	RealCapacity             *float64 `json:"real_capacity"`
}

func (s *CatalogService) CreateWorkCenter(ctx context.Context, req *WorkCenterRequest) (*entity.WorkCenter, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "work center name is required")
	}
	wc := &entity.WorkCenter{ID: uuid.New().String(), Name: name}
	applyWorkCenter(wc, req)
	if err := s.repos.WorkCenter.Create(ctx, wc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrInterface, "work center %s already exists", name)
		}
		return nil, fmt.Errorf("create work center: %w", err)
	}
	return wc, nil
}

func (s *CatalogService) UpdateWorkCenter(ctx context.Context, id string, req *WorkCenterRequest) (*entity.WorkCenter, error) {
	wc, err := s.repos.WorkCenter.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find work center: %w", err)
	}
	if n := strings.TrimSpace(req.Name); n != "" {
		wc.Name = n
	}
	applyWorkCenter(wc, req)
	if err := s.repos.WorkCenter.Update(ctx, wc); err != nil {
		return nil, fmt.Errorf("update work center: %w", err)
	}
	return wc, nil
}

func applyWorkCenter(wc *entity.WorkCenter, req *WorkCenterRequest) {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	if req.Code != nil {
		wc.Code = *req.Code
	}
	set(&wc.PowerConsumptionKW, req.PowerConsumptionKW)
	set(&wc.CompressedAirConsumption, req.CompressedAirConsumption)
	set(&wc.HydraulicOilConsumption, req.HydraulicOilConsumption)
	set(&wc.LubricantConsumption, req.LubricantConsumption)
	set(&wc.MaxWidthMM, req.MaxWidthMM)
	set(&wc.MaxLengthMM, req.MaxLengthMM)
	set(&wc.MaxThicknessMM, req.MaxThicknessMM)
	set(&wc.TheoreticalCapacity, req.TheoreticalCapacity)
	set(&wc.RealCapacity, req.RealCapacity)
}

func (s *CatalogService) GetWorkCenter(ctx context.Context, id string) (*entity.WorkCenter, error) {
	return s.repos.WorkCenter.FindByID(ctx, id)
}

func (s *CatalogService) ListWorkCenters(ctx context.Context) ([]entity.WorkCenter, error) {
	return s.repos.WorkCenter.List(ctx)
}
