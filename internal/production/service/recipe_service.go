package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/recipe"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"go.uber.org/zap"
)

// RecipeService 纸张配方服务
type RecipeService struct {
	repos  *repository.Repositories
	cache  *CatalogCache
	logger *zap.Logger
}

func NewRecipeService(repos *repository.Repositories, cache *CatalogCache, logger *zap.Logger) *RecipeService {
	return &RecipeService{repos: repos, cache: cache, logger: logger}
}

// RecipeView 配方及派生值
type RecipeView struct {
	entity.PaperRecipe
	TestNumber       int           `json:"test_number"`
	CombinedGrammage float64       `json:"gramaje_combinado"`
	ToleranceMin     float64       `json:"tolerancia_min"`
	ToleranceMax     float64       `json:"tolerancia_max"`
	Ratios           recipe.Ratios `json:"ratios"`
}

func newRecipeView(p entity.PaperRecipe) RecipeView {
	r := p.ToRecipe()
	min, max := recipe.ToleranceBand(r)
	num, _ := recipe.TestNumber(p.TestName)
	return RecipeView{
		PaperRecipe:      p,
		TestNumber:       num,
		CombinedGrammage: recipe.CombinedGrammage(r),
		ToleranceMin:     min,
		ToleranceMax:     max,
		Ratios:           recipe.LayerRatios(r),
	}
}

type CreateRecipeRequest struct {
	TestName         string  `json:"test_name" binding:"required"`
	ECT              float64 `json:"ect"`
	LinerInterno     float64 `json:"liner_interno_gm"`
	CorrugadoMedio   float64 `json:"corrugado_medio_gm"`
	LinerExterno     float64 `json:"liner_externo_gm"`
	CorrugatorFactor float64 `json:"factor_corrugador"`
	Active           *bool   `json:"active"`
	Description      string  `json:"descripcion"`
}

type UpdateRecipeRequest struct {
	TestName         *string  `json:"test_name"`
	ECT              *float64 `json:"ect"`
	LinerInterno     *float64 `json:"liner_interno_gm"`
	CorrugadoMedio   *float64 `json:"corrugado_medio_gm"`
	LinerExterno     *float64 `json:"liner_externo_gm"`
	CorrugatorFactor *float64 `json:"factor_corrugador"`
	Active           *bool    `json:"active"`
	Description      *string  `json:"descripcion"`
}

func (s *RecipeService) Create(ctx context.Context, req *CreateRecipeRequest) (*RecipeView, error) {
	p := entity.PaperRecipe{
		ID:               uuid.New().String(),
		TestName:         strings.TrimSpace(req.TestName),
		ECT:              req.ECT,
		LinerInterno:     req.LinerInterno,
		CorrugadoMedio:   req.CorrugadoMedio,
		LinerExterno:     req.LinerExterno,
		CorrugatorFactor: req.CorrugatorFactor,
		Active:           true,
		Description:      req.Description,
	}
	if p.CorrugatorFactor == 0 {
		p.CorrugatorFactor = recipe.DefaultCorrugatorFactor
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := recipe.Validate(p.ToRecipe()); err != nil {
		return nil, err
	}
	taken, err := s.repos.Recipe.NameTaken(ctx, p.TestName, "")
	if err != nil {
		return nil, fmt.Errorf("check recipe name: %w", err)
	}
	if taken {
		return nil, apperr.Wrap(apperr.ErrRecipeValidation, "test %q already exists", p.TestName)
	}
	if err := s.repos.Recipe.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrRecipeValidation, "test %q already exists", p.TestName)
		}
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	s.cache.Invalidate(ctx)
	v := newRecipeView(p)
	return &v, nil
}

// Update 已被排产订单引用的配方不允许修改
func (s *RecipeService) Update(ctx context.Context, id string, req *UpdateRecipeRequest) (*RecipeView, error) {
	p, err := s.repos.Recipe.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	if err := s.ensureUnreferenced(ctx, p.TestName); err != nil {
		return nil, err
	}

	if req.TestName != nil {
		p.TestName = strings.TrimSpace(*req.TestName)
	}
	if req.ECT != nil {
		p.ECT = *req.ECT
	}
	if req.LinerInterno != nil {
		p.LinerInterno = *req.LinerInterno
	}
	if req.CorrugadoMedio != nil {
		p.CorrugadoMedio = *req.CorrugadoMedio
	}
	if req.LinerExterno != nil {
		p.LinerExterno = *req.LinerExterno
	}
	if req.CorrugatorFactor != nil {
		p.CorrugatorFactor = *req.CorrugatorFactor
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if err := recipe.Validate(p.ToRecipe()); err != nil {
		return nil, err
	}
	taken, err := s.repos.Recipe.NameTaken(ctx, p.TestName, p.ID)
	if err != nil {
		return nil, fmt.Errorf("check recipe name: %w", err)
	}
	if taken {
		return nil, apperr.Wrap(apperr.ErrRecipeValidation, "test %q already exists", p.TestName)
	}
	if err := s.repos.Recipe.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	s.cache.Invalidate(ctx)
	v := newRecipeView(*p)
	return &v, nil
}

func (s *RecipeService) Delete(ctx context.Context, id string) error {
	p, err := s.repos.Recipe.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find recipe: %w", err)
	}
	if err := s.ensureUnreferenced(ctx, p.TestName); err != nil {
		return err
	}
	if err := s.repos.Recipe.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *RecipeService) ensureUnreferenced(ctx context.Context, testName string) error {
	n, err := s.repos.Recipe.CountPlannedReferences(ctx, testName)
	if err != nil {
		return fmt.Errorf("count recipe references: %w", err)
	}
	if n > 0 {
		return apperr.Wrap(apperr.ErrRecipeValidation, "test %q is referenced by %d planned orders", testName, n)
	}
	return nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*RecipeView, error) {
	p, err := s.repos.Recipe.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	v := newRecipeView(*p)
	return &v, nil
}

func (s *RecipeService) List(ctx context.Context, activeOnly bool) ([]RecipeView, error) {
	list, err := s.repos.Recipe.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	views := make([]RecipeView, 0, len(list))
	for _, p := range list {
		views = append(views, newRecipeView(p))
	}
	return views, nil
}

// SeedStandardTests 写入标准测试目录，已存在的不覆盖；返回新增数量
func (s *RecipeService) SeedStandardTests(ctx context.Context) (int, error) {
	created := 0
	for _, std := range recipe.StandardTests() {
		_, err := s.repos.Recipe.FindByName(ctx, std.TestName)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("find recipe %s: %w", std.TestName, err)
		}
		p := entity.PaperRecipe{
			ID:               uuid.New().String(),
			TestName:         std.TestName,
			ECT:              std.ECT,
			LinerInterno:     std.LinerInterno,
			CorrugadoMedio:   std.CorrugadoMedio,
			LinerExterno:     std.LinerExterno,
			CorrugatorFactor: std.CorrugatorFactor,
			Active:           true,
			Description:      std.Description,
		}
		if err := s.repos.Recipe.Create(ctx, &p); err != nil {
			return created, fmt.Errorf("seed recipe %s: %w", std.TestName, err)
		}
		created++
	}
	if created > 0 {
		s.cache.Invalidate(ctx)
		s.logger.Info("standard tests seeded", zap.Int("created", created))
	}
	return created, nil
}

// ToleranceCheck 实测克重校验结果
type ToleranceCheck struct {
	TestName         string  `json:"test_name"`
	Measured         float64 `json:"gramaje_medido"`
	CombinedGrammage float64 `json:"gramaje_combinado"`
	Min              float64 `json:"tolerancia_min"`
	Max              float64 `json:"tolerancia_max"`
	Deviation        float64 `json:"desviacion_pct"`
	InTolerance      bool    `json:"dentro_tolerancia"`
}

func (s *RecipeService) CheckTolerance(ctx context.Context, id string, measured float64) (*ToleranceCheck, error) {
	if measured <= 0 {
		return nil, apperr.Wrap(apperr.ErrRecipeValidation, "measured grammage must be positive")
	}
	p, err := s.repos.Recipe.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	r := p.ToRecipe()
	g := recipe.CombinedGrammage(r)
	min, max := recipe.ToleranceBand(r)
	return &ToleranceCheck{
		TestName:         p.TestName,
		Measured:         measured,
		CombinedGrammage: g,
		Min:              min,
		Max:              max,
		Deviation:        round2((measured - g) / g * 100),
		InTolerance:      recipe.InTolerance(r, measured),
	}, nil
}
