package repository

import (
	"context"
	"strings"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"gorm.io/gorm"
)

// ==================== 配方 ====================

type PaperRecipeRepository struct {
	db *gorm.DB
}

func NewPaperRecipeRepository(db *gorm.DB) *PaperRecipeRepository {
	return &PaperRecipeRepository{db: db}
}

func (r *PaperRecipeRepository) Create(ctx context.Context, rec *entity.PaperRecipe) error {
	return TranslateError(r.db.WithContext(ctx).Create(rec).Error)
}

func (r *PaperRecipeRepository) Update(ctx context.Context, rec *entity.PaperRecipe) error {
	return TranslateError(r.db.WithContext(ctx).Save(rec).Error)
}

func (r *PaperRecipeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.PaperRecipe{}, "id = ?", id).Error
}

func (r *PaperRecipeRepository) FindByID(ctx context.Context, id string) (*entity.PaperRecipe, error) {
	var rec entity.PaperRecipe
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &rec, nil
}

func (r *PaperRecipeRepository) FindByName(ctx context.Context, name string) (*entity.PaperRecipe, error) {
	var rec entity.PaperRecipe
	if err := r.db.WithContext(ctx).First(&rec, "test_name = ?", name).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &rec, nil
}

// NameTaken 名称是否已被其他配方占用
func (r *PaperRecipeRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&entity.PaperRecipe{}).Where("test_name = ?", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// List 按测试名称排序
func (r *PaperRecipeRepository) List(ctx context.Context, activeOnly bool) ([]entity.PaperRecipe, error) {
	var recs []entity.PaperRecipe
	q := r.db.WithContext(ctx).Order("ect ASC, test_name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// CountPlannedReferences 已排产订单引用该配方的数量
func (r *PaperRecipeRepository) CountPlannedReferences(ctx context.Context, testName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ProductionOrder{}).
		Where("test_name = ? AND group_id <> ''", testName).
		Count(&count).Error
	return count, err
}

// ==================== 楞型 ====================

type FluteRepository struct {
	db *gorm.DB
}

func NewFluteRepository(db *gorm.DB) *FluteRepository {
	return &FluteRepository{db: db}
}

func (r *FluteRepository) Create(ctx context.Context, f *entity.Flute) error {
	return TranslateError(r.db.WithContext(ctx).Create(f).Error)
}

func (r *FluteRepository) Update(ctx context.Context, f *entity.Flute) error {
	return TranslateError(r.db.WithContext(ctx).Save(f).Error)
}

func (r *FluteRepository) FindByID(ctx context.Context, id string) (*entity.Flute, error) {
	var f entity.Flute
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &f, nil
}

func (r *FluteRepository) FindByCode(ctx context.Context, code string) (*entity.Flute, error) {
	var f entity.Flute
	if err := r.db.WithContext(ctx).First(&f, "code = ?", entity.NormalizeFluteCode(code)).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &f, nil
}

func (r *FluteRepository) List(ctx context.Context) ([]entity.Flute, error) {
	var flutes []entity.Flute
	err := r.db.WithContext(ctx).Order("code ASC").Find(&flutes).Error
	return flutes, err
}

// ==================== 母卷 ====================

type BobinaRepository struct {
	db *gorm.DB
}

func NewBobinaRepository(db *gorm.DB) *BobinaRepository {
	return &BobinaRepository{db: db}
}

func (r *BobinaRepository) Create(ctx context.Context, b *entity.Bobina) error {
	return TranslateError(r.db.WithContext(ctx).Create(b).Error)
}

func (r *BobinaRepository) Update(ctx context.Context, b *entity.Bobina) error {
	return TranslateError(r.db.WithContext(ctx).Save(b).Error)
}

func (r *BobinaRepository) FindByID(ctx context.Context, id string) (*entity.Bobina, error) {
	var b entity.Bobina
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &b, nil
}

// FindActiveByIDs 按 id 查询启用中的母卷
func (r *BobinaRepository) FindActiveByIDs(ctx context.Context, ids []string) ([]entity.Bobina, error) {
	var list []entity.Bobina
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ? AND active = ?", ids, true).Order("width DESC").Find(&list).Error
	return list, err
}

func (r *BobinaRepository) List(ctx context.Context, activeOnly bool) ([]entity.Bobina, error) {
	var list []entity.Bobina
	q := r.db.WithContext(ctx).Order("width DESC, code ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&list).Error
	return list, err
}

// ActiveWidths 在用母卷宽度（降序，未去重）
func (r *BobinaRepository) ActiveWidths(ctx context.Context) ([]float64, error) {
	var widths []float64
	err := r.db.WithContext(ctx).Model(&entity.Bobina{}).
		Where("active = ?", true).
		Order("width DESC").
		Pluck("width", &widths).Error
	return widths, err
}

// ==================== 产品 ====================

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	return TranslateError(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	return TranslateError(r.db.WithContext(ctx).Save(p).Error)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &p, nil
}

func (r *ProductRepository) FindByCode(ctx context.Context, code string) (*entity.Product, error) {
	var p entity.Product
	if err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &p, nil
}

// FindByCodeOrName 旧接口按编码或名称查找
func (r *ProductRepository) FindByCodeOrName(ctx context.Context, key string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.WithContext(ctx).
		Where("code = ? OR LOWER(name) = ?", key, strings.ToLower(key)).
		First(&p).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &p, nil
}

type ProductListParams struct {
	Category string
	Keyword  string
	Page     int
	Size     int
}

func (r *ProductRepository) List(ctx context.Context, params ProductListParams) ([]entity.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Keyword != "" {
		kw := likePattern(params.Keyword)
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(params.Page, params.Size)
	var products []entity.Product
	err := query.Order("code ASC").Offset((page - 1) * size).Limit(size).Find(&products).Error
	return products, total, err
}

// NextCode 自动编码流水
func (r *ProductRepository) NextCode(ctx context.Context, prefix string) (int, error) {
	return nextSequence(r.db.WithContext(ctx), &entity.Product{}, "code", prefix)
}

// ==================== 工作中心 ====================

type WorkCenterRepository struct {
	db *gorm.DB
}

func NewWorkCenterRepository(db *gorm.DB) *WorkCenterRepository {
	return &WorkCenterRepository{db: db}
}

func (r *WorkCenterRepository) Create(ctx context.Context, wc *entity.WorkCenter) error {
	return TranslateError(r.db.WithContext(ctx).Create(wc).Error)
}

func (r *WorkCenterRepository) Update(ctx context.Context, wc *entity.WorkCenter) error {
	return TranslateError(r.db.WithContext(ctx).Save(wc).Error)
}

func (r *WorkCenterRepository) FindByID(ctx context.Context, id string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	if err := r.db.WithContext(ctx).First(&wc, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &wc, nil
}

// FindByName 名称不区分大小写
func (r *WorkCenterRepository) FindByName(ctx context.Context, name string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	err := r.db.WithContext(ctx).
		Where("UPPER(name) = ?", strings.ToUpper(strings.TrimSpace(name))).
		First(&wc).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &wc, nil
}

func (r *WorkCenterRepository) List(ctx context.Context) ([]entity.WorkCenter, error) {
	var list []entity.WorkCenter
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

// UpdateField 更新单个数值字段
func (r *WorkCenterRepository) UpdateField(ctx context.Context, id, column string, value float64) error {
	return r.db.WithContext(ctx).Model(&entity.WorkCenter{}).Where("id = ?", id).Update(column, value).Error
}
