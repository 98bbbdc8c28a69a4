package entity

import (
	"strings"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/geometry"
	"github.com/sanventru/odoomegastock-sub001/internal/production/recipe"
	"github.com/shopspring/decimal"
)

// PaperRecipe 纸张配方（测试等级）
type PaperRecipe struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	TestName         string    `json:"test_name" gorm:"size:64;not null;uniqueIndex"`
	ECT              float64   `json:"ect"`
	LinerInterno     float64   `json:"liner_interno_gm"`
	CorrugadoMedio   float64   `json:"corrugado_medio_gm"`
	LinerExterno     float64   `json:"liner_externo_gm"`
	CorrugatorFactor float64   `json:"factor_corrugador" gorm:"default:1.45"`
	Active           bool      `json:"active" gorm:"not null"`
	Description      string    `json:"descripcion" gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (PaperRecipe) TableName() string {
	return "prd_paper_recipes"
}

// ToRecipe 转为计算用配方
func (p PaperRecipe) ToRecipe() recipe.Recipe {
	return recipe.Recipe{
		TestName:         p.TestName,
		ECT:              p.ECT,
		LinerInterno:     p.LinerInterno,
		CorrugadoMedio:   p.CorrugadoMedio,
		LinerExterno:     p.LinerExterno,
		CorrugatorFactor: p.CorrugatorFactor,
	}
}

// Flute 楞型
type Flute struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Code        string    `json:"code" gorm:"size:16;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:64"`
	DeltaLength float64   `json:"compensacion_largo"`
	DeltaWidth  float64   `json:"compensacion_ancho"`
	DeltaHeight float64   `json:"compensacion_alto"`
	Active      bool      `json:"active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Flute) TableName() string {
	return "prd_flutes"
}

// NormalizeFluteCode 楞型代码统一大写去空格
func NormalizeFluteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Compensation 楞型补偿
func (f *Flute) Compensation() geometry.Compensation {
	if f == nil {
		return geometry.Compensation{}
	}
	return geometry.Compensation{DeltaLength: f.DeltaLength, DeltaWidth: f.DeltaWidth, DeltaHeight: f.DeltaHeight}
}

// Bobina 母卷
type Bobina struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	Code         string          `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Width        float64         `json:"ancho" gorm:"not null"`
	Description  string          `json:"descripcion" gorm:"size:255"`
	Active       bool            `json:"activa" gorm:"not null;index"`
	Supplier     string          `json:"proveedor" gorm:"size:128"`
	StockMin     float64         `json:"stock_minimo"`
	StockCurrent float64         `json:"stock_actual"`
	CostPerKg    decimal.Decimal `json:"costo_kg" gorm:"type:decimal(14,4);default:0"`
	Notes        string          `json:"notas" gorm:"type:text"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Bobina) TableName() string {
	return "prd_bobinas"
}

// DefaultBobinaWidths 未配置母卷时的默认宽度
var DefaultBobinaWidths = []float64{1800, 1600, 1400, 1200, 1000, 800}

// Product 类别
const (
	CategoryCajas          = "cajas"
	CategoryLaminas        = "laminas"
	CategoryPapel          = "papel"
	CategoryMateriasPrimas = "materias_primas"
	CategoryOtros          = "otros"
)

var productCategories = map[string]string{
	CategoryCajas:          "CAJ",
	CategoryLaminas:        "LAM",
	CategoryPapel:          "PAP",
	CategoryMateriasPrimas: "MP",
	CategoryOtros:          "OTR",
}

// ValidCategory 是否为已知类别
func ValidCategory(c string) bool {
	_, ok := productCategories[c]
	return ok
}

// CategoryPrefix 自动编码前缀
func CategoryPrefix(c string) string {
	if p, ok := productCategories[c]; ok {
		return p
	}
	return productCategories[CategoryOtros]
}

// Product 产品
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Code        string    `json:"code" gorm:"size:64;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Category    string    `json:"category" gorm:"size:32;not null;default:otros;index"`
	FluteCode   string    `json:"flute_code" gorm:"size:16"`
	TestName    string    `json:"test_name" gorm:"size:64"`
	Length      float64   `json:"length"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Ceja        float64   `json:"ceja"`
	Printed     bool      `json:"printed"`
	InkCoverage float64   `json:"ink_coverage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "prd_products"
}

// WorkCenter 设备/工作中心
type WorkCenter struct {
	ID                       string    `json:"id" gorm:"primaryKey;size:36"`
	Name                     string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Code                     string    `json:"code" gorm:"size:32"`
	PowerConsumptionKW       float64   `json:"power_consumption_kw"`
	CompressedAirConsumption float64   `json:"compressed_air_consumption"`
	HydraulicOilConsumption  float64   `json:"hydraulic_oil_consumption"`
	LubricantConsumption     float64   `json:"lubricant_consumption"`
	MaxWidthMM               float64   `json:"max_width_mm"`
	MaxLengthMM              float64   `json:"max_length_mm"`
	MaxThicknessMM           float64   `json:"max_thickness_mm"`
	TheoreticalCapacity      float64   `json:"theoretical_capacity"`
	RealCapacity             float64   `json:"real_capacity"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (WorkCenter) TableName() string {
	return "prd_work_centers"
}

// Parameter 按字段键取数值参数
func (w *WorkCenter) Parameter(key string) (float64, bool) {
	switch key {
	case "power_consumption_kw":
		return w.PowerConsumptionKW, true
	case "compressed_air_consumption":
		return w.CompressedAirConsumption, true
	case "hydraulic_oil_consumption":
		return w.HydraulicOilConsumption, true
	case "lubricant_consumption":
		return w.LubricantConsumption, true
	case "max_width_mm":
		return w.MaxWidthMM, true
	case "max_length_mm":
		return w.MaxLengthMM, true
	case "max_thickness_mm":
		return w.MaxThicknessMM, true
	case "theoretical_capacity":
		return w.TheoreticalCapacity, true
	case "real_capacity":
		return w.RealCapacity, true
	}
	return 0, false
}
