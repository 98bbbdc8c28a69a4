package entity

import (
	"math"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/geometry"
	"gorm.io/datatypes"
)

// ProductionOrderStatus 生产订单状态
const (
	POStatusPending   = "pending"
	POStatusOT        = "ot"
	POStatusInProcess = "in_process"
	POStatusDelivered = "delivered"
)

// ProductionOrder 客户生产订单
type ProductionOrder struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	OrderNumber    string     `json:"orden_produccion" gorm:"size:64;index"`
	Client         string     `json:"cliente" gorm:"size:255;not null"`
	CustomerOrder  string     `json:"pedido" gorm:"size:64"`
	ProductCode    string     `json:"codigo" gorm:"size:64;index"`
	Description    string     `json:"descripcion" gorm:"type:text"`
	FluteCode      string     `json:"flauta" gorm:"size:16"`
	TestName       string     `json:"test_name" gorm:"size:64;index"`
	Length         float64    `json:"largo"`
	Width          float64    `json:"ancho"`
	Height         float64    `json:"alto"`
	Ceja           float64    `json:"ceja"`
	Quantity       int        `json:"cantidad"`
	Cavity         int        `json:"cavidad" gorm:"default:1"`
	OrderDate      *time.Time `json:"fecha_pedido_cliente"`
	DueDate        *time.Time `json:"fecha_entrega_cliente"`
	ProductionDate *time.Time `json:"fecha_produccion"`
	Compliance     string     `json:"cumplimiento" gorm:"size:64"`
	DeliveredQty   int        `json:"cantidad_entregada"`
	Status         string     `json:"estado" gorm:"size:20;not null;default:pending;index"`

	// 原纸规格（导入附带）
	LinerInternoSupplier string  `json:"liner_interno_proveedor" gorm:"size:128"`
	LinerInternoWidth    float64 `json:"liner_interno_ancho"`
	LinerInternoGrammage float64 `json:"liner_interno_gm"`
	LinerInternoType     string  `json:"liner_interno_tipo" gorm:"size:64"`
	MediumSupplier       string  `json:"medium_proveedor" gorm:"size:128"`
	MediumWidth          float64 `json:"medium_ancho"`
	MediumGrammage       float64 `json:"medium_gm"`
	MediumType           string  `json:"medium_tipo" gorm:"size:64"`
	LinerExternoSupplier string  `json:"liner_externo_proveedor" gorm:"size:128"`
	LinerExternoWidth    float64 `json:"liner_externo_ancho"`
	LinerExternoGrammage float64 `json:"liner_externo_gm"`
	LinerExternoType     string  `json:"liner_externo_tipo" gorm:"size:64"`

	// 排产结果
	GroupID             string  `json:"grupo_planificacion" gorm:"size:64;index"`
	CombinedType        string  `json:"tipo_combinacion" gorm:"size:20"`
	BobinaUsed          float64 `json:"bobina_utilizada"`
	WidthUsed           float64 `json:"ancho_utilizado"`
	CutoffWaste         float64 `json:"sobrante"`
	Efficiency          float64 `json:"eficiencia"`
	LinearMetersPlanned float64 `json:"metros_lineales_planificados"`
	CutsPlanned         int     `json:"cortes_planificados"`
	PlanningRunID       string  `json:"planning_run_id" gorm:"size:36;index"`
	WorkOrderID         *string `json:"work_order_id" gorm:"size:36;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionOrder) TableName() string {
	return "prd_production_orders"
}

// Cuts 不含排产的走刀数 floor(qty/cavity)
func (p *ProductionOrder) Cuts() int {
	if p.Cavity <= 0 {
		return 0
	}
	return p.Quantity / p.Cavity
}

// LinearMeters 理论米数
func (p *ProductionOrder) LinearMeters() float64 {
	return float64(p.Cuts()) * p.Length / 1000
}

// CompliancePercent 交付完成率
func (p *ProductionOrder) CompliancePercent() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return math.Min(100, float64(p.DeliveredQty)/float64(p.Quantity)*100)
}

// GeometryProduct 转为几何计算输入
func (p *ProductionOrder) GeometryProduct() geometry.Product {
	return geometry.Product{Length: p.Length, Width: p.Width, Height: p.Height, Ceja: p.Ceja}
}

// ClearPlanning 清除排产字段
func (p *ProductionOrder) ClearPlanning() {
	p.GroupID = ""
	p.CombinedType = ""
	p.BobinaUsed = 0
	p.WidthUsed = 0
	p.CutoffWaste = 0
	p.Efficiency = 0
	p.LinearMetersPlanned = 0
	p.CutsPlanned = 0
	p.PlanningRunID = ""
}

// PlanningRun 一次排产运行记录
type PlanningRun struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	Code          string         `json:"code" gorm:"size:32;not null;uniqueIndex"`
	TestPrincipal int            `json:"test_principal"`
	CavityLimit   int            `json:"cavidad_limite"`
	SingleReel    bool           `json:"bobina_unica"`
	ReelWidths    datatypes.JSON `json:"reel_widths"`
	OrderCount    int            `json:"order_count"`
	GroupCount    int            `json:"group_count"`
	TotalWaste    float64        `json:"total_waste"`
	AvgEfficiency float64        `json:"avg_efficiency"`
	OptimalReel   float64        `json:"bobina_optima"`
	Unplaceable   datatypes.JSON `json:"unplaceable"`
	Excluded      datatypes.JSON `json:"excluded"`
	Groups        datatypes.JSON `json:"groups"`
	ReportObject  string         `json:"report_object" gorm:"size:255"`
	CreatedBy     string         `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (PlanningRun) TableName() string {
	return "prd_planning_runs"
}
