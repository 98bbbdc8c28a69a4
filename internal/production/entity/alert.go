package entity

import "time"

// ProductionLine 生产线
const (
	LineCajas   = "cajas"
	LineLaminas = "laminas"
	LinePapel   = "papel"
	LineAll     = "all"
)

// AlertLevel 预警等级
const (
	AlertGreen  = "green"
	AlertYellow = "yellow"
	AlertRed    = "red"
)

// ProductionKPI 生产 KPI 记录
type ProductionKPI struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Name           string    `json:"name" gorm:"size:128"`
	MeasuredAt     time.Time `json:"measurement_date" gorm:"index"`
	Line           string    `json:"production_line" gorm:"size:16;not null;default:all;index"`
	OEE            float64   `json:"oee"`
	Availability   float64   `json:"availability"`
	Performance    float64   `json:"performance"`
	Quality        float64   `json:"quality"`
	OnTimeDelivery float64   `json:"on_time_delivery_rate"`
	Utilization    float64   `json:"utilization_rate"`
	AlertLevel     string    `json:"alert_level" gorm:"size:16;not null;default:green;index"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ProductionKPI) TableName() string {
	return "prd_production_kpis"
}

// QualityStatus 批次质检状态
const (
	QualityPending    = "pending"
	QualityApproved   = "approved"
	QualityRejected   = "rejected"
	QualityQuarantine = "quarantine"
)

// InventoryQuant 批次库存
type InventoryQuant struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	ProductCode   string     `json:"product_code" gorm:"size:64;not null;index"`
	LotName       string     `json:"lot_name" gorm:"size:64;index"`
	Location      string     `json:"location" gorm:"size:128"`
	Quantity      float64    `json:"quantity"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	QualityStatus string     `json:"quality_status" gorm:"size:16;not null;default:pending"`
	DaysToExpiry  int        `json:"days_to_expiry"`
	ExpiryAlert   bool       `json:"expiry_alert" gorm:"index"`
	SweptAt       *time.Time `json:"swept_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (InventoryQuant) TableName() string {
	return "prd_inventory_quants"
}
