package entity

import (
	"time"

	"gorm.io/datatypes"
)

// WorkOrderState 工单状态，工序状态与工序种类同名
const (
	WOStateProgrammed     = "programmed"
	WOStatePreprinter     = "preprinter"
	WOStateMicrocorrugado = "microcorrugado"
	WOStateDobladora      = "dobladora"
	WOStateCorteCeja      = "corte_ceja"
	WOStateGuillotina     = "guillotina"
	WOStateEmpaque        = "empaque"
	WOStateAlmacenamiento = "almacenamiento"
	WOStateCompleted      = "completed"
)

// StageKind 工序种类
const (
	StagePreprinter     = WOStatePreprinter
	StageMicrocorrugado = WOStateMicrocorrugado
	StageDobladora      = WOStateDobladora
	StageCorteCeja      = WOStateCorteCeja
	StageGuillotina     = WOStateGuillotina
	StageEmpaque        = WOStateEmpaque
	StageAlmacenamiento = WOStateAlmacenamiento
)

// StageState 工序记录状态
const (
	StageStateStarted  = "started"
	StageStateFinished = "finished"
)

// WorkOrder 生产工单（一个排产分组）
type WorkOrder struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Number            string     `json:"number" gorm:"size:32;not null;uniqueIndex"`
	GroupID           string     `json:"grupo_planificacion" gorm:"size:64;not null;uniqueIndex"`
	CombinedType      string     `json:"tipo_combinacion" gorm:"size:20"`
	BobinaUsed        float64    `json:"bobina_utilizada"`
	WidthUsed         float64    `json:"ancho_utilizado"`
	WasteTotal        float64    `json:"sobrante"`
	EfficiencyAvg     float64    `json:"eficiencia"`
	LinearMetersTotal float64    `json:"metros_lineales_totales"`
	CutsTotal         int        `json:"cortes_totales"`
	RequiresFolding   bool       `json:"requiere_doblez"`
	State             string     `json:"estado" gorm:"size:20;not null;default:programmed;index"`
	ActiveStageID     *string    `json:"active_stage_id" gorm:"size:36"`
	EstimatedHours    float64    `json:"duracion_estimada"`
	ActualHours       float64    `json:"duracion_real"`
	Progress          float64    `json:"progreso"`
	StartedAt         *time.Time `json:"fecha_inicio"`
	CompletedAt       *time.Time `json:"fecha_fin"`
	Notes             string     `json:"observaciones" gorm:"type:text"`
	CreatedBy         string     `json:"created_by" gorm:"size:64"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Orders []ProductionOrder `json:"orders,omitempty" gorm:"foreignKey:WorkOrderID"`
	Stages []Stage           `json:"stages,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "prd_work_orders"
}

// Stage 工序记录，种类由 Kind 区分，工序特有字段放在 Attributes
type Stage struct {
	ID          string            `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID string            `json:"work_order_id" gorm:"size:36;not null;index"`
	Kind        string            `json:"kind" gorm:"size:20;not null"`
	Sequence    int               `json:"sequence"`
	State       string            `json:"state" gorm:"size:20;not null"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     *time.Time        `json:"end_time"`
	Attributes  datatypes.JSONMap `json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Materials []StageMaterialLine  `json:"materials,omitempty" gorm:"foreignKey:StageID"`
	Personnel []StagePersonnelLine `json:"personnel,omitempty" gorm:"foreignKey:StageID"`
}

func (Stage) TableName() string {
	return "prd_stages"
}

// StageMaterialLine 工序耗料
type StageMaterialLine struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	StageID       string    `json:"stage_id" gorm:"size:36;not null;index"`
	ProductCode   string    `json:"product_code" gorm:"size:64;not null"`
	Description   string    `json:"description" gorm:"size:255"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit" gorm:"size:16;not null;default:kg"`
	InitialWeight *float64  `json:"initial_weight"`
	FinalWeight   *float64  `json:"final_weight"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (StageMaterialLine) TableName() string {
	return "prd_stage_material_lines"
}

// Shift 班次
const (
	ShiftManana = "manana"
	ShiftTarde  = "tarde"
	ShiftNoche  = "noche"
)

// StagePersonnelLine 工序人员记录
type StagePersonnelLine struct {
	ID         string            `json:"id" gorm:"primaryKey;size:36"`
	StageID    string            `json:"stage_id" gorm:"size:36;not null;index"`
	Employee   string            `json:"employee" gorm:"size:128;not null"`
	Role       string            `json:"role" gorm:"size:64"`
	Shift      string            `json:"shift" gorm:"size:16"`
	StartTime  *time.Time        `json:"start_time"`
	EndTime    *time.Time        `json:"end_time"`
	TotalHours float64           `json:"total_hours"`
	Counts     datatypes.JSONMap `json:"counts"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (StagePersonnelLine) TableName() string {
	return "prd_stage_personnel_lines"
}

// DeriveHours 两端时间齐全时计算工时
func (l *StagePersonnelLine) DeriveHours() {
	l.TotalHours = 0
	if l.StartTime != nil && l.EndTime != nil && l.EndTime.After(*l.StartTime) {
		l.TotalHours = l.EndTime.Sub(*l.StartTime).Hours()
	}
}
