// Package geometry 展开尺寸、面积、单重与物料消耗计算。全部为纯函数。
package geometry

import "github.com/sanventru/odoomegastock-sub001/internal/production/recipe"

const (
	// FlapAllowance 每个方向的粘接舌余量 (mm)
	FlapAllowance = 20.0
	// AdhesiveKgPerM2 胶水单耗
	AdhesiveKgPerM2 = 0.008
	// InkKgPerM2 满版油墨单耗
	InkKgPerM2 = 0.015
	// DefaultInkCoverage 默认印刷覆盖率
	DefaultInkCoverage = 0.30
	// DefaultWasteUplift 默认损耗上浮
	DefaultWasteUplift = 0.05
)

// Product 产品尺寸 (mm)，Height 为 0 表示平板
type Product struct {
	Length float64
	Width  float64
	Height float64
	Ceja   float64
}

// Compensation 楞型补偿
type Compensation struct {
	DeltaLength float64
	DeltaWidth  float64
	DeltaHeight float64
}

// Developed 展开结果
type Developed struct {
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	BlankLength float64 `json:"blank_length"`
	BlankWidth  float64 `json:"blank_width"`
	Box         bool    `json:"box"`
}

// Develop 施加楞型补偿并计算展开坯料尺寸
func Develop(p Product, c Compensation) Developed {
	d := Developed{
		Length: p.Length + c.DeltaLength,
		Width:  p.Width + c.DeltaWidth,
	}
	if p.Height > 0 {
		d.Height = p.Height + c.DeltaHeight
		d.Box = true
		d.BlankLength = (d.Length+d.Width)*2 + FlapAllowance
		d.BlankWidth = (d.Width+d.Height)*2 + FlapAllowance
		return d
	}
	d.BlankLength = d.Length
	d.BlankWidth = d.Width
	return d
}

// AreaMM2 单件展开面积 mm²
func (d Developed) AreaMM2() float64 {
	return d.BlankLength * d.BlankWidth
}

// AreaM2 单件展开面积 m²
func (d Developed) AreaM2() float64 {
	return d.AreaMM2() / 1e6
}

// UnitWeightGrams 单件重量 (g)
func UnitWeightGrams(areaM2, combinedGrammage float64) float64 {
	return areaM2 * combinedGrammage
}

// LayerMass 各层原纸质量
type LayerMass struct {
	LinerInterno   float64 `json:"liner_interno"`
	CorrugadoMedio float64 `json:"corrugado_medio"`
	LinerExterno   float64 `json:"liner_externo"`
}

// LayerMasses 按配方比例拆分单重
func LayerMasses(unitWeight float64, r recipe.Ratios) LayerMass {
	return LayerMass{
		LinerInterno:   unitWeight * r.LI,
		CorrugadoMedio: unitWeight * r.CM,
		LinerExterno:   unitWeight * r.LE,
	}
}

// Auxiliary 单件辅料消耗 (kg)
type Auxiliary struct {
	AdhesiveKg float64 `json:"adhesive_kg"`
	InkKg      float64 `json:"ink_kg"`
}

// AuxiliaryPerUnit 胶水与油墨单耗；coverage<=0 时取默认覆盖率
func AuxiliaryPerUnit(areaM2 float64, printed bool, coverage float64) Auxiliary {
	aux := Auxiliary{AdhesiveKg: areaM2 * AdhesiveKgPerM2}
	if printed {
		if coverage <= 0 {
			coverage = DefaultInkCoverage
		}
		aux.InkKg = areaM2 * InkKgPerM2 * coverage
	}
	return aux
}

// ConsumptionInput 订单级消耗计算输入
type ConsumptionInput struct {
	Product      Product
	Compensation Compensation
	Recipe       recipe.Recipe
	Quantity     int
	Printed      bool
	InkCoverage  float64
	// WasteUplift 为 nil 时使用默认 5%
	WasteUplift *float64
}

// Consumption 订单技术单
type Consumption struct {
	Developed        Developed `json:"developed"`
	AreaM2           float64   `json:"area_m2"`
	CombinedGrammage float64   `json:"combined_grammage"`
	UnitWeightGrams  float64   `json:"unit_weight_g"`
	UnitLayers       LayerMass `json:"unit_layers_g"`
	UnitAuxiliary    Auxiliary `json:"unit_auxiliary"`
	Uplift           float64   `json:"uplift"`
	TotalAreaM2      float64   `json:"total_area_m2"`
	TotalPaperKg     float64   `json:"total_paper_kg"`
	TotalLayersKg    LayerMass `json:"total_layers_kg"`
	TotalAdhesiveKg  float64   `json:"total_adhesive_kg"`
	TotalInkKg       float64   `json:"total_ink_kg"`
}

// Compute 计算单件与订单总消耗
func Compute(in ConsumptionInput) Consumption {
	dev := Develop(in.Product, in.Compensation)
	area := dev.AreaM2()
	g := recipe.CombinedGrammage(in.Recipe)
	unitWeight := UnitWeightGrams(area, g)
	layers := LayerMasses(unitWeight, recipe.LayerRatios(in.Recipe))
	aux := AuxiliaryPerUnit(area, in.Printed, in.InkCoverage)

	uplift := 1 + DefaultWasteUplift
	if in.WasteUplift != nil {
		uplift = 1 + *in.WasteUplift
	}
	qty := float64(in.Quantity)
	factor := qty * uplift

	return Consumption{
		Developed:        dev,
		AreaM2:           area,
		CombinedGrammage: g,
		UnitWeightGrams:  unitWeight,
		UnitLayers:       layers,
		UnitAuxiliary:    aux,
		Uplift:           uplift,
		TotalAreaM2:      area * factor,
		TotalPaperKg:     unitWeight * factor / 1000,
		TotalLayersKg: LayerMass{
			LinerInterno:   layers.LinerInterno * factor / 1000,
			CorrugadoMedio: layers.CorrugadoMedio * factor / 1000,
			LinerExterno:   layers.LinerExterno * factor / 1000,
		},
		TotalAdhesiveKg: aux.AdhesiveKg * qty,
		TotalInkKg:      aux.InkKg * qty,
	}
}
