package geometry

import (
	"testing"

	"github.com/sanventru/odoomegastock-sub001/internal/production/recipe"
	"github.com/stretchr/testify/assert"
)

var test200 = recipe.Recipe{TestName: "Test 200", ECT: 32, LinerInterno: 200, CorrugadoMedio: 180, LinerExterno: 200, CorrugatorFactor: 1.45}

func TestBoxDevelopment(t *testing.T) {
	d := Develop(Product{Length: 300, Width: 200, Height: 150}, Compensation{})
	assert.True(t, d.Box)
	assert.Equal(t, 1020.0, d.BlankLength)
	assert.Equal(t, 720.0, d.BlankWidth)
	assert.Equal(t, 734400.0, d.AreaMM2())
	assert.InDelta(t, 0.7344, d.AreaM2(), 1e-12)

	w := UnitWeightGrams(d.AreaM2(), recipe.CombinedGrammage(test200))
	assert.InDelta(t, 485.5, w, 0.1)
}

func TestSheetDevelopmentWithCompensation(t *testing.T) {
	d := Develop(Product{Length: 1000, Width: 500}, Compensation{DeltaLength: 5, DeltaWidth: 3, DeltaHeight: 9})
	assert.False(t, d.Box)
	assert.Equal(t, 1005.0, d.BlankLength)
	assert.Equal(t, 503.0, d.BlankWidth)
	assert.Equal(t, 0.0, d.Height)
	assert.InDelta(t, 1005.0*503.0, d.AreaMM2(), 1e-9)
}

func TestBoxCompensationAppliedBeforeFlaps(t *testing.T) {
	d := Develop(Product{Length: 300, Width: 200, Height: 150}, Compensation{DeltaLength: 4, DeltaWidth: 4, DeltaHeight: 8})
	assert.Equal(t, (304.0+204.0)*2+20, d.BlankLength)
	assert.Equal(t, (204.0+158.0)*2+20, d.BlankWidth)
}

func TestAuxiliaryDefaults(t *testing.T) {
	aux := AuxiliaryPerUnit(2.0, true, 0)
	assert.InDelta(t, 0.016, aux.AdhesiveKg, 1e-12)
	assert.InDelta(t, 2.0*0.015*0.30, aux.InkKg, 1e-12)

	plain := AuxiliaryPerUnit(2.0, false, 0.5)
	assert.Equal(t, 0.0, plain.InkKg)
}

func TestComputeOrderConsumption(t *testing.T) {
	c := Compute(ConsumptionInput{
		Product:  Product{Length: 300, Width: 200, Height: 150},
		Recipe:   test200,
		Quantity: 1000,
		Printed:  true,
	})
	assert.InDelta(t, 1.05, c.Uplift, 1e-12)
	assert.InDelta(t, 0.7344*1000*1.05, c.TotalAreaM2, 1e-6)
	assert.InDelta(t, c.UnitWeightGrams*1050/1000, c.TotalPaperKg, 1e-9)

	layers := c.TotalLayersKg
	assert.InDelta(t, c.TotalPaperKg, layers.LinerInterno+layers.CorrugadoMedio+layers.LinerExterno, 1e-9)
	assert.InDelta(t, 0.7344*0.008*1000, c.TotalAdhesiveKg, 1e-9)

	zero := 0.0
	noUplift := Compute(ConsumptionInput{
		Product:     Product{Length: 300, Width: 200, Height: 150},
		Recipe:      test200,
		Quantity:    10,
		WasteUplift: &zero,
	})
	assert.InDelta(t, 1.0, noUplift.Uplift, 1e-12)
	assert.Equal(t, 0.0, noUplift.TotalInkKg)
}
