package recipe

import (
	"errors"
	"testing"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func test200() Recipe {
	return Recipe{TestName: "Test 200", ECT: 32, LinerInterno: 200, CorrugadoMedio: 180, LinerExterno: 200, CorrugatorFactor: 1.45}
}

func TestCombinedGrammageAndBand(t *testing.T) {
	r := test200()
	assert.InDelta(t, 661.0, CombinedGrammage(r), 1e-9)

	min, max := ToleranceBand(r)
	assert.InDelta(t, 641.17, min, 1e-9)
	assert.InDelta(t, 680.83, max, 1e-9)

	assert.True(t, InTolerance(r, 660))
	assert.False(t, InTolerance(r, 700))
}

func TestInToleranceBoundaries(t *testing.T) {
	for _, std := range StandardTests() {
		r := std.Recipe
		g := CombinedGrammage(r)
		assert.Equal(t, r.LinerInterno+r.CorrugadoMedio*r.CorrugatorFactor+r.LinerExterno, g, r.TestName)
		assert.True(t, InTolerance(r, 0.97*g), r.TestName)
		assert.True(t, InTolerance(r, 1.03*g), r.TestName)
		assert.False(t, InTolerance(r, 0.9699*g), r.TestName)
		assert.False(t, InTolerance(r, 1.0301*g), r.TestName)
	}
}

func TestDefaultFactorApplied(t *testing.T) {
	r := test200()
	r.CorrugatorFactor = 0
	assert.InDelta(t, 661.0, CombinedGrammage(r), 1e-9)
}

func TestLayerRatiosSumToOne(t *testing.T) {
	ratios := LayerRatios(test200())
	assert.InDelta(t, 1.0, ratios.LI+ratios.CM+ratios.LE, 1e-12)
	assert.InDelta(t, 200.0/661.0, ratios.LI, 1e-12)
	assert.InDelta(t, 261.0/661.0, ratios.CM, 1e-12)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(test200()))

	cases := map[string]func(r *Recipe){
		"empty name":  func(r *Recipe) { r.TestName = "  " },
		"zero ect":    func(r *Recipe) { r.ECT = 0 },
		"negative li": func(r *Recipe) { r.LinerInterno = -1 },
		"zero cm":     func(r *Recipe) { r.CorrugadoMedio = 0 },
		"zero le":     func(r *Recipe) { r.LinerExterno = 0 },
		"zero factor": func(r *Recipe) { r.CorrugatorFactor = 0 },
		"neg factor":  func(r *Recipe) { r.CorrugatorFactor = -1.2 },
	}
	for name, mutate := range cases {
		r := test200()
		mutate(&r)
		err := Validate(r)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, apperr.ErrRecipeValidation), name)
	}
}

func TestTestNumber(t *testing.T) {
	n, ok := TestNumber("Test 275")
	assert.True(t, ok)
	assert.Equal(t, 275, n)

	_, ok = TestNumber("sin numero")
	assert.False(t, ok)
}

func TestStandardTestsCatalog(t *testing.T) {
	stds := StandardTests()
	require.Len(t, stds, 5)
	assert.Equal(t, "Test 250", stds[3].TestName)
	assert.Equal(t, 225.0, stds[3].LinerInterno)
	assert.Equal(t, 44.0, stds[4].ECT)
	for _, s := range stds {
		assert.NoError(t, Validate(s.Recipe))
	}
}
