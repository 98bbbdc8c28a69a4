package service

import (
	"errors"
	"math"
	"testing"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) seedWorkCenter(name string, kw float64) *entity.WorkCenter {
	f.t.Helper()
	wc := &entity.WorkCenter{ID: "wc-" + name, Name: name, PowerConsumptionKW: kw, CompressedAirConsumption: 12.5, MaxWidthMM: 2500}
	require.NoError(f.t, f.db.Create(wc).Error)
	return wc
}

func TestLegacyUpdateCategory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&entity.Product{ID: "p1", Code: "CAJ-0001", Name: "Caja Regular 30x20", Category: entity.CategoryOtros}).Error)

	ok, err := f.svc.Legacy.UpdateCategory(f.ctx, "CAJ-0001", "Cajas")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Legacy.UpdateCategory(f.ctx, "caja regular 30x20", "laminas")
	require.NoError(t, err)
	assert.True(t, ok, "matched by name")

	p, err := f.repos.Product.FindByID(f.ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryLaminas, p.Category)

	ok, err = f.svc.Legacy.UpdateCategory(f.ctx, "CAJ-0001", "juguetes")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Legacy.UpdateCategory(f.ctx, "NO-EXISTE", "cajas")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Legacy.UpdateCategory(f.ctx, " ", "cajas")
	assert.True(t, errors.Is(err, apperr.ErrInterface))
}

func TestLegacyEnergy(t *testing.T) {
	f := newFixture(t)
	f.seedWorkCenter("Corrugadora BHS", 110)

	wc, err := f.svc.Legacy.UpdateEnergy(f.ctx, "corrugadora bhs", 125.5)
	require.NoError(t, err)
	assert.Equal(t, 125.5, wc.PowerConsumptionKW)

	stored, err := f.repos.WorkCenter.FindByID(f.ctx, "wc-Corrugadora BHS")
	require.NoError(t, err)
	assert.Equal(t, 125.5, stored.PowerConsumptionKW)

	_, err = f.svc.Legacy.UpdateEnergy(f.ctx, "Troqueladora", 10)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Legacy.UpdateEnergy(f.ctx, "Corrugadora BHS", math.Inf(1))
	assert.True(t, errors.Is(err, apperr.ErrInterface))
}

func TestLegacyGetParameter(t *testing.T) {
	f := newFixture(t)
	f.seedWorkCenter("Dobladora 2", 45)

	wc, v, err := f.svc.Legacy.GetParameter(f.ctx, "DOBLADORA 2", "Consumo Energético (kW)")
	require.NoError(t, err)
	assert.Equal(t, "Dobladora 2", wc.Name)
	assert.Equal(t, 45.0, v)

	_, v, err = f.svc.Legacy.GetParameter(f.ctx, "Dobladora 2", "Consumo Aire Comprimido (m³/h)")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, v, err = f.svc.Legacy.GetParameter(f.ctx, "Dobladora 2", "Capacidad Teórica/Hora")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	_, _, err = f.svc.Legacy.GetParameter(f.ctx, "Dobladora 2", "Temperatura")
	assert.True(t, errors.Is(err, apperr.ErrInterface))
	_, _, err = f.svc.Legacy.GetParameter(f.ctx, "Guillotina", "Ancho Máximo (mm)")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("12,5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = ParseValue(" 7.25 ")
	require.NoError(t, err)
	assert.Equal(t, 7.25, v)

	_, err = ParseValue("doce")
	assert.True(t, errors.Is(err, apperr.ErrInterface))

	for _, raw := range []string{"NaN", "Inf", "-inf", "1e400"} {
		_, err = ParseValue(raw)
		assert.True(t, errors.Is(err, apperr.ErrInterface), raw)
	}
}
