package entity_test

import (
	"testing"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyCategory(t *testing.T) {
	assert.Equal(t, entity.CategoryCajas, entity.LegacyCategory("Caja troquelada 40x30"))
	assert.Equal(t, entity.CategoryLaminas, entity.LegacyCategory("LÁMINA C 1200"))
	assert.Equal(t, entity.CategoryMateriasPrimas, entity.LegacyCategory("Kraft liner 175g"))
	assert.Equal(t, entity.CategoryOtros, entity.LegacyCategory("Pallet de madera"))
}

func TestMigrateLegacyCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	for _, p := range []entity.Product{
		{ID: "p1", Code: "OTR-0001", Name: "Caja regular", Category: entity.CategoryOtros},
		{ID: "p2", Code: "OTR-0002", Name: "Bobina medium 1400", Category: ""},
		{ID: "p3", Code: "OTR-0003", Name: "Pallet", Category: entity.CategoryOtros},
		{ID: "p4", Code: "PAP-0001", Name: "Caja kraft", Category: entity.CategoryPapel},
	} {
		require.NoError(t, db.Create(&p).Error)
	}
	// default:otros 会覆盖空值，这里显式置空
	require.NoError(t, db.Model(&entity.Product{}).Where("id = ?", "p2").Update("category", "").Error)

	n, err := entity.MigrateLegacyCategories(db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cats := map[string]string{}
	var products []entity.Product
	require.NoError(t, db.Find(&products).Error)
	for _, p := range products {
		cats[p.ID] = p.Category
	}
	assert.Equal(t, entity.CategoryCajas, cats["p1"])
	assert.Equal(t, entity.CategoryMateriasPrimas, cats["p2"])
	assert.Equal(t, entity.CategoryOtros, cats["p3"])
	assert.Equal(t, entity.CategoryPapel, cats["p4"], "explicit categories are kept")
}

func TestProductionOrderDerived(t *testing.T) {
	po := entity.ProductionOrder{Length: 500, Quantity: 1001, Cavity: 2, DeliveredQty: 1200}
	assert.Equal(t, 500, po.Cuts())
	assert.Equal(t, 250.0, po.LinearMeters())
	assert.Equal(t, 100.0, po.CompliancePercent())

	po.DeliveredQty = 250
	assert.InDelta(t, 24.98, po.CompliancePercent(), 0.01)

	po.Cavity = 0
	assert.Equal(t, 0, po.Cuts())
}
