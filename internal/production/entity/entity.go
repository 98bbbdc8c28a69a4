package entity

import (
	"strings"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移所有生产表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&PaperRecipe{},
		&Flute{},
		&Bobina{},
		&Product{},
		&WorkCenter{},

		// 订单与排产
		&ProductionOrder{},
		&PlanningRun{},

		// 工单与工序
		&WorkOrder{},
		&Stage{},
		&StageMaterialLine{},
		&StagePersonnelLine{},

		// 预警
		&ProductionKPI{},
		&InventoryQuant{},
	)
}

// legacyCategoryKeywords 旧数据按名称关键字推断类别，仅用于一次性迁移
var legacyCategoryKeywords = []struct {
	keyword  string
	category string
}{
	{"caja", CategoryCajas},
	{"lamina", CategoryLaminas},
	{"lámina", CategoryLaminas},
	{"papel", CategoryPapel},
	{"bobina", CategoryMateriasPrimas},
	{"kraft", CategoryMateriasPrimas},
	{"medium", CategoryMateriasPrimas},
	{"liner", CategoryMateriasPrimas},
}

// LegacyCategory 根据旧名称推断类别，无法推断返回 otros
func LegacyCategory(name string) string {
	lower := strings.ToLower(name)
	for _, k := range legacyCategoryKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.category
		}
	}
	return CategoryOtros
}

// MigrateLegacyCategories 为类别为空或 otros 的产品补写显式类别，返回更新条数
func MigrateLegacyCategories(db *gorm.DB) (int, error) {
	var products []Product
	if err := db.Where("category = ? OR category = ''", CategoryOtros).Find(&products).Error; err != nil {
		return 0, err
	}
	updated := 0
	for _, p := range products {
		cat := LegacyCategory(p.Name)
		if cat == CategoryOtros {
			continue
		}
		if err := db.Model(&Product{}).Where("id = ?", p.ID).Update("category", cat).Error; err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
