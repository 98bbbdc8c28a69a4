// Package recipe 纸张配方计算：组合克重、±3% 公差带、各层占比。
package recipe

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
)

const (
	// DefaultCorrugatorFactor 瓦楞机默认收缩系数
	DefaultCorrugatorFactor = 1.45
	// Tolerance 克重公差
	Tolerance = 0.03

	epsilon = 1e-9
)

// Recipe 配方输入，各层克重单位 g/m²
type Recipe struct {
	TestName         string
	ECT              float64
	LinerInterno     float64
	CorrugadoMedio   float64
	LinerExterno     float64
	CorrugatorFactor float64
}

// Ratios 各层占组合克重的比例
type Ratios struct {
	LI float64 `json:"li"`
	CM float64 `json:"cm"`
	LE float64 `json:"le"`
}

func factor(r Recipe) float64 {
	if r.CorrugatorFactor <= 0 {
		return DefaultCorrugatorFactor
	}
	return r.CorrugatorFactor
}

// CombinedGrammage G = LI + CM·factor + LE
func CombinedGrammage(r Recipe) float64 {
	return r.LinerInterno + r.CorrugadoMedio*factor(r) + r.LinerExterno
}

// ToleranceBand 返回 [0.97·G, 1.03·G]
func ToleranceBand(r Recipe) (min, max float64) {
	g := CombinedGrammage(r)
	return g * (1 - Tolerance), g * (1 + Tolerance)
}

// InTolerance 实测克重是否落在公差带内（含边界）
func InTolerance(r Recipe, measured float64) bool {
	min, max := ToleranceBand(r)
	return measured >= min-epsilon && measured <= max+epsilon
}

// LayerRatios 各层占比，和为 1
func LayerRatios(r Recipe) Ratios {
	g := CombinedGrammage(r)
	if g <= 0 {
		return Ratios{}
	}
	return Ratios{
		LI: r.LinerInterno / g,
		CM: r.CorrugadoMedio * factor(r) / g,
		LE: r.LinerExterno / g,
	}
}

// Validate 写入前校验
func Validate(r Recipe) error {
	if strings.TrimSpace(r.TestName) == "" {
		return apperr.Wrap(apperr.ErrRecipeValidation, "test name is required")
	}
	if r.ECT <= 0 {
		return apperr.Wrap(apperr.ErrRecipeValidation, "ECT must be positive, got %v", r.ECT)
	}
	if r.LinerInterno <= 0 || r.CorrugadoMedio <= 0 || r.LinerExterno <= 0 {
		return apperr.Wrap(apperr.ErrRecipeValidation, "grammages must be positive (LI=%v CM=%v LE=%v)",
			r.LinerInterno, r.CorrugadoMedio, r.LinerExterno)
	}
	if !(r.CorrugatorFactor > 0) || math.IsInf(r.CorrugatorFactor, 0) {
		return apperr.Wrap(apperr.ErrRecipeValidation, "corrugator factor must be positive")
	}
	return nil
}

var testNumberRe = regexp.MustCompile(`\d+`)

// TestNumber 从 "Test 200" 中取出 200
func TestNumber(name string) (int, bool) {
	m := testNumberRe.FindString(name)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Standard 标准测试目录项
type Standard struct {
	Recipe
	Description string
}

// StandardTests 标准配方目录
func StandardTests() []Standard {
	mk := func(name string, ect, li, cm, le float64, desc string) Standard {
		return Standard{
			Recipe: Recipe{
				TestName:         name,
				ECT:              ect,
				LinerInterno:     li,
				CorrugadoMedio:   cm,
				LinerExterno:     le,
				CorrugatorFactor: DefaultCorrugatorFactor,
			},
			Description: desc,
		}
	}
	return []Standard{
		mk("Test 150", 26, 150, 160, 150, "Test estándar 150 - Uso general"),
		mk("Test 175", 29, 175, 160, 175, "Test estándar 175 - Resistencia media"),
		mk("Test 200", 32, 200, 180, 200, "Test estándar 200 - Alta resistencia"),
		mk("Test 250", 40, 225, 180, 225, "Test estándar 250 - Muy alta resistencia"),
		mk("Test 275", 44, 250, 160, 250, "Test estándar 275 - Máxima resistencia"),
	}
}
