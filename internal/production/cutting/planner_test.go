package cutting

import (
	"errors"
	"testing"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioOrders() []Order {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	return []Order{
		{ID: "A", OrderNumber: "OP-001", Test: 200, Width: 400, Length: 500, Quantity: 1000, Cavity: 2, DueDate: due},
		{ID: "B", OrderNumber: "OP-002", Test: 200, Width: 300, Length: 400, Quantity: 900, Cavity: 2, DueDate: due},
		{ID: "C", OrderNumber: "OP-003", Test: 200, Width: 500, Length: 600, Quantity: 300, Cavity: 1, DueDate: due},
	}
}

func orderIDs(g Group) []string {
	ids := make([]string, 0, len(g.Orders))
	for _, a := range g.Orders {
		ids = append(ids, a.OrderID)
	}
	return ids
}

func assertGroupInvariants(t *testing.T, res *Result, cavityLimit int) {
	t.Helper()
	for _, g := range res.Groups {
		var sum float64
		var cav int
		for _, a := range g.Orders {
			assert.GreaterOrEqual(t, a.Waste, 0.0)
			assert.GreaterOrEqual(t, a.Efficiency, 0.0)
			assert.LessOrEqual(t, a.Efficiency, 100.0)
		}
		seen := map[float64]bool{}
		for _, a := range g.Orders {
			key := a.LaneWidth*1000 + float64(a.Cavity)
			if !seen[key] {
				seen[key] = true
				sum += a.LaneWidth
				cav += a.Cavity
			}
		}
		assert.LessOrEqual(t, g.WidthUsed, g.Reel)
		assert.InDelta(t, sum, g.WidthUsed, 1e-9)
		assert.LessOrEqual(t, cav, cavityLimit)
		assert.InDelta(t, g.Reel-g.WidthUsed, g.Waste, 1e-9)
	}
}

func TestPlanPerGroupReels(t *testing.T) {
	res, err := Plan(scenarioOrders(), []float64{1800, 1600, 1400}, Options{TestPrincipal: 200, CavityLimit: 6})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)

	assert.InDelta(t, 900.0, res.TotalWaste, 1e-9)
	assert.InDelta(t, (100.0+500.0/1400.0*100)/2, res.AvgEfficiency, 1e-9)
	assert.Equal(t, 0.0, res.OptimalReel)

	first, second := res.Groups[0], res.Groups[1]
	assert.ElementsMatch(t, []string{"A", "B"}, orderIDs(first))
	assert.Equal(t, 1400.0, first.Reel)
	assert.Equal(t, 0.0, first.Waste)
	assert.Equal(t, CombinedDupla, first.CombinedType)

	assert.Equal(t, []string{"C"}, orderIDs(second))
	assert.Equal(t, 1400.0, second.Reel)
	assert.Equal(t, 900.0, second.Waste)
	assert.Equal(t, CombinedIndividual, second.CombinedType)

	assert.Equal(t, 1, first.Index)
	assert.Equal(t, 2, second.Index)
	assertGroupInvariants(t, res, 6)
}

func TestPlanSingleReel(t *testing.T) {
	res, err := Plan(scenarioOrders(), []float64{1800, 1600, 1400}, Options{TestPrincipal: 200, CavityLimit: 6, SingleReel: true})
	require.NoError(t, err)
	assert.Equal(t, 1400.0, res.OptimalReel)
	assert.InDelta(t, 900.0, res.TotalWaste, 1e-9)
	require.Len(t, res.Groups, 2)
	for _, g := range res.Groups {
		assert.Equal(t, 1400.0, g.Reel)
	}
	assert.Empty(t, res.Unplaceable)
	assertGroupInvariants(t, res, 6)
}

func TestPlanSingleReelCandidateTotals(t *testing.T) {
	cases := map[float64]float64{1800: 1700, 1600: 1300, 1400: 900}
	for reel, want := range cases {
		res, err := Plan(scenarioOrders(), []float64{reel}, Options{TestPrincipal: 200, CavityLimit: 6, SingleReel: true})
		require.NoError(t, err)
		assert.InDelta(t, want, res.TotalWaste, 1e-9, "reel %v", reel)
		assert.Len(t, res.Groups, 2)
	}
}

func TestPlanPerOrderFigures(t *testing.T) {
	res, err := Plan(scenarioOrders(), []float64{1400}, Options{TestPrincipal: 200, CavityLimit: 6})
	require.NoError(t, err)

	byID := map[string]Allocation{}
	for _, g := range res.Groups {
		for _, a := range g.Orders {
			byID[a.OrderID] = a
		}
	}
	require.Len(t, byID, 3)
	assert.Equal(t, 500, byID["A"].Cuts)
	assert.InDelta(t, 250.0, byID["A"].LinearMeters, 1e-9)
	assert.Equal(t, 450, byID["B"].Cuts)
	assert.InDelta(t, 180.0, byID["B"].LinearMeters, 1e-9)
	assert.Equal(t, 300, byID["C"].Cuts)
	assert.InDelta(t, 900.0, byID["C"].Waste, 1e-9)
}

func TestPlanCutsRoundUp(t *testing.T) {
	orders := []Order{{ID: "X", OrderNumber: "OP-9", Test: 150, Width: 300, Length: 1000, Quantity: 7, Cavity: 2}}
	res, err := Plan(orders, []float64{800}, Options{TestPrincipal: 150, CavityLimit: 4})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	a := res.Groups[0].Orders[0]
	assert.Equal(t, 4, a.Cuts)
	assert.InDelta(t, 4.0, a.LinearMeters, 1e-9)
}

func TestPlanProportionalWaste(t *testing.T) {
	orders := []Order{
		{ID: "P", OrderNumber: "1", Test: 200, Width: 300, Length: 100, Quantity: 10, Cavity: 1},
		{ID: "Q", OrderNumber: "2", Test: 200, Width: 200, Length: 100, Quantity: 10, Cavity: 2},
	}
	res, err := Plan(orders, []float64{1000}, Options{TestPrincipal: 200, CavityLimit: 4})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.InDelta(t, 300.0, g.Waste, 1e-9)

	var total float64
	for _, a := range g.Orders {
		total += a.Waste
		switch a.OrderID {
		case "P":
			assert.InDelta(t, 300.0*300.0/700.0, a.Waste, 1e-9)
		case "Q":
			assert.InDelta(t, 300.0*400.0/700.0, a.Waste, 1e-9)
		}
		assert.InDelta(t, 70.0, a.Efficiency, 1e-9)
	}
	assert.InDelta(t, g.Waste, total, 1e-9)
}

func TestPlanCavityLimitSplitsGroups(t *testing.T) {
	orders := []Order{
		{ID: "1", OrderNumber: "1", Test: 200, Width: 100, Length: 100, Quantity: 10, Cavity: 2},
		{ID: "2", OrderNumber: "2", Test: 200, Width: 110, Length: 100, Quantity: 10, Cavity: 2},
		{ID: "3", OrderNumber: "3", Test: 200, Width: 120, Length: 100, Quantity: 10, Cavity: 2},
	}
	res, err := Plan(orders, []float64{1800}, Options{TestPrincipal: 200, CavityLimit: 4})
	require.NoError(t, err)
	assert.Len(t, res.Groups, 2)
	assertGroupInvariants(t, res, 4)
}

func TestPlanExclusions(t *testing.T) {
	orders := append(scenarioOrders(),
		Order{ID: "T", OrderNumber: "OP-010", Test: 150, Width: 300, Length: 300, Quantity: 10, Cavity: 1},
		Order{ID: "M", OrderNumber: "OP-011", Test: 200, Width: 0, Length: 300, Quantity: 10, Cavity: 1},
	)
	res, err := Plan(orders, []float64{1800, 1600, 1400}, Options{TestPrincipal: 200, CavityLimit: 6})
	require.NoError(t, err)
	require.Len(t, res.Excluded, 2)
	reasons := map[string]string{}
	for _, e := range res.Excluded {
		reasons[e.OrderID] = e.Reason
	}
	assert.Equal(t, ReasonTestMismatch, reasons["T"])
	assert.Equal(t, ReasonMissingDimensions, reasons["M"])
	assert.InDelta(t, 900.0, res.TotalWaste, 1e-9)
}

func TestPlanUnplaceable(t *testing.T) {
	orders := append(scenarioOrders(),
		Order{ID: "W", OrderNumber: "OP-020", Test: 200, Width: 1500, Length: 300, Quantity: 10, Cavity: 1},
		Order{ID: "K", OrderNumber: "OP-021", Test: 200, Width: 50, Length: 300, Quantity: 10, Cavity: 8},
	)
	res, err := Plan(orders, []float64{1400}, Options{TestPrincipal: 200, CavityLimit: 6, SingleReel: true})
	require.NoError(t, err)
	require.Len(t, res.Unplaceable, 2)
	reasons := map[string]string{}
	for _, u := range res.Unplaceable {
		reasons[u.OrderID] = u.Reason
	}
	assert.Equal(t, ReasonNoReelFits, reasons["W"])
	assert.Equal(t, ReasonCavityLimit, reasons["K"])
	assertGroupInvariants(t, res, 6)
}

func TestPlanPrefersReelPlacingEverything(t *testing.T) {
	orders := append(scenarioOrders(),
		Order{ID: "W", OrderNumber: "OP-020", Test: 200, Width: 1500, Length: 300, Quantity: 10, Cavity: 1},
	)
	res, err := Plan(orders, []float64{1800, 1400}, Options{TestPrincipal: 200, CavityLimit: 6, SingleReel: true})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, res.OptimalReel)
	assert.Empty(t, res.Unplaceable)
}

func TestPlanMergesIdenticalLanes(t *testing.T) {
	d1 := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	orders := []Order{
		{ID: "late", OrderNumber: "OP-2", Test: 200, Width: 600, Length: 100, Quantity: 10, Cavity: 2, DueDate: d2},
		{ID: "early", OrderNumber: "OP-1", Test: 200, Width: 600, Length: 100, Quantity: 10, Cavity: 2, DueDate: d1},
	}
	res, err := Plan(orders, []float64{1400}, Options{TestPrincipal: 200, CavityLimit: 4})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, 1200.0, g.WidthUsed)
	assert.Equal(t, 2, g.Cavities)
	assert.Equal(t, []string{"early", "late"}, orderIDs(g))
	assert.InDelta(t, 100.0, g.Orders[0].Waste, 1e-9)
}

func TestPlanDeterministic(t *testing.T) {
	first, err := Plan(scenarioOrders(), []float64{1400, 1800, 1600, 1400}, Options{TestPrincipal: 200, CavityLimit: 6})
	require.NoError(t, err)
	reversed := scenarioOrders()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	second, err := Plan(reversed, []float64{1600, 1400, 1800}, Options{TestPrincipal: 200, CavityLimit: 6})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPlanInputErrors(t *testing.T) {
	_, err := Plan(nil, []float64{1400}, Options{TestPrincipal: 200, CavityLimit: 4})
	assert.True(t, errors.Is(err, apperr.ErrPlanningInput))

	_, err = Plan(scenarioOrders(), []float64{0, -5}, Options{TestPrincipal: 200, CavityLimit: 4})
	assert.True(t, errors.Is(err, apperr.ErrPlanningInput))

	_, err = Plan(scenarioOrders(), []float64{1400}, Options{TestPrincipal: 200, CavityLimit: 0})
	assert.True(t, errors.Is(err, apperr.ErrPlanningInput))
}

func TestNormalizeReels(t *testing.T) {
	assert.Equal(t, []float64{1800, 1400, 800}, NormalizeReels([]float64{1400, 800, 1800, 1400, 0}))
}
