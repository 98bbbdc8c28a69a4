// Package cutting 母卷排刀（bobina cutting-stock）规划。
//
// 订单按 (宽度, 模数, 测试) 归并为刀位，按宽度降序装入分组，每组占用一卷母卷的宽度。
// 结果对相同输入完全确定。
package cutting

import (
	"math"
	"sort"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
)

const (
	ReasonTestMismatch      = "test_mismatch"
	ReasonMissingDimensions = "missing_dimensions"
	ReasonNoReelFits        = "no_reel_fits"
	ReasonCavityLimit       = "cavity_exceeds_limit"

	CombinedIndividual = "individual"
	CombinedDupla      = "dupla"
	CombinedTripla     = "tripla"
	CombinedMultiple   = "multiple"

	swapPasses = 2
	eps        = 1e-6
)

// Order 参与排产的生产订单，宽度/长度为展开坯料尺寸 (mm)
type Order struct {
	ID          string
	OrderNumber string
	Test        int
	Width       float64
	Length      float64
	Quantity    int
	Cavity      int
	DueDate     time.Time
}

// Options 排产参数
type Options struct {
	TestPrincipal int
	CavityLimit   int
	SingleReel    bool
}

// Exclusion 未参与或无法排入的订单
type Exclusion struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// Allocation 单个订单的排产结果
type Allocation struct {
	OrderID      string  `json:"order_id"`
	OrderNumber  string  `json:"order_number"`
	Width        float64 `json:"width"`
	Cavity       int     `json:"cavity"`
	LaneWidth    float64 `json:"lane_width"`
	Waste        float64 `json:"waste"`
	Efficiency   float64 `json:"efficiency"`
	Cuts         int     `json:"cuts"`
	LinearMeters float64 `json:"linear_meters"`
}

// Group 一次走刀的分组
type Group struct {
	Index        int          `json:"index"`
	Reel         float64      `json:"reel"`
	WidthUsed    float64      `json:"width_used"`
	Cavities     int          `json:"cavities"`
	Waste        float64      `json:"waste"`
	Efficiency   float64      `json:"efficiency"`
	CombinedType string       `json:"combined_type"`
	Orders       []Allocation `json:"orders"`
}

// Result 排产报告
type Result struct {
	SingleReel    bool        `json:"single_reel"`
	Groups        []Group     `json:"groups"`
	TotalWaste    float64     `json:"total_waste"`
	AvgEfficiency float64     `json:"avg_efficiency"`
	OptimalReel   float64     `json:"optimal_reel,omitempty"`
	Unplaceable   []Exclusion `json:"unplaceable"`
	Excluded      []Exclusion `json:"excluded"`
}

// lane 同宽同模数订单归并后的刀位
type lane struct {
	orders []Order
	width  float64
	cavity int
	test   int
	due    time.Time
	number string
}

func (l lane) occupied() float64 {
	return float64(l.cavity) * l.width
}

type bin struct {
	lanes []int
	used  float64
	cav   int
}

type packing struct {
	reel        float64
	bins        []bin
	unplaceable []int
	waste       float64
}

// NormalizeReels 去重、剔除非正宽度并降序
func NormalizeReels(reels []float64) []float64 {
	seen := make(map[float64]bool, len(reels))
	out := make([]float64, 0, len(reels))
	for _, w := range reels {
		if w <= 0 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// Plan 执行排产
func Plan(orders []Order, reels []float64, opts Options) (*Result, error) {
	if len(orders) == 0 {
		return nil, apperr.Wrap(apperr.ErrPlanningInput, "no production orders selected")
	}
	if opts.CavityLimit <= 0 {
		return nil, apperr.Wrap(apperr.ErrPlanningInput, "cavity limit must be positive, got %d", opts.CavityLimit)
	}
	widths := NormalizeReels(reels)
	if len(widths) == 0 {
		return nil, apperr.Wrap(apperr.ErrPlanningInput, "no active reels")
	}

	res := &Result{
		SingleReel:  opts.SingleReel,
		Groups:      []Group{},
		Unplaceable: []Exclusion{},
		Excluded:    []Exclusion{},
	}

	eligible := make([]Order, 0, len(orders))
	for _, o := range orders {
		switch {
		case o.Test != opts.TestPrincipal:
			res.Excluded = append(res.Excluded, exclusion(o, ReasonTestMismatch))
		case o.Width <= 0 || o.Length <= 0 || o.Quantity <= 0 || o.Cavity <= 0:
			res.Excluded = append(res.Excluded, exclusion(o, ReasonMissingDimensions))
		default:
			eligible = append(eligible, o)
		}
	}
	if len(eligible) == 0 {
		return res, nil
	}

	lanes := canonicalize(eligible)

	var best *packing
	for _, b := range widths {
		p := pack(lanes, b, opts.CavityLimit)
		var wasteOf func(used float64) float64
		if opts.SingleReel {
			reel := b
			wasteOf = func(used float64) float64 { return reel - used }
		} else {
			wasteOf = func(used float64) float64 { return smallestFit(widths, used) - used }
		}
		improve(p, lanes, b, opts.CavityLimit, wasteOf)
		p.waste = 0
		for _, bn := range p.bins {
			p.waste += wasteOf(bn.used)
		}
		if best == nil || better(p, best, opts.SingleReel) {
			best = p
		}
	}

	for i, bn := range best.bins {
		reel := best.reel
		if !opts.SingleReel {
			reel = smallestFit(widths, bn.used)
		}
		res.Groups = append(res.Groups, buildGroup(i+1, reel, bn, lanes))
	}
	for _, li := range best.unplaceable {
		reason := ReasonNoReelFits
		if lanes[li].cavity > opts.CavityLimit {
			reason = ReasonCavityLimit
		}
		for _, o := range lanes[li].orders {
			res.Unplaceable = append(res.Unplaceable, exclusion(o, reason))
		}
	}

	for _, g := range res.Groups {
		res.TotalWaste += g.Waste
		res.AvgEfficiency += g.Efficiency
	}
	if len(res.Groups) > 0 {
		res.AvgEfficiency /= float64(len(res.Groups))
	}
	if opts.SingleReel {
		res.OptimalReel = best.reel
	}
	return res, nil
}

func exclusion(o Order, reason string) Exclusion {
	return Exclusion{OrderID: o.ID, OrderNumber: o.OrderNumber, Reason: reason}
}

// canonicalize 归并相同 (宽度, 模数, 测试) 的订单并排序
func canonicalize(orders []Order) []lane {
	type key struct {
		width  float64
		cavity int
		test   int
	}
	index := make(map[key]int)
	var lanes []lane
	for _, o := range orders {
		k := key{o.Width, o.Cavity, o.Test}
		i, ok := index[k]
		if !ok {
			i = len(lanes)
			index[k] = i
			lanes = append(lanes, lane{width: o.Width, cavity: o.Cavity, test: o.Test})
		}
		lanes[i].orders = append(lanes[i].orders, o)
	}
	for i := range lanes {
		l := &lanes[i]
		sort.SliceStable(l.orders, func(a, b int) bool {
			return orderLess(l.orders[a], l.orders[b])
		})
		l.due = l.orders[0].DueDate
		l.number = l.orders[0].OrderNumber
	}
	sort.SliceStable(lanes, func(a, b int) bool {
		la, lb := lanes[a], lanes[b]
		if la.width != lb.width {
			return la.width > lb.width
		}
		if c := compareDue(la.due, lb.due); c != 0 {
			return c < 0
		}
		if la.number != lb.number {
			return la.number < lb.number
		}
		if la.cavity != lb.cavity {
			return la.cavity > lb.cavity
		}
		return la.orders[0].ID < lb.orders[0].ID
	})
	return lanes
}

func orderLess(a, b Order) bool {
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c < 0
	}
	if a.OrderNumber != b.OrderNumber {
		return a.OrderNumber < b.OrderNumber
	}
	return a.ID < b.ID
}

// compareDue 交期升序，无交期排最后
func compareDue(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

// pack 按当前母卷宽度逐组首次适配
func pack(lanes []lane, reel float64, cavityLimit int) *packing {
	p := &packing{reel: reel}
	remaining := make([]int, 0, len(lanes))
	for i, l := range lanes {
		if l.occupied() > reel+eps || l.cavity > cavityLimit {
			p.unplaceable = append(p.unplaceable, i)
			continue
		}
		remaining = append(remaining, i)
	}
	for len(remaining) > 0 {
		var bn bin
		rest := make([]int, 0, len(remaining))
		for _, i := range remaining {
			l := lanes[i]
			if bn.used+l.occupied() <= reel+eps && bn.cav+l.cavity <= cavityLimit {
				bn.lanes = append(bn.lanes, i)
				bn.used += l.occupied()
				bn.cav += l.cavity
				continue
			}
			rest = append(rest, i)
		}
		p.bins = append(p.bins, bn)
		remaining = rest
	}
	return p
}

// improve 在最后两组之间做单刀位交换，最多两轮。
// 总废料减少时接受；相等时若前一组更满也接受，使余料集中到最后一组。
func improve(p *packing, lanes []lane, reel float64, cavityLimit int, wasteOf func(float64) float64) {
	for pass := 0; pass < swapPasses; pass++ {
		n := len(p.bins)
		if n < 2 {
			return
		}
		a, b := &p.bins[n-2], &p.bins[n-1]
		if !trySwap(a, b, lanes, reel, cavityLimit, wasteOf) {
			return
		}
	}
}

func trySwap(a, b *bin, lanes []lane, reel float64, cavityLimit int, wasteOf func(float64) float64) bool {
	before := wasteOf(a.used) + wasteOf(b.used)
	for i, ai := range a.lanes {
		for j, bj := range b.lanes {
			la, lb := lanes[ai], lanes[bj]
			newA := a.used - la.occupied() + lb.occupied()
			newB := b.used - lb.occupied() + la.occupied()
			cavA := a.cav - la.cavity + lb.cavity
			cavB := b.cav - lb.cavity + la.cavity
			if newA > reel+eps || newB > reel+eps || cavA > cavityLimit || cavB > cavityLimit {
				continue
			}
			after := wasteOf(newA) + wasteOf(newB)
			if after < before-eps || (math.Abs(after-before) <= eps && newA > a.used+eps) {
				a.lanes[i], b.lanes[j] = bj, ai
				a.used, b.used = newA, newB
				a.cav, b.cav = cavA, cavB
				return true
			}
		}
	}
	return false
}

// better 未排入数少者优先，其次总废料、分组数；单卷模式再取较窄母卷
func better(p, q *packing, singleReel bool) bool {
	if len(p.unplaceable) != len(q.unplaceable) {
		return len(p.unplaceable) < len(q.unplaceable)
	}
	if math.Abs(p.waste-q.waste) > eps {
		return p.waste < q.waste
	}
	if len(p.bins) != len(q.bins) {
		return len(p.bins) < len(q.bins)
	}
	return singleReel && p.reel < q.reel
}

// smallestFit 能容纳 used 的最窄母卷；widths 为降序
func smallestFit(widths []float64, used float64) float64 {
	fit := widths[0]
	for _, w := range widths {
		if w+eps >= used {
			fit = w
		}
	}
	return fit
}

func buildGroup(index int, reel float64, bn bin, lanes []lane) Group {
	g := Group{
		Index:        index,
		Reel:         reel,
		WidthUsed:    bn.used,
		Cavities:     bn.cav,
		Waste:        reel - bn.used,
	}
	if g.Waste < 0 {
		g.Waste = 0
	}
	if reel > 0 {
		g.Efficiency = bn.used / reel * 100
	}

	var shareTotal float64
	for _, li := range bn.lanes {
		for _, o := range lanes[li].orders {
			shareTotal += float64(o.Cavity) * o.Width
		}
	}
	for _, li := range bn.lanes {
		for _, o := range lanes[li].orders {
			share := float64(o.Cavity) * o.Width
			cuts := int(math.Ceil(float64(o.Quantity) / float64(o.Cavity)))
			a := Allocation{
				OrderID:      o.ID,
				OrderNumber:  o.OrderNumber,
				Width:        o.Width,
				Cavity:       o.Cavity,
				LaneWidth:    share,
				Efficiency:   g.Efficiency,
				Cuts:         cuts,
				LinearMeters: float64(cuts) * o.Length / 1000,
			}
			if shareTotal > 0 {
				a.Waste = g.Waste * share / shareTotal
			}
			g.Orders = append(g.Orders, a)
		}
	}
	g.CombinedType = combinedType(len(g.Orders))
	return g
}

// combinedType 按组内订单数
func combinedType(orders int) string {
	switch orders {
	case 1:
		return CombinedIndividual
	case 2:
		return CombinedDupla
	case 3:
		return CombinedTripla
	}
	return CombinedMultiple
}
