package service

import (
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
)

// routing 工单路线判定条件
type routing struct {
	requiresFolding bool
	hasCeja         bool
}

func routingFor(wo *entity.WorkOrder, orders []entity.ProductionOrder) routing {
	r := routing{requiresFolding: wo.RequiresFolding}
	for _, po := range orders {
		if po.Ceja > 0 {
			r.hasCeja = true
			break
		}
	}
	return r
}

// next 当前工序完成后的下一工序；返回 completed 表示工单结束
func (r routing) next(kind string) (string, error) {
	switch kind {
	case entity.StagePreprinter:
		return entity.StageMicrocorrugado, nil
	case entity.StageMicrocorrugado:
		if r.requiresFolding || r.hasCeja {
			return entity.StageDobladora, nil
		}
		return entity.StageEmpaque, nil
	case entity.StageDobladora:
		if r.hasCeja {
			return entity.StageCorteCeja, nil
		}
		return entity.StageEmpaque, nil
	case entity.StageCorteCeja:
		return entity.StageGuillotina, nil
	case entity.StageGuillotina:
		return entity.StageEmpaque, nil
	case entity.StageEmpaque:
		return entity.StageAlmacenamiento, nil
	case entity.StageAlmacenamiento:
		return entity.WOStateCompleted, nil
	}
	return "", apperr.Wrap(apperr.ErrStateMachineIllegal, "unknown stage kind %q", kind)
}

// path 完整工序路线
func (r routing) path() []string {
	kinds := []string{entity.StagePreprinter}
	for {
		n, err := r.next(kinds[len(kinds)-1])
		if err != nil || n == entity.WOStateCompleted {
			return kinds
		}
		kinds = append(kinds, n)
	}
}

// progress 已完成工序占路线百分比
func (r routing) progress(finished int) float64 {
	total := len(r.path())
	if finished >= total {
		return 100
	}
	return round2(float64(finished) / float64(total) * 100)
}
