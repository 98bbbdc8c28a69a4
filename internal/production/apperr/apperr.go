// Package apperr 生产核心的错误分类。
//
// 调用方用 errors.Is 判断类别，具体上下文通过 fmt.Errorf("...: %w") 附加。
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrRecipeValidation     = errors.New("recipe validation")
	ErrPlanningInput        = errors.New("planning input")
	ErrPlanningInfeasible   = errors.New("planning infeasible")
	ErrStageAlreadyFinished = errors.New("stage already finished")
	ErrStateMachineIllegal  = errors.New("illegal state transition")
	ErrDuplicateWorkOrder   = errors.New("duplicate work order")
	ErrConcurrentPlanning   = errors.New("concurrent planning")
	ErrNotFound             = errors.New("record not found")
	ErrInterface            = errors.New("invalid request")
)

// Wrap 在类别错误上附加说明
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// IsClientError 是否为调用方可修正的错误
func IsClientError(err error) bool {
	return errors.Is(err, ErrRecipeValidation) ||
		errors.Is(err, ErrPlanningInput) ||
		errors.Is(err, ErrInterface)
}

// IsConflict 是否为状态冲突类错误
func IsConflict(err error) bool {
	return errors.Is(err, ErrStageAlreadyFinished) ||
		errors.Is(err, ErrStateMachineIllegal) ||
		errors.Is(err, ErrDuplicateWorkOrder)
}
