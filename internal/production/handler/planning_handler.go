package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
)

type PlanningHandler struct {
	svc  *service.PlanningService
	errs *errorMapper
}

func NewPlanningHandler(svc *service.PlanningService, errs *errorMapper) *PlanningHandler {
	return &PlanningHandler{svc: svc, errs: errs}
}

// Run POST /planning/run
func (h *PlanningHandler) Run(c *gin.Context) {
	var req service.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.svc.Plan(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, res)
}

// ListRuns GET /planning/runs
func (h *PlanningHandler) ListRuns(c *gin.Context) {
	page, pageSize := GetPagination(c)
	runs, total, err := h.svc.ListRuns(c.Request.Context(), page, pageSize)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, ListResponse{Items: runs, Pagination: newPagination(page, pageSize, total)})
}

// GetRun GET /planning/runs/:id
func (h *PlanningHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, run)
}

// Report GET /planning/runs/:id/report
func (h *PlanningHandler) Report(c *gin.Context) {
	data, filename, err := h.svc.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	writeXLSX(c, filename, data)
}

// ResetGroup DELETE /planning/groups/:group
func (h *PlanningHandler) ResetGroup(c *gin.Context) {
	n, err := h.svc.ResetPlanning(c.Request.Context(), c.Param("group"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"reset": n})
}
