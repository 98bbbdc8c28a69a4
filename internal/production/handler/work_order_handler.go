package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
)

// ============================================================
// Work Order Handler
// ============================================================

type WorkOrderHandler struct {
	svc    *service.WorkOrderService
	stages *service.StageService
	errs   *errorMapper
}

func NewWorkOrderHandler(svc *service.WorkOrderService, stages *service.StageService, errs *errorMapper) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, stages: stages, errs: errs}
}

// Generate POST /work-orders/generate
func (h *WorkOrderHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}
	list, err := h.svc.Generate(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, gin.H{"items": list})
}

// List GET /work-orders?estado=&keyword=
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	list, total, err := h.svc.List(c.Request.Context(), repository.WorkOrderListParams{
		State:   c.Query("estado"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    pageSize,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, ListResponse{Items: list, Pagination: newPagination(page, pageSize, total)})
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, wo)
}

// Start POST /work-orders/:id/start
func (h *WorkOrderHandler) Start(c *gin.Context) {
	wo, err := h.svc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, wo)
}

// FinishStage POST /work-orders/:id/finish-stage
func (h *WorkOrderHandler) FinishStage(c *gin.Context) {
	res, err := h.stages.FinishActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, res)
}

// Stages GET /work-orders/:id/stages
func (h *WorkOrderHandler) Stages(c *gin.Context) {
	list, err := h.stages.ListByWorkOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

// Aggregates GET /work-orders/:id/aggregates
func (h *WorkOrderHandler) Aggregates(c *gin.Context) {
	rep, err := h.svc.Aggregates(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, rep)
}

// Export GET /work-orders/:id/export
func (h *WorkOrderHandler) Export(c *gin.Context) {
	data, filename, err := h.svc.ExportReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	writeXLSX(c, filename, data)
}

// ============================================================
// Stage Handler
// ============================================================

type StageHandler struct {
	svc  *service.StageService
	errs *errorMapper
}

func NewStageHandler(svc *service.StageService, errs *errorMapper) *StageHandler {
	return &StageHandler{svc: svc, errs: errs}
}

func (h *StageHandler) Get(c *gin.Context) {
	st, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, st)
}

// Finish POST /stages/:id/finish
func (h *StageHandler) Finish(c *gin.Context) {
	res, err := h.svc.Finish(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, res)
}

// AddMaterial POST /stages/:id/materials
func (h *StageHandler) AddMaterial(c *gin.Context) {
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	line, err := h.svc.AddMaterial(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, line)
}

// UpdateMaterial PUT /stages/:id/materials/:lineId
func (h *StageHandler) UpdateMaterial(c *gin.Context) {
	var req service.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	line, err := h.svc.UpdateMaterial(c.Request.Context(), c.Param("id"), c.Param("lineId"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, line)
}

// AddPersonnel POST /stages/:id/personnel
func (h *StageHandler) AddPersonnel(c *gin.Context) {
	var req service.PersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	line, err := h.svc.AddPersonnel(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, line)
}

// UpdatePersonnel PUT /stages/:id/personnel/:lineId
func (h *StageHandler) UpdatePersonnel(c *gin.Context) {
	var req service.PersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	line, err := h.svc.UpdatePersonnel(c.Request.Context(), c.Param("id"), c.Param("lineId"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, line)
}

// UpdateAttributes PATCH /stages/:id/attributes
func (h *StageHandler) UpdateAttributes(c *gin.Context) {
	var attrs map[string]interface{}
	if err := c.ShouldBindJSON(&attrs); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	st, err := h.svc.UpdateAttributes(c.Request.Context(), c.Param("id"), attrs)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, st)
}
