package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
)

type AlertHandler struct {
	svc  *service.AlertService
	errs *errorMapper
}

func NewAlertHandler(svc *service.AlertService, errs *errorMapper) *AlertHandler {
	return &AlertHandler{svc: svc, errs: errs}
}

// KPISummary GET /kpis/summary?production_line=cajas
func (h *AlertHandler) KPISummary(c *gin.Context) {
	sum, err := h.svc.KPISummary(c.Request.Context(), c.Query("production_line"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, sum)
}

// ActiveAlerts GET /kpis/alerts
func (h *AlertHandler) ActiveAlerts(c *gin.Context) {
	list, err := h.svc.ActiveAlerts(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

// RecordKPI POST /kpis
func (h *AlertHandler) RecordKPI(c *gin.Context) {
	var req service.KPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	k, err := h.svc.RecordKPI(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, k)
}

// Expiry GET /inventory/expiry，执行一次过期扫描
func (h *AlertHandler) Expiry(c *gin.Context) {
	list, err := h.svc.ExpirySweep(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list, "threshold_days": h.svc.ExpiryThreshold()})
}

// QualityAlerts GET /inventory/quality-alerts
func (h *AlertHandler) QualityAlerts(c *gin.Context) {
	list, err := h.svc.QualityAlerts(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

// CreateQuant POST /inventory/quants
func (h *AlertHandler) CreateQuant(c *gin.Context) {
	var req service.QuantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	q, err := h.svc.CreateQuant(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, q)
}

// SetQuality PUT /inventory/quants/:id/quality
func (h *AlertHandler) SetQuality(c *gin.Context) {
	var req struct {
		Status string `json:"quality_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	q, err := h.svc.SetQualityStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, q)
}
