package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// writeXLSX 以附件形式返回 Excel
func writeXLSX(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Data(200, xlsxContentType, data)
}

type OrderHandler struct {
	svc         *service.OrderService
	consumption *service.ConsumptionService
	importer    *service.ImportService
	errs        *errorMapper
}

func NewOrderHandler(svc *service.OrderService, consumption *service.ConsumptionService, importer *service.ImportService, errs *errorMapper) *OrderHandler {
	return &OrderHandler{svc: svc, consumption: consumption, importer: importer, errs: errs}
}

// List GET /production-orders?status=&cliente=&test_name=&grupo=&keyword=
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	list, total, err := h.svc.List(c.Request.Context(), repository.OrderListParams{
		Status:   c.Query("status"),
		Client:   c.Query("cliente"),
		TestName: c.Query("test_name"),
		GroupID:  c.Query("grupo"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     pageSize,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, ListResponse{Items: list, Pagination: newPagination(page, pageSize, total)})
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	po, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, po)
}

func (h *OrderHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, po)
}

func (h *OrderHandler) Update(c *gin.Context) {
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	po, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, po)
}

// Consumption GET /production-orders/:id/consumption
func (h *OrderHandler) Consumption(c *gin.Context) {
	sheet, err := h.consumption.ForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, sheet)
}

// Import POST /production-orders/import (multipart: file, delimiter, skip_rows, update_existing)
func (h *OrderHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传CSV或Excel文件")
		return
	}
	defer file.Close()

	opts := service.ImportOptions{
		Filename:  header.Filename,
		Delimiter: c.PostForm("delimiter"),
	}
	if v := c.PostForm("skip_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			BadRequest(c, "skip_rows 必须为非负整数")
			return
		}
		opts.SkipRows = &n
	}
	if v := c.PostForm("update_existing"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, "update_existing 必须为布尔值")
			return
		}
		opts.UpdateExisting = &b
	}

	res, err := h.importer.ImportOrders(c.Request.Context(), file, opts)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, res)
}
