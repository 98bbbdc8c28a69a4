package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Recipe    *RecipeHandler
	Catalog   *CatalogHandler
	Product   *ProductHandler
	Order     *OrderHandler
	Planning  *PlanningHandler
	WorkOrder *WorkOrderHandler
	Stage     *StageHandler
	Alert     *AlertHandler
	Legacy    *LegacyHandler
	SSE       *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	errs := &errorMapper{logger: logger}
	return &Handlers{
		Recipe:    NewRecipeHandler(svc.Recipe, errs),
		Catalog:   NewCatalogHandler(svc.Catalog, errs),
		Product:   NewProductHandler(svc.Product, errs),
		Order:     NewOrderHandler(svc.Order, svc.Consumption, svc.Import, errs),
		Planning:  NewPlanningHandler(svc.Planning, errs),
		WorkOrder: NewWorkOrderHandler(svc.WorkOrder, svc.Stage, errs),
		Stage:     NewStageHandler(svc.Stage, errs),
		Alert:     NewAlertHandler(svc.Alert, errs),
		Legacy:    NewLegacyHandler(svc.Legacy, logger),
		SSE:       NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, pageSize int, total int64) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages}
}

// 业务错误码
const (
	CodeBadRequest   = 40000
	CodeUnauthorized = 40100
	CodeForbidden    = 40300
	CodeNotFound     = 40400
	CodeConflict     = 40900
	CodeConcurrent   = 40901
	CodeInternal     = 50000
)

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, CodeBadRequest, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, CodeInternal, message)
}

// errorMapper 业务错误转响应；内部错误只记日志不外泄
type errorMapper struct {
	logger *zap.Logger
}

func (m *errorMapper) respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(c, err.Error())
	case apperr.IsClientError(err):
		BadRequest(c, err.Error())
	case errors.Is(err, apperr.ErrConcurrentPlanning):
		Error(c, CodeConcurrent, err.Error())
	case apperr.IsConflict(err):
		Error(c, CodeConflict, err.Error())
	default:
		m.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		InternalError(c, "服务器内部错误")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// queryBool 解析布尔查询参数，缺省返回 def
func queryBool(c *gin.Context, key string, def bool) bool {
	v := c.Query(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
