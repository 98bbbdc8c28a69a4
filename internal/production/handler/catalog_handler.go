package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
)

// ============================================================
// Recipe Handler
// ============================================================

type RecipeHandler struct {
	svc  *service.RecipeService
	errs *errorMapper
}

func NewRecipeHandler(svc *service.RecipeService, errs *errorMapper) *RecipeHandler {
	return &RecipeHandler{svc: svc, errs: errs}
}

// List GET /recipes?active=true
func (h *RecipeHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), queryBool(c, "active", false))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

// Create POST /recipes
func (h *RecipeHandler) Create(c *gin.Context) {
	var req service.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	view, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, view)
}

// Get GET /recipes/:id
func (h *RecipeHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, view)
}

// Update PUT /recipes/:id
func (h *RecipeHandler) Update(c *gin.Context) {
	var req service.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	view, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, view)
}

// Delete DELETE /recipes/:id
func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, nil)
}

// Seed POST /recipes/seed
func (h *RecipeHandler) Seed(c *gin.Context) {
	n, err := h.svc.SeedStandardTests(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"created": n})
}

// CheckTolerance POST /recipes/:id/tolerance-check
func (h *RecipeHandler) CheckTolerance(c *gin.Context) {
	var req struct {
		Measured float64 `json:"gramaje_medido" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.svc.CheckTolerance(c.Request.Context(), c.Param("id"), req.Measured)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, res)
}

// ============================================================
// Catalog Handler（楞型、母卷、工作中心）
// ============================================================

type CatalogHandler struct {
	svc  *service.CatalogService
	errs *errorMapper
}

func NewCatalogHandler(svc *service.CatalogService, errs *errorMapper) *CatalogHandler {
	return &CatalogHandler{svc: svc, errs: errs}
}

func (h *CatalogHandler) ListFlutes(c *gin.Context) {
	list, err := h.svc.ListFlutes(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

func (h *CatalogHandler) CreateFlute(c *gin.Context) {
	var req service.FluteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	f, err := h.svc.CreateFlute(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, f)
}

func (h *CatalogHandler) GetFlute(c *gin.Context) {
	f, err := h.svc.GetFlute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, f)
}

func (h *CatalogHandler) UpdateFlute(c *gin.Context) {
	var req service.FluteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	f, err := h.svc.UpdateFlute(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, f)
}

// ListBobinas GET /bobinas?active=true
func (h *CatalogHandler) ListBobinas(c *gin.Context) {
	list, err := h.svc.ListBobinas(c.Request.Context(), queryBool(c, "active", false))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

func (h *CatalogHandler) CreateBobina(c *gin.Context) {
	var req service.BobinaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	b, err := h.svc.CreateBobina(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, b)
}

func (h *CatalogHandler) GetBobina(c *gin.Context) {
	b, err := h.svc.GetBobina(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, b)
}

func (h *CatalogHandler) UpdateBobina(c *gin.Context) {
	var req service.BobinaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	b, err := h.svc.UpdateBobina(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, b)
}

func (h *CatalogHandler) ListWorkCenters(c *gin.Context) {
	list, err := h.svc.ListWorkCenters(c.Request.Context())
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, gin.H{"items": list})
}

func (h *CatalogHandler) CreateWorkCenter(c *gin.Context) {
	var req service.WorkCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	wc, err := h.svc.CreateWorkCenter(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, wc)
}

func (h *CatalogHandler) GetWorkCenter(c *gin.Context) {
	wc, err := h.svc.GetWorkCenter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, wc)
}

func (h *CatalogHandler) UpdateWorkCenter(c *gin.Context) {
	var req service.WorkCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	wc, err := h.svc.UpdateWorkCenter(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, wc)
}

// ============================================================
// Product Handler
// ============================================================

type ProductHandler struct {
	svc  *service.ProductService
	errs *errorMapper
}

func NewProductHandler(svc *service.ProductService, errs *errorMapper) *ProductHandler {
	return &ProductHandler{svc: svc, errs: errs}
}

// List GET /products?category=&keyword=&page=&page_size=
func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	list, total, err := h.svc.List(c.Request.Context(), repository.ProductListParams{
		Category: c.Query("category"),
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

func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Created(c, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, p)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	Success(c, p)
}
