package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/middleware"
)

// PermRecipeDelete 删除配方所需权限
const PermRecipeDelete = "recipes:delete"

// Register 注册 /api/v1 下需认证的路由
func (h *Handlers) Register(api *gin.RouterGroup) {
	recipes := api.Group("/recipes")
	{
		recipes.GET("", h.Recipe.List)
		recipes.POST("", h.Recipe.Create)
		recipes.POST("/seed", middleware.RequireRole(middleware.AdminRole), h.Recipe.Seed)
		recipes.GET("/:id", h.Recipe.Get)
		recipes.PUT("/:id", h.Recipe.Update)
		recipes.DELETE("/:id", middleware.RequirePermission(PermRecipeDelete), h.Recipe.Delete)
		recipes.POST("/:id/tolerance-check", h.Recipe.CheckTolerance)
	}

	flutes := api.Group("/flutes")
	{
		flutes.GET("", h.Catalog.ListFlutes)
		flutes.POST("", h.Catalog.CreateFlute)
		flutes.GET("/:id", h.Catalog.GetFlute)
		flutes.PUT("/:id", h.Catalog.UpdateFlute)
	}

	bobinas := api.Group("/bobinas")
	{
		bobinas.GET("", h.Catalog.ListBobinas)
		bobinas.POST("", h.Catalog.CreateBobina)
		bobinas.GET("/:id", h.Catalog.GetBobina)
		bobinas.PUT("/:id", h.Catalog.UpdateBobina)
	}

	workCenters := api.Group("/work-centers")
	{
		workCenters.GET("", h.Catalog.ListWorkCenters)
		workCenters.POST("", h.Catalog.CreateWorkCenter)
		workCenters.GET("/:id", h.Catalog.GetWorkCenter)
		workCenters.PUT("/:id", h.Catalog.UpdateWorkCenter)
	}

	products := api.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", h.Product.Create)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
	}

	orders := api.Group("/production-orders")
	{
		orders.GET("", h.Order.List)
		orders.POST("", h.Order.Create)
		orders.POST("/import", h.Order.Import)
		orders.GET("/:id", h.Order.Get)
		orders.PUT("/:id", h.Order.Update)
		orders.GET("/:id/consumption", h.Order.Consumption)
	}

	planning := api.Group("/planning", middleware.RequireRole(middleware.PlannerRole))
	{
		planning.POST("/run", h.Planning.Run)
		planning.GET("/runs", h.Planning.ListRuns)
		planning.GET("/runs/:id", h.Planning.GetRun)
		planning.GET("/runs/:id/report", h.Planning.Report)
		planning.DELETE("/groups/:group", h.Planning.ResetGroup)
	}

	workOrders := api.Group("/work-orders")
	{
		workOrders.POST("/generate", middleware.RequireRole(middleware.PlannerRole), h.WorkOrder.Generate)
		workOrders.GET("", h.WorkOrder.List)
		workOrders.GET("/:id", h.WorkOrder.Get)
		workOrders.POST("/:id/start", h.WorkOrder.Start)
		workOrders.POST("/:id/finish-stage", h.WorkOrder.FinishStage)
		workOrders.GET("/:id/stages", h.WorkOrder.Stages)
		workOrders.GET("/:id/aggregates", h.WorkOrder.Aggregates)
		workOrders.GET("/:id/export", h.WorkOrder.Export)
	}

	stages := api.Group("/stages")
	{
		stages.GET("/:id", h.Stage.Get)
		stages.POST("/:id/finish", h.Stage.Finish)
		stages.POST("/:id/materials", h.Stage.AddMaterial)
		stages.PUT("/:id/materials/:lineId", h.Stage.UpdateMaterial)
		stages.POST("/:id/personnel", h.Stage.AddPersonnel)
		stages.PUT("/:id/personnel/:lineId", h.Stage.UpdatePersonnel)
		stages.PATCH("/:id/attributes", h.Stage.UpdateAttributes)
	}

	kpis := api.Group("/kpis")
	{
		kpis.GET("/summary", h.Alert.KPISummary)
		kpis.GET("/alerts", h.Alert.ActiveAlerts)
		kpis.POST("", h.Alert.RecordKPI)
	}

	inventory := api.Group("/inventory")
	{
		inventory.GET("/expiry", h.Alert.Expiry)
		inventory.GET("/quality-alerts", h.Alert.QualityAlerts)
		inventory.POST("/quants", h.Alert.CreateQuant)
		inventory.PUT("/quants/:id/quality", h.Alert.SetQuality)
	}

	api.GET("/events", h.SSE.Stream)
}

// RegisterLegacy 注册车间设备旧接口（无认证）
func (h *Handlers) RegisterLegacy(r gin.IRoutes) {
	r.POST("/api/update_category", h.Legacy.UpdateCategory)
	r.POST("/api/update_energy_consumption", h.Legacy.UpdateEnergy)
	r.GET("/update_consumo/:nombre/:valor", h.Legacy.UpdateConsumo)
	r.GET("/get_parametro/:nombre/*parametro", h.Legacy.GetParametro)
}
