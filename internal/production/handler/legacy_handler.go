package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"go.uber.org/zap"
)

// LegacyHandler 车间设备使用的旧接口，响应为 {status, message}
type LegacyHandler struct {
	svc    *service.LegacyService
	logger *zap.Logger
}

func NewLegacyHandler(svc *service.LegacyService, logger *zap.Logger) *LegacyHandler {
	return &LegacyHandler{svc: svc, logger: logger}
}

func legacyError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func (h *LegacyHandler) internal(c *gin.Context, err error) {
	h.logger.Error("legacy endpoint failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	legacyError(c, http.StatusInternalServerError, "Error interno del servidor")
}

// bodyString 取 JSON 字段的文本形式，数值也接受
func bodyString(body map[string]interface{}, key string) string {
	v, ok := body[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// UpdateCategory POST /api/update_category {producto, categoria}
func (h *LegacyHandler) UpdateCategory(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		legacyError(c, http.StatusBadRequest, "Faltan campos requeridos (producto, categoria)")
		return
	}
	producto, categoria := bodyString(body, "producto"), bodyString(body, "categoria")
	if producto == "" || categoria == "" {
		legacyError(c, http.StatusBadRequest, "Faltan campos requeridos (producto, categoria)")
		return
	}
	updated, err := h.svc.UpdateCategory(c.Request.Context(), producto, categoria)
	if err != nil {
		h.internal(c, err)
		return
	}
	message := "Solicitud JSON recibida correctamente"
	if updated {
		message = "Categoría actualizada correctamente"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       message,
		"data_received": body,
	})
}

// UpdateEnergy POST /api/update_energy_consumption {centro, valor}
func (h *LegacyHandler) UpdateEnergy(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		legacyError(c, http.StatusBadRequest, "Faltan campos requeridos (centro, valor)")
		return
	}
	centro, raw := bodyString(body, "centro"), bodyString(body, "valor")
	if centro == "" || raw == "" {
		legacyError(c, http.StatusBadRequest, "Faltan campos requeridos (centro, valor)")
		return
	}
	valor, err := service.ParseValue(raw)
	if err != nil {
		legacyError(c, http.StatusBadRequest, "El valor debe ser un número válido")
		return
	}
	if _, err := h.svc.UpdateEnergy(c.Request.Context(), centro, valor); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			legacyError(c, http.StatusNotFound, "No se encontró el centro de trabajo: "+centro)
			return
		}
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Consumo energético actualizado correctamente a %g kW", valor),
	})
}

// UpdateConsumo GET /update_consumo/:nombre/:valor
func (h *LegacyHandler) UpdateConsumo(c *gin.Context) {
	nombre := c.Param("nombre")
	valor, err := service.ParseValue(c.Param("valor"))
	if err != nil {
		legacyError(c, http.StatusBadRequest, "El valor debe ser un número válido")
		return
	}
	if _, err := h.svc.UpdateEnergy(c.Request.Context(), nombre, valor); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			legacyError(c, http.StatusNotFound, "No se encontró el centro de trabajo: "+nombre)
			return
		}
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     fmt.Sprintf("Consumo actualizado correctamente a %g kW", valor),
		"centro":      nombre,
		"nuevo_valor": valor,
	})
}

// GetParametro GET /get_parametro/:nombre/*parametro
// 部分标签含 "/"，因此参数用通配段
func (h *LegacyHandler) GetParametro(c *gin.Context) {
	nombre := c.Param("nombre")
	parametro := strings.TrimPrefix(c.Param("parametro"), "/")
	wc, valor, err := h.svc.GetParameter(c.Request.Context(), nombre, parametro)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInterface):
			legacyError(c, http.StatusBadRequest, "Parámetro no válido: "+parametro)
		case errors.Is(err, apperr.ErrNotFound):
			legacyError(c, http.StatusNotFound, "No se encontró el centro de trabajo: "+nombre)
		default:
			h.internal(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"maquina":   wc.Name,
		"parametro": parametro,
		"valor":     valor,
	})
}
