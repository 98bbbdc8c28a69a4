package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"go.uber.org/zap"
)

// parameterLabels 设备参数标签到字段键
var parameterLabels = map[string]string{
	"Consumo Energético (kW)":           "power_consumption_kw",
	"Consumo Aire Comprimido (m³/h)":    "compressed_air_consumption",
	"Consumo Aceite Hidráulico (L/mes)": "hydraulic_oil_consumption",
	"Consumo Lubricantes (kg/mes)":      "lubricant_consumption",
	"Ancho Máximo (mm)":                 "max_width_mm",
	"Longitud Máxima (mm)":              "max_length_mm",
	"Espesor Máximo (mm)":               "max_thickness_mm",
	"Capacidad Teórica/Hora":            "theoretical_capacity",
	"Capacidad Real/Hora":               "real_capacity",
}

// LegacyService 车间设备旧接口
type LegacyService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewLegacyService(repos *repository.Repositories, logger *zap.Logger) *LegacyService {
	return &LegacyService{repos: repos, logger: logger}
}

// UpdateCategory 产品存在且类别合法时写入类别；否则仅确认收到
func (s *LegacyService) UpdateCategory(ctx context.Context, producto, categoria string) (bool, error) {
	producto = strings.TrimSpace(producto)
	categoria = strings.ToLower(strings.TrimSpace(categoria))
	if producto == "" || categoria == "" {
		return false, apperr.Wrap(apperr.ErrInterface, "producto and categoria are required")
	}
	if !entity.ValidCategory(categoria) {
		s.logger.Info("legacy category ignored", zap.String("producto", producto), zap.String("categoria", categoria))
		return false, nil
	}
	p, err := s.repos.Product.FindByCodeOrName(ctx, producto)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.Category = categoria
	if err := s.repos.Product.Update(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// ParseValue 解析数值，接受小数逗号
func ParseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Wrap(apperr.ErrInterface, "invalid number %q", raw)
	}
	return v, nil
}

// UpdateEnergy 按名称（大写匹配）更新设备功率
func (s *LegacyService) UpdateEnergy(ctx context.Context, centro string, valor float64) (*entity.WorkCenter, error) {
	if math.IsNaN(valor) || math.IsInf(valor, 0) {
		return nil, apperr.Wrap(apperr.ErrInterface, "invalid energy value %v", valor)
	}
	wc, err := s.repos.WorkCenter.FindByName(ctx, centro)
	if err != nil {
		return nil, err
	}
	if err := s.repos.WorkCenter.UpdateField(ctx, wc.ID, "power_consumption_kw", valor); err != nil {
		return nil, err
	}
	wc.PowerConsumptionKW = valor
	s.logger.Info("work center energy updated", zap.String("centro", wc.Name), zap.Float64("kw", valor))
	return wc, nil
}

// GetParameter 按标签读取设备参数
func (s *LegacyService) GetParameter(ctx context.Context, nombre, label string) (*entity.WorkCenter, float64, error) {
	key, ok := parameterLabels[label]
	if !ok {
		return nil, 0, apperr.Wrap(apperr.ErrInterface, "unknown parameter %q", label)
	}
	wc, err := s.repos.WorkCenter.FindByName(ctx, nombre)
	if err != nil {
		return nil, 0, err
	}
	v, _ := wc.Parameter(key)
	return wc, v, nil
}
