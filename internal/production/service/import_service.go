package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 导入文件列位置
const (
	colOrderNumber = iota
	colOrderDate
	colFlute
	colClient
	colCustomerOrder
	colCode
	colDescription
	colLength
	colWidth
	colQuantity
	colCavity
	colDueDate
	colProductionDate
	colStatus
	colCompliance
	colTestName
	colLinerInternoSupplier
	colLinerInternoWidth
	colLinerInternoGrammage
	colLinerInternoType
	colMediumSupplier
	colMediumWidth
	colMediumGrammage
	colMediumType
	colLinerExternoSupplier
	colLinerExternoWidth
	colLinerExternoGrammage
	colLinerExternoType
)

// 必需列数（到状态列为止）
const minImportColumns = colStatus + 1

var importDateLayouts = []string{"2/1/2006", "2006-1-2", "2-1-2006"}

// ImportOptions 导入选项
type ImportOptions struct {
	Filename       string
	Delimiter      string
	SkipRows       *int
	UpdateExisting *bool
}

// ImportResult 导入结果
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   int      `json:"errors"`
	Log      []string `json:"log"`
}

// ImportService 订单文件导入
type ImportService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewImportService(repos *repository.Repositories, logger *zap.Logger) *ImportService {
	return &ImportService{repos: repos, logger: logger}
}

// ImportOrders 从 CSV 或 XLSX 导入生产订单
func (s *ImportService) ImportOrders(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperr.Wrap(apperr.ErrInterface, "import file is empty")
	}

	var rows [][]string
	if isXLSX(opts.Filename, data) {
		rows, err = readXLSXRows(data)
	} else {
		rows, err = readCSVRows(data, opts.Delimiter)
	}
	if err != nil {
		return nil, err
	}

	skip := 2
	if opts.SkipRows != nil && *opts.SkipRows >= 0 {
		skip = *opts.SkipRows
	}
	updateExisting := true
	if opts.UpdateExisting != nil {
		updateExisting = *opts.UpdateExisting
	}
	if skip >= len(rows) {
		return &ImportResult{Log: []string{}}, nil
	}

	res := &ImportResult{Total: len(rows) - skip, Log: []string{}}
	for i, row := range rows[skip:] {
		rowNum := skip + i + 1
		if len(row) < minImportColumns || blankRow(row[:minImportColumns]) {
			res.Skipped++
			continue
		}
		po := mapImportRow(row)
		if po.Client == "" {
			res.Skipped++
			continue
		}
		// 已投产或已交付的订单没有分组和工单，不能作为待排产订单导入
		if status := strings.TrimSpace(row[colStatus]); progressedStatus(status) {
			res.Skipped++
			res.Log = append(res.Log, fmt.Sprintf("Fila %d: Pedido %s omitido (estado %s sin orden de trabajo)", rowNum, po.OrderNumber, status))
			continue
		}
		if err := s.importOne(ctx, po, updateExisting, rowNum, res); err != nil {
			res.Errors++
			res.Log = append(res.Log, fmt.Sprintf("Fila %d: ERROR - %v", rowNum, err))
		}
	}

	s.logger.Info("orders imported",
		zap.String("file", opts.Filename),
		zap.Int("imported", res.Imported),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors))
	return res, nil
}

func (s *ImportService) importOne(ctx context.Context, po *entity.ProductionOrder, updateExisting bool, rowNum int, res *ImportResult) error {
	if po.OrderNumber != "" {
		existing, err := s.repos.ProductionOrder.FindByOrderNumber(ctx, po.OrderNumber)
		switch {
		case err == nil:
			if !updateExisting {
				res.Skipped++
				res.Log = append(res.Log, fmt.Sprintf("Fila %d: Pedido %s ya existe (no actualizado)", rowNum, po.OrderNumber))
				return nil
			}
			if existing.GroupID != "" {
				res.Skipped++
				res.Log = append(res.Log, fmt.Sprintf("Fila %d: Pedido %s ya planificado (no actualizado)", rowNum, po.OrderNumber))
				return nil
			}
			mergeImported(existing, po)
			if err := s.repos.ProductionOrder.Save(ctx, existing); err != nil {
				return err
			}
			res.Updated++
			res.Log = append(res.Log, fmt.Sprintf("Fila %d: Actualizado pedido %s", rowNum, po.OrderNumber))
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}
	po.ID = uuid.New().String()
	if err := s.repos.ProductionOrder.Create(ctx, po); err != nil {
		return err
	}
	res.Imported++
	number := po.OrderNumber
	if number == "" {
		number = "Sin número"
	}
	res.Log = append(res.Log, fmt.Sprintf("Fila %d: Importado pedido %s", rowNum, number))
	return nil
}

// mergeImported 覆盖订单资料字段，保留主键与排产字段
func mergeImported(dst, src *entity.ProductionOrder) {
	id, created := dst.ID, dst.CreatedAt
	woID, runID := dst.WorkOrderID, dst.PlanningRunID
	*dst = *src
	dst.ID, dst.CreatedAt = id, created
	dst.WorkOrderID, dst.PlanningRunID = woID, runID
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func mapImportRow(row []string) *entity.ProductionOrder {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	po := &entity.ProductionOrder{
		OrderNumber:    get(colOrderNumber),
		OrderDate:      parseImportDate(get(colOrderDate)),
		FluteCode:      entity.NormalizeFluteCode(get(colFlute)),
		Client:         get(colClient),
		CustomerOrder:  get(colCustomerOrder),
		ProductCode:    get(colCode),
		Description:    get(colDescription),
		Length:         parseImportFloat(get(colLength)),
		Width:          parseImportFloat(get(colWidth)),
		Quantity:       parseImportInt(get(colQuantity)),
		Cavity:         parseImportInt(get(colCavity)),
		DueDate:        parseImportDate(get(colDueDate)),
		ProductionDate: parseImportDate(get(colProductionDate)),
		Status:         entity.POStatusPending,
		Compliance:     get(colCompliance),
		TestName:       get(colTestName),

		LinerInternoSupplier: get(colLinerInternoSupplier),
		LinerInternoWidth:    parseImportFloat(get(colLinerInternoWidth)),
		LinerInternoGrammage: parseImportFloat(get(colLinerInternoGrammage)),
		LinerInternoType:     get(colLinerInternoType),
		MediumSupplier:       get(colMediumSupplier),
		MediumWidth:          parseImportFloat(get(colMediumWidth)),
		MediumGrammage:       parseImportFloat(get(colMediumGrammage)),
		MediumType:           get(colMediumType),
		LinerExternoSupplier: get(colLinerExternoSupplier),
		LinerExternoWidth:    parseImportFloat(get(colLinerExternoWidth)),
		LinerExternoGrammage: parseImportFloat(get(colLinerExternoGrammage)),
		LinerExternoType:     get(colLinerExternoType),
	}
	if po.Cavity <= 0 {
		po.Cavity = 1
	}
	return po
}

// progressedStatus 表格状态是否表示已投产或已交付
func progressedStatus(raw string) bool {
	s := strings.ToUpper(stripAccents(raw))
	return strings.Contains(s, "ENTREGADO") ||
		strings.Contains(s, "PLANCHAS") ||
		strings.Contains(s, "PROCESO")
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func parseImportDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// parseImportFloat 兼容小数逗号与千分位点
func parseImportFloat(s string) float64 {
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseImportInt(s string) int {
	return int(parseImportFloat(s))
}

// ==================== 文件读取 ====================

func isXLSX(filename string, data []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" || ext == ".xlsm" {
		return true
	}
	if ext == ".csv" || ext == ".txt" {
		return false
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func readXLSXRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInterface, "open xlsx: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Wrap(apperr.ErrInterface, "xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

// decodeText UTF-8（可带 BOM）原样读取，否则按 Windows-1252 解码
func decodeText(data []byte) io.Reader {
	if utf8.Valid(data) {
		return transform.NewReader(bytes.NewReader(data), textunicode.BOMOverride(textunicode.UTF8.NewDecoder()))
	}
	return transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
}

func csvDelimiter(d string) (rune, error) {
	switch d {
	case "", ";":
		return ';', nil
	case ",":
		return ',', nil
	case "\t", "tab", "\\t":
		return '\t', nil
	}
	return 0, apperr.Wrap(apperr.ErrInterface, "unsupported delimiter %q", d)
}

func readCSVRows(data []byte, delimiter string) ([][]string, error) {
	comma, err := csvDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decodeText(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInterface, "parse csv: %v", err)
	}
	return rows, nil
}
