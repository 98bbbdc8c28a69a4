package service

import (
	"fmt"

	"github.com/sanventru/odoomegastock-sub001/internal/production/cutting"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/xuri/excelize/v2"
)

// writeSheet 写表头与数据行，表头加粗，列宽按 widths
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, widths []float64) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range rows {
		for c, v := range row {
			col, _ := excelize.ColumnNumberToName(c + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, r+2), v)
		}
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

// buildPlanningReport 排产报表：分组明细 + 排除/无法排入
func buildPlanningReport(run *entity.PlanningRun, res *cutting.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Planificacion"
	f.SetSheetName("Sheet1", sheet)

	var rows [][]interface{}
	for _, g := range res.Groups {
		groupID := fmt.Sprintf("%s-G%03d", run.Code, g.Index)
		for _, a := range g.Orders {
			rows = append(rows, []interface{}{
				groupID, g.Reel, round2(g.WidthUsed), round2(g.Waste), round2(g.Efficiency), g.CombinedType,
				a.OrderNumber, a.Width, a.Cavity, round2(a.Waste), a.Cuts, round2(a.LinearMeters),
			})
		}
	}
	headers := []string{
		"Grupo", "Bobina", "Ancho utilizado", "Sobrante", "Eficiencia %", "Tipo",
		"Orden", "Ancho", "Cavidad", "Sobrante orden", "Cortes", "Metros lineales",
	}
	if err := writeSheet(f, sheet, headers, rows, []float64{22, 10, 14, 10, 12, 12, 16, 10, 9, 14, 10, 14}); err != nil {
		return nil, err
	}

	summary := len(rows) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summary), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summary), round2(res.TotalWaste))
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summary), round2(res.AvgEfficiency))
	if res.SingleReel {
		f.SetCellValue(sheet, fmt.Sprintf("B%d", summary), res.OptimalReel)
	}

	var skipped [][]interface{}
	for _, e := range res.Unplaceable {
		skipped = append(skipped, []interface{}{e.OrderNumber, "no ubicable", e.Reason})
	}
	for _, e := range res.Excluded {
		skipped = append(skipped, []interface{}{e.OrderNumber, "excluida", e.Reason})
	}
	if err := writeSheet(f, "Excluidas", []string{"Orden", "Estado", "Motivo"}, skipped, []float64{16, 14, 24}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write planning report: %w", err)
	}
	return buf.Bytes(), nil
}

// buildWorkOrderReport 工单报表：汇总、订单、工序
func buildWorkOrderReport(wo *entity.WorkOrder) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Orden de trabajo"
	f.SetSheetName("Sheet1", sheet)
	summary := [][]interface{}{
		{"Número", wo.Number},
		{"Grupo", wo.GroupID},
		{"Estado", wo.State},
		{"Tipo combinación", wo.CombinedType},
		{"Bobina", wo.BobinaUsed},
		{"Ancho utilizado", wo.WidthUsed},
		{"Sobrante", round2(wo.WasteTotal)},
		{"Eficiencia %", round2(wo.EfficiencyAvg)},
		{"Metros lineales", round2(wo.LinearMetersTotal)},
		{"Cortes", wo.CutsTotal},
		{"Horas estimadas", round2(wo.EstimatedHours)},
		{"Horas reales", round2(wo.ActualHours)},
		{"Progreso %", round2(wo.Progress)},
	}
	if err := writeSheet(f, sheet, []string{"Campo", "Valor"}, summary, []float64{20, 24}); err != nil {
		return nil, err
	}

	var orders [][]interface{}
	for _, po := range wo.Orders {
		orders = append(orders, []interface{}{
			po.OrderNumber, po.Client, po.ProductCode, po.Width, po.Length, po.Quantity, po.Cavity,
			po.CutsPlanned, round2(po.LinearMetersPlanned), round2(po.CutoffWaste), po.Status,
		})
	}
	if err := writeSheet(f, "Ordenes",
		[]string{"Orden", "Cliente", "Código", "Ancho", "Largo", "Cantidad", "Cavidad", "Cortes", "Metros", "Sobrante", "Estado"},
		orders, []float64{16, 28, 14, 10, 10, 10, 9, 10, 10, 10, 12}); err != nil {
		return nil, err
	}

	var stages [][]interface{}
	for _, st := range wo.Stages {
		end := ""
		if st.EndTime != nil {
			end = st.EndTime.Format("2006-01-02 15:04")
		}
		stages = append(stages, []interface{}{
			st.Sequence, st.Kind, st.State, st.StartTime.Format("2006-01-02 15:04"), end,
			len(st.Materials), len(st.Personnel),
		})
	}
	if err := writeSheet(f, "Etapas",
		[]string{"Secuencia", "Etapa", "Estado", "Inicio", "Fin", "Materiales", "Personal"},
		stages, []float64{10, 16, 10, 18, 18, 11, 10}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write work order report: %w", err)
	}
	return buf.Bytes(), nil
}
