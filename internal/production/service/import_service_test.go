package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const importHeader = "REPORTE DE PEDIDOS;;;\n" +
	"OP;Fecha;Flauta;Cliente;Pedido;Codigo;Descripcion;Largo;Ancho;Cantidad;Cavidad;Entrega;Produccion;Estado;Cumplimiento;Test\n"

func importCSV(rows ...string) []byte {
	return []byte(importHeader + strings.Join(rows, "\n") + "\n")
}

func (f *fixture) orderByNumber(number string) *entity.ProductionOrder {
	f.t.Helper()
	po, err := f.repos.ProductionOrder.FindByOrderNumber(f.ctx, number)
	require.NoError(f.t, err)
	return po
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	data := importCSV(
		"OP-100;5/3/2026; c ;Cartonera Andina;PC-1;CJ-001;Caja regular;500,5;400;1000;2;20/3/2026;;PENDIENTE;;Test 200",
		"OP-101;6/3/2026;B;Frutera del Sur;PC-2;LM-002;Lamina;800;600;250;;;;PENDIENTE;;Test 150;Papelera Norte;1400;150;Kraft",
		"OP-102;6/3/2026;C;Frutera del Sur;PC-3",
		";;;;;;;;;;;;;;;",
		"OP-103;6/3/2026;C;  ;PC-4;CJ-004;Caja;300;200;50;1;;;;;Test 200",
	)

	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(data), ImportOptions{Filename: "pedidos.csv"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.Errors)
	assert.Contains(t, res.Log, "Fila 3: Importado pedido OP-100")
	assert.Contains(t, res.Log, "Fila 4: Importado pedido OP-101")

	a := f.orderByNumber("OP-100")
	assert.Equal(t, "C", a.FluteCode)
	assert.Equal(t, 500.5, a.Length)
	assert.Equal(t, 400.0, a.Width)
	assert.Equal(t, 1000, a.Quantity)
	assert.Equal(t, 2, a.Cavity)
	assert.Equal(t, entity.POStatusPending, a.Status)
	require.NotNil(t, a.OrderDate)
	assert.Equal(t, 5, a.OrderDate.Day())
	require.NotNil(t, a.DueDate)
	assert.Nil(t, a.ProductionDate)

	b := f.orderByNumber("OP-101")
	assert.Equal(t, entity.POStatusPending, b.Status)
	assert.Equal(t, 1, b.Cavity, "cavity defaults to one")
	assert.Equal(t, "Papelera Norte", b.LinerInternoSupplier)
	assert.Equal(t, 1400.0, b.LinerInternoWidth)
	assert.Equal(t, 150.0, b.LinerInternoGrammage)
	assert.Equal(t, "Kraft", b.LinerInternoType)
}

func TestImportSkipsProgressedOrders(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(entity.ProductionOrder{ID: "old", OrderNumber: "OP-603", Width: 300, Length: 300, Quantity: 10, Cavity: 1})
	data := importCSV(
		"OP-600;1/3/2026;C;Cartonera Andina;PC-1;CJ-1;Caja;400;300;100;1;;;ENTREGADO;100%;Test 200",
		"OP-601;1/3/2026;C;Cartonera Andina;PC-2;CJ-2;Caja;400;300;100;1;;;PLANCHAS;;Test 200",
		"OP-602;1/3/2026;C;Cartonera Andina;PC-3;CJ-3;Caja;400;300;100;1;;;PENDIENTE;;Test 200",
		"OP-603;1/3/2026;C;Cartonera Andina;PC-4;CJ-4;Caja;400;300;999;1;;;EN PROCESO;;Test 200",
	)

	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(data), ImportOptions{Filename: "pedidos.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 3, res.Skipped)
	assert.Contains(t, res.Log, "Fila 3: Pedido OP-600 omitido (estado ENTREGADO sin orden de trabajo)")
	assert.Contains(t, res.Log, "Fila 6: Pedido OP-603 omitido (estado EN PROCESO sin orden de trabajo)")

	for _, number := range []string{"OP-600", "OP-601"} {
		_, err := f.repos.ProductionOrder.FindByOrderNumber(f.ctx, number)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), number)
	}
	assert.Equal(t, entity.POStatusPending, f.orderByNumber("OP-602").Status)
	// 已有订单不被覆盖
	assert.Equal(t, 10, f.orderByNumber("OP-603").Quantity)

	var progressed int64
	require.NoError(t, f.db.Model(&entity.ProductionOrder{}).Where("status <> ?", entity.POStatusPending).Count(&progressed).Error)
	assert.Zero(t, progressed)
}

func TestImportWindows1252(t *testing.T) {
	f := newFixture(t)
	data := importCSV("OP-200;1/3/2026;C;Cart\xf3n Pac\xedfico;PC-1;CJ-1;Caja;400;300;100;1;;;PENDIENTE;;Test 200")

	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(data), ImportOptions{Filename: "pedidos.csv"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)

	po := f.orderByNumber("OP-200")
	assert.Equal(t, "Cartón Pacífico", po.Client)
	assert.Equal(t, entity.POStatusPending, po.Status)
}

func TestImportExistingOrders(t *testing.T) {
	f := newFixture(t)
	row := "OP-300;1/3/2026;C;Cartonera Andina;PC-1;CJ-1;Caja;400;300;100;1;;;PENDIENTE;;Test 200"
	_, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(importCSV(row)), ImportOptions{Filename: "a.csv"})
	require.NoError(t, err)
	id := f.orderByNumber("OP-300").ID

	changed := strings.Replace(row, ";100;1;", ";150;1;", 1)
	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(importCSV(changed)), ImportOptions{Filename: "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"Fila 3: Actualizado pedido OP-300"}, res.Log)
	po := f.orderByNumber("OP-300")
	assert.Equal(t, id, po.ID)
	assert.Equal(t, 150, po.Quantity)

	no := false
	res, err = f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(importCSV(row)), ImportOptions{Filename: "a.csv", UpdateExisting: &no})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Fila 3: Pedido OP-300 ya existe (no actualizado)"}, res.Log)
	assert.Equal(t, 150, f.orderByNumber("OP-300").Quantity)

	require.NoError(t, f.db.Model(&entity.ProductionOrder{}).Where("id = ?", id).Update("group_id", "PLN-20260310-0001-G001").Error)
	res, err = f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(importCSV(row)), ImportOptions{Filename: "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fila 3: Pedido OP-300 ya planificado (no actualizado)"}, res.Log)
	assert.Equal(t, 150, f.orderByNumber("OP-300").Quantity)
}

func TestImportOptions(t *testing.T) {
	f := newFixture(t)
	data := []byte("OP-400,1/3/2026,C,Cartonera Andina,PC-1,CJ-1,Caja,400,300,100,1,,,PENDIENTE,,Test 200\n")
	skip := 0
	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(data), ImportOptions{Filename: "a.csv", Delimiter: ",", SkipRows: &skip})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, "Fila 1: Importado pedido OP-400", res.Log[0])

	_, err = f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(data), ImportOptions{Filename: "a.csv", Delimiter: "|"})
	assert.True(t, errors.Is(err, apperr.ErrInterface))

	_, err = f.svc.Import.ImportOrders(f.ctx, strings.NewReader("  \n"), ImportOptions{Filename: "a.csv"})
	assert.True(t, errors.Is(err, apperr.ErrInterface))

	res, err = f.svc.Import.ImportOrders(f.ctx, strings.NewReader("solo cabecera\n"), ImportOptions{Filename: "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
}

func TestImportXLSX(t *testing.T) {
	f := newFixture(t)
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"REPORTE"},
		{"OP", "Fecha", "Flauta", "Cliente"},
		{"OP-500", "2/3/2026", "C", "Cartonera Andina", "PC-9", "CJ-9", "Caja", "450", "350", "600", "3", "", "", "PENDIENTE", "", "Test 200"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &r))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	res, err := f.svc.Import.ImportOrders(f.ctx, bytes.NewReader(buf.Bytes()), ImportOptions{Filename: "pedidos.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	po := f.orderByNumber("OP-500")
	assert.Equal(t, 450.0, po.Length)
	assert.Equal(t, 3, po.Cavity)
	assert.Equal(t, "Test 200", po.TestName)
}
