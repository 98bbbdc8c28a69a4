package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"github.com/sanventru/odoomegastock-sub001/internal/production/testutil"
	"gorm.io/gorm"
)

func setupProductionTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Planning.DefaultCavityLimit = 6
	clock := testutil.NewFixedClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	svc := service.NewServices(service.Deps{
		Repos:  repository.NewRepositories(db),
		Config: cfg,
		Now:    clock.Now,
	})
	h := NewHandlers(svc, nil, nil)

	router := testutil.SetupRouter()
	h.RegisterLegacy(router)
	h.Register(testutil.AuthGroup(router, "/api/v1"))
	return router, db
}

func seedPlanningData(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Create(&entity.Bobina{ID: "reel-1400", Code: "BOB-1400", Width: 1400, Active: true}).Error; err != nil {
		t.Fatalf("seed reel: %v", err)
	}
	po := &entity.ProductionOrder{
		ID: "E", OrderNumber: "OP-100", Client: "Cartonera Andina", FluteCode: "C", TestName: "Test 200",
		Width: 400, Length: 500, Quantity: 100, Cavity: 1, Status: entity.POStatusPending,
	}
	if err := db.Create(po).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}

func TestLegacyCategoryEndpoint(t *testing.T) {
	router, db := setupProductionTest(t)
	db.Create(&entity.Product{ID: "p1", Code: "CAJ-0001", Name: "Caja Regular", Category: entity.CategoryOtros})

	w := testutil.DoRequest(router, "POST", "/api/update_category", map[string]string{"producto": "CAJ-0001"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing categoria: expected 400, got %d", w.Code)
	}
	if resp := testutil.ParseResponse(w); resp["status"] != "error" {
		t.Errorf("expected status=error, got %v", resp["status"])
	}

	w = testutil.DoRequest(router, "POST", "/api/update_category", map[string]string{"producto": "CAJ-0001", "categoria": "cajas"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["message"] != "Categoría actualizada correctamente" {
		t.Errorf("unexpected message %v", resp["message"])
	}
	received, _ := resp["data_received"].(map[string]interface{})
	if received["producto"] != "CAJ-0001" {
		t.Errorf("expected echoed body, got %v", resp["data_received"])
	}

	var p entity.Product
	db.First(&p, "id = ?", "p1")
	if p.Category != entity.CategoryCajas {
		t.Errorf("expected category cajas, got %s", p.Category)
	}

	// 未知产品只确认收到
	w = testutil.DoRequest(router, "POST", "/api/update_category", map[string]string{"producto": "X-1", "categoria": "cajas"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := testutil.ParseResponse(w); resp["message"] != "Solicitud JSON recibida correctamente" {
		t.Errorf("unexpected message %v", resp["message"])
	}
}

func TestLegacyEnergyEndpoints(t *testing.T) {
	router, db := setupProductionTest(t)
	db.Create(&entity.WorkCenter{ID: "wc1", Name: "Corrugadora BHS", PowerConsumptionKW: 100, CompressedAirConsumption: 12.5})

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"energy ok", "POST", "/api/update_energy_consumption", map[string]interface{}{"centro": "corrugadora bhs", "valor": "125,5"}, http.StatusOK},
		{"energy numeric valor", "POST", "/api/update_energy_consumption", map[string]interface{}{"centro": "Corrugadora BHS", "valor": 126}, http.StatusOK},
		{"energy bad valor", "POST", "/api/update_energy_consumption", map[string]interface{}{"centro": "Corrugadora BHS", "valor": "mucho"}, http.StatusBadRequest},
		{"energy missing centro", "POST", "/api/update_energy_consumption", map[string]interface{}{"valor": "1"}, http.StatusBadRequest},
		{"energy unknown centro", "POST", "/api/update_energy_consumption", map[string]interface{}{"centro": "Troqueladora", "valor": "1"}, http.StatusNotFound},
		{"consumo ok", "GET", "/update_consumo/Corrugadora%20BHS/130", nil, http.StatusOK},
		{"consumo bad valor", "GET", "/update_consumo/Corrugadora%20BHS/abc", nil, http.StatusBadRequest},
		{"consumo nan", "GET", "/update_consumo/Corrugadora%20BHS/NaN", nil, http.StatusBadRequest},
		{"consumo unknown", "GET", "/update_consumo/Troqueladora/5", nil, http.StatusNotFound},
		{"parametro unknown label", "GET", "/get_parametro/Corrugadora%20BHS/Temperatura", nil, http.StatusBadRequest},
		{"parametro unknown machine", "GET", "/get_parametro/Troqueladora/Ancho%20M%C3%A1ximo%20(mm)", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.DoRequest(router, tc.method, tc.path, tc.body, "")
			if w.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	var wc entity.WorkCenter
	db.First(&wc, "id = ?", "wc1")
	if wc.PowerConsumptionKW != 130 {
		t.Errorf("expected 130 kW after updates, got %v", wc.PowerConsumptionKW)
	}

	// 标签含 "/"
	w := testutil.DoRequest(router, "GET", "/get_parametro/Corrugadora%20BHS/Consumo%20Aire%20Comprimido%20(m%C2%B3/h)", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["maquina"] != "Corrugadora BHS" || resp["valor"] != 12.5 {
		t.Errorf("unexpected parameter response %v", resp)
	}
	if resp["parametro"] != "Consumo Aire Comprimido (m³/h)" {
		t.Errorf("unexpected parametro %v", resp["parametro"])
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := setupProductionTest(t)

	w := testutil.DoRequest(router, "GET", "/api/v1/recipes", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if resp := testutil.ParseResponse(w); resp["code"] != float64(40100) {
		t.Errorf("expected code 40100, got %v", resp["code"])
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/recipes", nil, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestPlanningRequiresPlannerRole(t *testing.T) {
	router, db := setupProductionTest(t)
	seedPlanningData(t, db)
	viewer := testutil.GenerateTestToken("viewer-1", "Viewer", "viewer@test.com", []string{"prd_viewer"}, nil)

	w := testutil.DoRequest(router, "POST", "/api/v1/planning/run", map[string]interface{}{"test_principal": 200}, viewer)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	w = testutil.DoRequest(router, "DELETE", "/api/v1/recipes/any", nil, viewer)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for recipe delete, got %d", w.Code)
	}
	w = testutil.DoRequest(router, "GET", "/api/v1/recipes", nil, viewer)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for read access, got %d", w.Code)
	}
}

func TestWorkOrderLifecycleHTTP(t *testing.T) {
	router, db := setupProductionTest(t)
	seedPlanningData(t, db)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "POST", "/api/v1/planning/run", map[string]interface{}{"test_principal": 200, "cavidad_limite": 6}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("plan: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	run, _ := dataOf(t, testutil.ParseResponse(w))["run"].(map[string]interface{})
	if run["code"] != "PLN-20260310-0001" {
		t.Errorf("unexpected planning code %v", run["code"])
	}
	if run["created_by"] != "test-user-001" {
		t.Errorf("expected created_by from token, got %v", run["created_by"])
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/work-orders/generate", map[string]interface{}{"requiere_doblez": true}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	items, _ := dataOf(t, testutil.ParseResponse(w))["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 work order, got %d", len(items))
	}
	woID := items[0].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(router, "POST", "/api/v1/work-orders/generate", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("second generate: expected 400, got %d", w.Code)
	}

	w = testutil.DoRequest(router, "POST", fmt.Sprintf("/api/v1/work-orders/%s/start", woID), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if st := dataOf(t, testutil.ParseResponse(w))["estado"]; st != entity.WOStatePreprinter {
		t.Errorf("expected preprinter, got %v", st)
	}

	w = testutil.DoRequest(router, "POST", fmt.Sprintf("/api/v1/work-orders/%s/start", woID), nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("start twice: expected 409, got %d", w.Code)
	}
	if resp := testutil.ParseResponse(w); resp["code"] != float64(CodeConflict) {
		t.Errorf("expected code %d, got %v", CodeConflict, resp["code"])
	}

	want := []string{"preprinter", "microcorrugado", "dobladora", "empaque", "almacenamiento"}
	for i, kind := range want {
		w = testutil.DoRequest(router, "POST", fmt.Sprintf("/api/v1/work-orders/%s/finish-stage", woID), nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("finish %s: expected 200, got %d: %s", kind, w.Code, w.Body.String())
		}
		data := dataOf(t, testutil.ParseResponse(w))
		stage, _ := data["stage"].(map[string]interface{})
		if stage["kind"] != kind {
			t.Errorf("step %d: expected %s finished, got %v", i, kind, stage["kind"])
		}
		if done := data["completed"] == true; done != (i == len(want)-1) {
			t.Errorf("step %d: unexpected completed=%v", i, data["completed"])
		}
	}

	w = testutil.DoRequest(router, "POST", fmt.Sprintf("/api/v1/work-orders/%s/finish-stage", woID), nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("finish after completion: expected 409, got %d", w.Code)
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/work-orders/"+woID, nil, token)
	wo := dataOf(t, testutil.ParseResponse(w))
	if wo["estado"] != entity.WOStateCompleted || wo["progreso"] != float64(100) {
		t.Errorf("expected completed at 100%%, got %v %v", wo["estado"], wo["progreso"])
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/work-orders/"+woID+"/stages", nil, token)
	stages, _ := dataOf(t, testutil.ParseResponse(w))["items"].([]interface{})
	if len(stages) != len(want) {
		t.Errorf("expected %d stages, got %d", len(want), len(stages))
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/work-orders/"+woID+"/aggregates", nil, token)
	if agg := dataOf(t, testutil.ParseResponse(w)); agg["consistent"] != true {
		t.Errorf("expected consistent aggregates, got %v", agg)
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/work-orders/"+woID+"/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("export body is not an xlsx archive")
	}

	var po entity.ProductionOrder
	db.First(&po, "id = ?", "E")
	if po.Status != entity.POStatusDelivered {
		t.Errorf("expected order delivered, got %s", po.Status)
	}
}

func TestErrorMapping(t *testing.T) {
	router, _ := setupProductionTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "GET", "/api/v1/work-orders/missing", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := testutil.ParseResponse(w); resp["code"] != float64(CodeNotFound) {
		t.Errorf("expected code %d, got %v", CodeNotFound, resp["code"])
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/planning/run", map[string]interface{}{"test_principal": 200}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("plan without orders: expected 400, got %d", w.Code)
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/planning/run", map[string]interface{}{}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("plan without test: expected 400, got %d", w.Code)
	}

	w = testutil.DoRequest(router, "POST", "/api/v1/kpis", map[string]interface{}{"production_line": "corrugadora"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("kpi with unknown line: expected 400, got %d", w.Code)
	}
}

func TestImportUpload(t *testing.T) {
	router, db := setupProductionTest(t)
	token := testutil.DefaultTestToken()
	csv := "REPORTE\nOP;Fecha\n" +
		"OP-700;1/3/2026;C;Cartonera Andina;PC-1;CJ-1;Caja;400;300;100;1;;;PENDIENTE;;Test 200\n"

	w := testutil.DoUpload(router, "/api/v1/production-orders/import", "pedidos.csv", []byte(csv), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := dataOf(t, testutil.ParseResponse(w))
	if data["imported"] != float64(1) {
		t.Errorf("expected 1 imported, got %v", data["imported"])
	}

	var count int64
	db.Model(&entity.ProductionOrder{}).Where("order_number = ?", "OP-700").Count(&count)
	if count != 1 {
		t.Errorf("expected order persisted, got %d", count)
	}

	w = testutil.DoUpload(router, "/api/v1/production-orders/import", "pedidos.csv", []byte(csv), map[string]string{"skip_rows": "-1"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative skip_rows: expected 400, got %d", w.Code)
	}

	w = testutil.DoUpload(router, "/api/v1/production-orders/import", "pedidos.csv", []byte(csv), map[string]string{"update_existing": "false"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if skipped := dataOf(t, testutil.ParseResponse(w))["skipped"]; skipped != float64(1) {
		t.Errorf("expected existing order skipped, got %v", skipped)
	}
}
