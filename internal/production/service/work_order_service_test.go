package service

import (
	"errors"
	"testing"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plannedWorkOrder 单订单排产并生成工单
func (f *fixture) plannedWorkOrder(po entity.ProductionOrder, folding bool) *entity.WorkOrder {
	f.t.Helper()
	f.seedReels(1400)
	f.seedOrder(po)
	_, err := f.svc.Planning.Plan(f.ctx, &PlanRequest{TestPrincipal: 200, CavityLimit: 6}, "planner")
	require.NoError(f.t, err)
	wos, err := f.svc.WorkOrder.Generate(f.ctx, &GenerateRequest{RequiresFolding: folding}, "planner")
	require.NoError(f.t, err)
	require.Len(f.t, wos, 1)
	return &wos[0]
}

func TestWorkOrderPipelines(t *testing.T) {
	cases := []struct {
		name    string
		ceja    float64
		folding bool
		want    []string
	}{
		{
			name:    "folding without ceja",
			folding: true,
			want:    []string{"preprinter", "microcorrugado", "dobladora", "empaque", "almacenamiento"},
		},
		{
			name: "ceja without folding",
			ceja: 5,
			want: []string{"preprinter", "microcorrugado", "dobladora", "corte_ceja", "guillotina", "empaque", "almacenamiento"},
		},
		{
			name:    "ceja with folding",
			ceja:    5,
			folding: true,
			want:    []string{"preprinter", "microcorrugado", "dobladora", "corte_ceja", "guillotina", "empaque", "almacenamiento"},
		},
		{
			name: "plain sheet",
			want: []string{"preprinter", "microcorrugado", "empaque", "almacenamiento"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			wo := f.plannedWorkOrder(entity.ProductionOrder{
				ID: "E", OrderNumber: "OP-100", Width: 400, Length: 500, Ceja: tc.ceja, Quantity: 100, Cavity: 1,
			}, tc.folding)
			assert.Equal(t, entity.WOStateProgrammed, wo.State)
			assert.Equal(t, entity.POStatusOT, f.order("E").Status)

			started, err := f.svc.WorkOrder.Start(f.ctx, wo.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.WOStatePreprinter, started.State)
			require.NotNil(t, started.StartedAt)
			assert.Equal(t, entity.POStatusInProcess, f.order("E").Status)

			var kinds []string
			var last *FinishResult
			for i := 0; i < 10; i++ {
				f.clock.Advance(time.Hour)
				res, err := f.svc.Stage.FinishActive(f.ctx, wo.ID)
				require.NoError(t, err)
				kinds = append(kinds, res.Stage.Kind)
				last = res
				if res.Completed {
					break
				}
				assert.Equal(t, res.Next.Kind, res.WorkOrder.State)
				assert.Equal(t, res.Stage.Sequence+1, res.Next.Sequence)
			}
			assert.Equal(t, tc.want, kinds)
			require.True(t, last.Completed)
			assert.Nil(t, last.Next)

			done, err := f.svc.WorkOrder.Get(f.ctx, wo.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.WOStateCompleted, done.State)
			assert.Nil(t, done.ActiveStageID)
			assert.Equal(t, 100.0, done.Progress)
			assert.InDelta(t, float64(len(tc.want)), done.ActualHours, 1e-9)
			require.NotNil(t, done.CompletedAt)

			require.Len(t, done.Stages, len(tc.want))
			for _, st := range done.Stages {
				assert.Equal(t, entity.StageStateFinished, st.State)
				require.NotNil(t, st.EndTime)
				assert.False(t, st.EndTime.Before(st.StartTime))
			}
			assert.Equal(t, entity.POStatusDelivered, f.order("E").Status)
		})
	}
}

func TestFinishProgress(t *testing.T) {
	f := newFixture(t)
	wo := f.plannedWorkOrder(entity.ProductionOrder{ID: "E", OrderNumber: "OP-100", Width: 400, Length: 500, Quantity: 100, Cavity: 1}, true)
	_, err := f.svc.WorkOrder.Start(f.ctx, wo.ID)
	require.NoError(t, err)

	res, err := f.svc.Stage.FinishActive(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.WorkOrder.Progress)

	n, err := f.repos.Stage.CountStarted(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWorkOrderAggregates(t *testing.T) {
	f := newFixture(t)
	wo := f.plannedWorkOrder(entity.ProductionOrder{ID: "E", OrderNumber: "OP-100", Width: 400, Length: 500, Quantity: 100, Cavity: 1}, false)

	assert.Equal(t, 100, wo.CutsTotal)
	assert.InDelta(t, 50.0, wo.LinearMetersTotal, 1e-9)
	assert.InDelta(t, 1000.0, wo.WasteTotal, 1e-9)
	assert.Equal(t, 1400.0, wo.BobinaUsed)
	// individual: 50 m / (100 m/h * 1.2)
	assert.InDelta(t, 0.42, wo.EstimatedHours, 1e-9)
	assert.Regexp(t, `^OT-2026-\d{4}$`, wo.Number)

	rep, err := f.svc.WorkOrder.Aggregates(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, 1, rep.Derived.OrderCount)

	bad, err := f.svc.Alert.VerifyWorkOrders(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, bad)

	require.NoError(t, f.db.Model(&entity.WorkOrder{}).Where("id = ?", wo.ID).Update("linear_meters_total", 999).Error)
	bad, err = f.svc.Alert.VerifyWorkOrders(f.ctx)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, wo.ID, bad[0].WorkOrderID)
	assert.InDelta(t, 50.0, bad[0].Derived.LinearMetersTotal, 1e-9)
}

func TestGenerateGroupsOrders(t *testing.T) {
	f := newFixture(t)
	f.seedReels(1400)
	f.seedScenarioOrders()
	_, err := f.svc.Planning.Plan(f.ctx, &PlanRequest{TestPrincipal: 200, CavityLimit: 6}, "planner")
	require.NoError(t, err)

	wos, err := f.svc.WorkOrder.Generate(f.ctx, &GenerateRequest{}, "planner")
	require.NoError(t, err)
	require.Len(t, wos, 2)
	assert.NotEqual(t, wos[0].Number, wos[1].Number)

	a, b := f.order("A"), f.order("B")
	require.NotNil(t, a.WorkOrderID)
	assert.Equal(t, *a.WorkOrderID, *b.WorkOrderID)
	assert.Equal(t, wos[0].ID, *a.WorkOrderID)
	assert.Equal(t, 950, wos[0].CutsTotal)
	assert.InDelta(t, 430.0, wos[0].LinearMetersTotal, 1e-9)

	// 已生成的订单不再参与排产
	_, err = f.svc.Planning.Plan(f.ctx, &PlanRequest{TestPrincipal: 200}, "planner")
	assert.True(t, errors.Is(err, apperr.ErrPlanningInput))

	_, err = f.svc.WorkOrder.Generate(f.ctx, &GenerateRequest{}, "planner")
	assert.True(t, errors.Is(err, apperr.ErrPlanningInput))

	_, err = f.svc.Planning.ResetPlanning(f.ctx, a.GroupID)
	assert.True(t, errors.Is(err, apperr.ErrStateMachineIllegal))
}

func TestGenerateDuplicateGroup(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&entity.WorkOrder{
		ID: "wo-existing", Number: "OT-2026-0001", GroupID: "PLN-20260301-0001-G001", State: entity.WOStateProgrammed,
	}).Error)
	f.seedOrder(entity.ProductionOrder{
		ID: "D", OrderNumber: "OP-200", Width: 400, Length: 500, Quantity: 10, Cavity: 1,
		GroupID: "PLN-20260301-0001-G001", BobinaUsed: 1400,
	})

	_, err := f.svc.WorkOrder.Generate(f.ctx, &GenerateRequest{}, "planner")
	assert.True(t, errors.Is(err, apperr.ErrDuplicateWorkOrder))
	assert.Nil(t, f.order("D").WorkOrderID)
}

func TestIllegalTransitions(t *testing.T) {
	f := newFixture(t)
	wo := f.plannedWorkOrder(entity.ProductionOrder{ID: "E", OrderNumber: "OP-100", Width: 400, Length: 500, Quantity: 100, Cavity: 1}, false)

	_, err := f.svc.Stage.FinishActive(f.ctx, wo.ID)
	assert.True(t, errors.Is(err, apperr.ErrStateMachineIllegal), "not started")

	started, err := f.svc.WorkOrder.Start(f.ctx, wo.ID)
	require.NoError(t, err)
	_, err = f.svc.WorkOrder.Start(f.ctx, wo.ID)
	assert.True(t, errors.Is(err, apperr.ErrStateMachineIllegal), "started twice")

	firstStage := *started.ActiveStageID
	_, err = f.svc.Stage.Finish(f.ctx, firstStage)
	require.NoError(t, err)

	_, err = f.svc.Stage.Finish(f.ctx, firstStage)
	assert.True(t, errors.Is(err, apperr.ErrStageAlreadyFinished))

	stages, err := f.svc.Stage.ListByWorkOrder(f.ctx, wo.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 2)

	_, err = f.svc.Stage.Finish(f.ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestStageRecords(t *testing.T) {
	f := newFixture(t)
	wo := f.plannedWorkOrder(entity.ProductionOrder{ID: "E", OrderNumber: "OP-100", Width: 400, Length: 500, Quantity: 100, Cavity: 1}, false)
	started, err := f.svc.WorkOrder.Start(f.ctx, wo.ID)
	require.NoError(t, err)
	stageID := *started.ActiveStageID

	initial, final := 120.5, 20.25
	m, err := f.svc.Stage.AddMaterial(f.ctx, stageID, &MaterialRequest{ProductCode: "PAP-001", InitialWeight: &initial, FinalWeight: &final})
	require.NoError(t, err)
	assert.InDelta(t, 100.25, m.Quantity, 1e-9)
	assert.Equal(t, "kg", m.Unit)

	qty := 80.0
	m, err = f.svc.Stage.UpdateMaterial(f.ctx, stageID, m.ID, &MaterialRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 80.0, m.Quantity)

	_, err = f.svc.Stage.AddMaterial(f.ctx, stageID, &MaterialRequest{Quantity: &qty})
	assert.True(t, errors.Is(err, apperr.ErrInterface), "missing product code")
	zero := 0.0
	_, err = f.svc.Stage.AddMaterial(f.ctx, stageID, &MaterialRequest{ProductCode: "PAP-001", Quantity: &zero})
	assert.True(t, errors.Is(err, apperr.ErrInterface), "zero quantity")

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	end := start.Add(7*time.Hour + 30*time.Minute)
	p, err := f.svc.Stage.AddPersonnel(f.ctx, stageID, &PersonnelRequest{
		Employee: "Juan Perez", Role: "operador", Shift: entity.ShiftManana, StartTime: &start, EndTime: &end,
		Counts: map[string]interface{}{"golpes": 1200.0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 7.5, p.TotalHours, 1e-9)

	later := end.Add(30 * time.Minute)
	p, err = f.svc.Stage.UpdatePersonnel(f.ctx, stageID, p.ID, &PersonnelRequest{EndTime: &later})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, p.TotalHours, 1e-9)

	_, err = f.svc.Stage.AddPersonnel(f.ctx, stageID, &PersonnelRequest{Employee: "Ana", Shift: "madrugada"})
	assert.True(t, errors.Is(err, apperr.ErrInterface), "unknown shift")
	_, err = f.svc.Stage.AddPersonnel(f.ctx, stageID, &PersonnelRequest{Employee: "Ana", StartTime: &end, EndTime: &start})
	assert.True(t, errors.Is(err, apperr.ErrInterface), "end before start")

	st, err := f.svc.Stage.UpdateAttributes(f.ctx, stageID, map[string]interface{}{
		"waste": map[string]interface{}{"refile": 10.5, "arranque": 4.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 14.5, st.Attributes["waste_total"])

	st, err = f.svc.Stage.UpdateAttributes(f.ctx, stageID, map[string]interface{}{
		"waste":     map[string]interface{}{"arranque": 6.0},
		"pegamento": "PVA",
	})
	require.NoError(t, err)
	assert.Equal(t, 16.5, st.Attributes["waste_total"])
	assert.Equal(t, "PVA", st.Attributes["pegamento"])

	stage, err := f.svc.Stage.Get(f.ctx, stageID)
	require.NoError(t, err)
	assert.Len(t, stage.Materials, 1)
	assert.Len(t, stage.Personnel, 1)
	assert.Equal(t, 16.5, stage.Attributes["waste_total"])

	_, err = f.svc.Stage.Finish(f.ctx, stageID)
	require.NoError(t, err)
	_, err = f.svc.Stage.AddMaterial(f.ctx, stageID, &MaterialRequest{ProductCode: "PAP-001", Quantity: &qty})
	assert.True(t, errors.Is(err, apperr.ErrStateMachineIllegal), "finished stage is read-only")
}

func TestEstimatedHours(t *testing.T) {
	assert.Equal(t, 1.0, EstimatedHours(100, "dupla"))
	assert.Equal(t, 1.25, EstimatedHours(100, "tripla"))
	assert.Equal(t, 0.83, EstimatedHours(100, "individual"))
	assert.Equal(t, 2.0, EstimatedHours(200, "unknown"))
}
