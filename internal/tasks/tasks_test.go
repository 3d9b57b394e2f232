package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
	dbtest "gym_backoffice_echo/internal/testutil"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, db *gorm.DB, registry *Registry) *Runner {
	t.Helper()
	ledger := services.NewLedgerService(db, nil, nil)
	return NewRunner(db, registry, Deps{Ledger: ledger}).WithClock(func() time.Time { return testNow })
}

func defaultRegistry() *Registry {
	r := NewRegistry()
	DefineTasks(r)
	return r
}

func history(t *testing.T, db *gorm.DB, taskID uint) []models.ScheduledTaskHistory {
	var rows []models.ScheduledTaskHistory
	require.NoError(t, db.Where("scheduled_task_id = ?", taskID).Order("attempt_number").Find(&rows).Error)
	return rows
}

func TestDefineTasks(t *testing.T) {
	assert.Equal(t, []string{"generate_monthly_payments", "log_info"}, defaultRegistry().Names())
}

func TestArgParsing(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    uint
		wantErr bool
	}{
		{name: "json number", args: map[string]interface{}{"share_id": float64(7)}, want: 7},
		{name: "int", args: map[string]interface{}{"share_id": 3}, want: 3},
		{name: "uint", args: map[string]interface{}{"share_id": uint(9)}, want: 9},
		{name: "missing", args: map[string]interface{}{}, wantErr: true},
		{name: "fractional", args: map[string]interface{}{"share_id": 1.5}, wantErr: true},
		{name: "string", args: map[string]interface{}{"share_id": "7"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := argUint(tt.args, "share_id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ids, err := argUintSlice(map[string]interface{}{"socio_ids": []interface{}{float64(1), float64(2)}}, "socio_ids")
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)

	ids, err = argUintSlice(map[string]interface{}{}, "socio_ids")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = argUintSlice(map[string]interface{}{"socio_ids": []interface{}{"x"}}, "socio_ids")
	assert.Error(t, err)
}

func TestGeneratePaymentsTask_Recurring(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	ctx := context.Background()

	share := dbtest.CreateShare(t, db, "10")
	a := dbtest.CreateSocio(t, db, "Alvarez", "Ana", nil)
	dbtest.CreateSocio(t, db, "Benitez", "Bruno", nil)

	due := time.Date(2025, time.March, 1, 6, 0, 0, 0, time.UTC)
	task, err := GeneratePaymentsTask.Build(GeneratePaymentsArgs{ShareID: share.ID, SocioIDs: []uint{a.ID}}, due, "FREQ=MONTHLY;BYMONTHDAY=1", 3)
	require.NoError(t, err)
	require.NoError(t, db.Create(task).Error)

	runner := newRunner(t, db, defaultRegistry())
	processed, err := runner.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	var payments []models.Payment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, a.ID, payments[0].SocioID)
	assert.Equal(t, 2025, payments[0].Year)
	assert.Equal(t, 3, payments[0].Month)
	assert.False(t, payments[0].IsPaid)

	var stored models.ScheduledTask
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.ScheduledTaskStatusActive, stored.Status)
	assert.True(t, stored.Due.Equal(time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC)), stored.Due.String())
	assert.NotNil(t, stored.LastRun)

	rows := history(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "success", rows[0].Status)
	assert.Equal(t, "success", rows[0].Result["status"])

	// Not due again until April
	processed, err = runner.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestGeneratePaymentsTask_AlreadyBilledIsSkipped(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	ctx := context.Background()

	share := dbtest.CreateShare(t, db, "10")
	a := dbtest.CreateSocio(t, db, "Alvarez", "Ana", nil)
	dbtest.CreatePayment(t, db, a.ID, share.ID, 2025, 3, false)

	task, err := GeneratePaymentsTask.Build(GeneratePaymentsArgs{ShareID: share.ID}, time.Date(2025, time.March, 1, 6, 0, 0, 0, time.UTC), "", 1)
	require.NoError(t, err)
	require.NoError(t, db.Create(task).Error)

	_, err = newRunner(t, db, defaultRegistry()).ProcessDue(ctx)
	require.NoError(t, err)

	var stored models.ScheduledTask
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.ScheduledTaskStatusDone, stored.Status)

	rows := history(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "skipped", rows[0].Result["status"])
	assert.Equal(t, []interface{}{"Alvarez, Ana"}, rows[0].Result["conflicts"])
}

func TestRunner_RetriesThenFails(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	ctx := context.Background()

	calls := 0
	registry := NewRegistry()
	registry.Register("flaky", func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
		calls++
		return nil, errors.New("boom")
	})

	task, err := BuildScheduledTask("flaky", map[string]interface{}{}, testNow.Add(-time.Hour), nil, models.ScheduledTaskTypeOneTime, 3)
	require.NoError(t, err)
	require.NoError(t, db.Create(task).Error)

	_, err = newRunner(t, db, registry).ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	rows := history(t, db, task.ID)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i+1, row.AttemptNumber)
		assert.Equal(t, "failure", row.Status)
		assert.Equal(t, "boom", row.Result["error"])
	}

	var stored models.ScheduledTask
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.ScheduledTaskStatusFailure, stored.Status)
}

func TestRunner_RecoversOnRetry(t *testing.T) {
	db := dbtest.SetupTestDB(t)

	calls := 0
	registry := NewRegistry()
	registry.Register("second_time_lucky", func(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return map[string]interface{}{"status": "success"}, nil
	})

	task, err := BuildScheduledTask("second_time_lucky", nil, testNow.Add(-time.Minute), nil, models.ScheduledTaskTypeOneTime, 5)
	require.NoError(t, err)
	require.NoError(t, db.Create(task).Error)

	_, err = newRunner(t, db, registry).ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var stored models.ScheduledTask
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.ScheduledTaskStatusDone, stored.Status)
	assert.Len(t, history(t, db, task.ID), 2)
}

func TestRunner_UnknownHandler(t *testing.T) {
	db := dbtest.SetupTestDB(t)

	task, err := BuildScheduledTask("does_not_exist", map[string]interface{}{"x": 1}, testNow.Add(-time.Minute), nil, models.ScheduledTaskTypeOneTime, 3)
	require.NoError(t, err)
	require.NoError(t, db.Create(task).Error)

	_, err = newRunner(t, db, defaultRegistry()).ProcessDue(context.Background())
	require.NoError(t, err)

	var stored models.ScheduledTask
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.ScheduledTaskStatusFailure, stored.Status)

	rows := history(t, db, task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "handler_not_found", rows[0].Status)
}

func TestLogInfoTask(t *testing.T) {
	result, err := LogInfoTask.HandleExecution(context.Background(), Deps{}, models.ScheduledTask{
		Arguments:  map[string]interface{}{"message": "hola"},
		MaxAttempt: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", result["message"])
	assert.Equal(t, 2, result["max_attempts_info"])
}
