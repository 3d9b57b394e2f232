package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
)

// GeneratePaymentsArgs are the arguments of generate_monthly_payments.
// An empty SocioIDs bills every socio.
type GeneratePaymentsArgs struct {
	ShareID  uint   `json:"share_id"`
	SocioIDs []uint `json:"socio_ids,omitempty"`
}

// GeneratePaymentsTaskDef bills the period containing the task's due date
type GeneratePaymentsTaskDef struct{}

func (t *GeneratePaymentsTaskDef) TaskID() string {
	return "generate_monthly_payments"
}

// Build creates the scheduled task. A recurrence such as
// "FREQ=MONTHLY;BYMONTHDAY=1" bills every month from due onwards.
func (t *GeneratePaymentsTaskDef) Build(args GeneratePaymentsArgs, due time.Time, recurrence string, maxAttempt int) (*models.ScheduledTask, error) {
	taskType := models.ScheduledTaskTypeOneTime
	var recurring *string
	if recurrence != "" {
		taskType = models.ScheduledTaskTypeRecurring
		recurring = &recurrence
	}
	return BuildScheduledTask(t.TaskID(), args, due, recurring, taskType, maxAttempt)
}

// HandleExecution generates the payments. A period already billed for any
// of the socios is reported as skipped, not as a failure, so recurring
// tasks keep advancing.
func (t *GeneratePaymentsTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger not configured")
	}

	shareID, err := argUint(task.Arguments, "share_id")
	if err != nil {
		return nil, err
	}
	socioIDs, err := argUintSlice(task.Arguments, "socio_ids")
	if err != nil {
		return nil, err
	}

	period := models.PeriodOf(task.Due)
	res, err := deps.Ledger.Generate(ctx, services.GenerateRequest{
		Year:     period.Year,
		Month:    period.Month,
		ShareID:  shareID,
		SocioIDs: socioIDs,
	})
	if err != nil {
		var dup *services.DuplicatePeriodError
		if errors.As(err, &dup) {
			log.Printf("[Task: %s] Period %s already billed for %d socios, skipping", t.TaskID(), period, len(dup.Socios))
			return map[string]interface{}{
				"status":    "skipped",
				"period":    period.String(),
				"conflicts": dup.Socios,
			}, nil
		}
		return nil, err
	}

	return map[string]interface{}{
		"status":        "success",
		"period":        period.String(),
		"batch_id":      res.BatchID,
		"created_count": len(res.Payments),
	}, nil
}

// GeneratePaymentsTask is the singleton instance of GeneratePaymentsTaskDef
var GeneratePaymentsTask = &GeneratePaymentsTaskDef{}
