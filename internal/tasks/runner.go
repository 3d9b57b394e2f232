package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"gym_backoffice_echo/internal/models"
)

// Runner executes scheduled tasks whose due time has passed
type Runner struct {
	db       *gorm.DB
	registry *Registry
	deps     Deps
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, deps Deps) *Runner {
	if deps.DB == nil {
		deps.DB = db
	}
	return &Runner{db: db, registry: registry, deps: deps, now: time.Now}
}

// WithClock replaces the clock used to find due tasks
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// ProcessDue runs every active task due by now and returns how many ran
func (r *Runner) ProcessDue(ctx context.Context) (int, error) {
	log.Println("Checking for pending tasks...")

	var pendingTasks []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due").
		Find(&pendingTasks).Error
	if err != nil {
		return 0, fmt.Errorf("fetch pending tasks: %w", err)
	}

	if len(pendingTasks) == 0 {
		log.Println("No pending tasks found.")
		return 0, nil
	}

	log.Printf("Found %d pending tasks.", len(pendingTasks))

	processed := 0
	for _, task := range pendingTasks {
		// Check context cancellation
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		r.execute(ctx, task)
		processed++
	}
	return processed, nil
}

// execute runs one task up to MaxAttempt times, recording every attempt
func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	log.Printf("Processing task: %s (ID: %d)", task.TaskName, task.ID)

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Printf("Task handler not found for: %s. Marking as failure.", task.TaskName)

		now := r.now()
		r.recordHistory(ctx, models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   1,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		r.updateTask(ctx, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		return
	}

	var (
		startTime time.Time
		err       error
	)
	for attempt := 1; attempt <= task.Attempts(); attempt++ {
		startTime = time.Now()
		var result map[string]interface{}
		result, err = handler(ctx, r.deps, task)
		runtimeMs := int(time.Since(startTime).Milliseconds())

		status := "success"
		if err != nil {
			status = "failure"
			result = map[string]interface{}{"error": err.Error()}
			log.Printf("Task %s failed (attempt %d/%d): %v", task.TaskName, attempt, task.Attempts(), err)
		} else {
			log.Printf("Task %s completed successfully.", task.TaskName)
		}

		r.recordHistory(ctx, models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           startTime,
			Runtime:         runtimeMs,
			Status:          status,
			AttemptNumber:   attempt,
			Arguments:       task.Arguments,
			Result:          result,
		})

		if err == nil || ctx.Err() != nil {
			break
		}
	}

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}
	switch {
	case err != nil:
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		// Advance to the next occurrence; an exhausted rule ends the task
		if next, ok := task.NextDueAfter(task.Due); ok {
			taskUpdates["status"] = models.ScheduledTaskStatusActive
			taskUpdates["due"] = next
		} else {
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		}
	default:
		taskUpdates["status"] = models.ScheduledTaskStatusDone
	}

	r.updateTask(ctx, task, taskUpdates)
}

func (r *Runner) recordHistory(ctx context.Context, history models.ScheduledTaskHistory) {
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("Failed to record history for task %d: %v", history.ScheduledTaskID, err)
	}
}

func (r *Runner) updateTask(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	if err := r.db.WithContext(ctx).Model(&models.ScheduledTask{ID: task.ID}).Updates(updates).Error; err != nil {
		log.Printf("Failed to update task %d: %v", task.ID, err)
	}
}
