package tasks

import (
	"context"
	"log"
	"time"

	"gym_backoffice_echo/internal/models"
)

// LogInfoTaskDef writes a message to the worker log. It is used to check
// that the worker is picking up tasks.
type LogInfoTaskDef struct{}

func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok || message == "" {
		message = "No message provided"
	}
	log.Printf("[Task: log_info #%d due %s] %s", task.ID, task.Due.Format(time.RFC3339), message)

	return map[string]interface{}{
		"status":            "success",
		"message":           message,
		"max_attempts_info": task.MaxAttempt,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
