package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"gym_backoffice_echo/internal/models"
)

// BuildScheduledTask is a helper to build ScheduledTask records generically
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var mapArgs map[string]interface{}
	if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into map: %w", err)
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}

// argUint reads a numeric argument. JSON decoding yields float64; tasks
// built in-process may carry int or uint.
func argUint(args map[string]interface{}, key string) (uint, error) {
	switch v := args[key].(type) {
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, fmt.Errorf("%s must be a positive integer", key)
		}
		return uint(v), nil
	case int:
		if v <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer", key)
		}
		return uint(v), nil
	case uint:
		if v == 0 {
			return 0, fmt.Errorf("%s must be a positive integer", key)
		}
		return v, nil
	case nil:
		return 0, fmt.Errorf("%s not provided", key)
	default:
		return 0, fmt.Errorf("%s has invalid type %T", key, v)
	}
}

// argUintSlice reads an optional list of IDs; a missing key yields nil
func argUintSlice(args map[string]interface{}, key string) ([]uint, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case []uint:
		return v, nil
	default:
		return nil, fmt.Errorf("%s has invalid type %T", key, raw)
	}

	out := make([]uint, 0, len(items))
	for i, item := range items {
		id, err := argUint(map[string]interface{}{"id": item}, "id")
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, id)
	}
	return out, nil
}
