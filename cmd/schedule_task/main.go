package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gym_backoffice_echo/internal/config"
	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/tasks"
)

func main() {
	// defined flags
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04 or RFC3339)")
	taskType := flag.String("tasktype", "onetime", "Task type (optional, default: onetime)")
	recurring := flag.String("recurring", "", "Recurring interval RRULE, e.g. FREQ=MONTHLY;BYMONTHDAY=1 (optional)")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts (optional, default: 3)")
	shareID := flag.Uint("share_id", 0, "Share billed by generate_monthly_payments")
	socioIDs := flag.String("socio_ids", "", "Comma separated socio IDs for generate_monthly_payments (default: all)")

	flag.Parse()

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)

	// Validation
	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [options]")
		fmt.Printf("Known tasks: %s\n", strings.Join(registry.Names(), ", "))
		flag.PrintDefaults()
		os.Exit(1)
	}
	if _, ok := registry.Get(*taskName); !ok {
		log.Fatalf("Unknown task %q. Known tasks: %s", *taskName, strings.Join(registry.Names(), ", "))
	}

	due, err := parseDue(*dueStr)
	if err != nil {
		log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
	}

	var task *models.ScheduledTask
	switch {
	case *taskName == tasks.GeneratePaymentsTask.TaskID() && *argsStr == "":
		if *shareID == 0 {
			log.Fatal("-share_id is required for generate_monthly_payments")
		}
		ids, err := parseIDs(*socioIDs)
		if err != nil {
			log.Fatalf("Invalid -socio_ids: %v", err)
		}
		task, err = tasks.GeneratePaymentsTask.Build(tasks.GeneratePaymentsArgs{ShareID: *shareID, SocioIDs: ids}, due, *recurring, *maxAttempt)
		if err != nil {
			log.Fatalf("Failed to build task: %v", err)
		}
	default:
		if *argsStr == "" {
			log.Fatal("-arguments is required")
		}
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
			log.Fatalf("Invalid JSON arguments: %v", err)
		}

		var recurringPtr *string
		if *recurring != "" {
			recurringPtr = recurring
		}
		task, err = tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, models.ScheduledTaskType(*taskType), *maxAttempt)
		if err != nil {
			log.Fatalf("Failed to build task: %v", err)
		}
	}

	if task.TaskType == models.ScheduledTaskTypeRecurring {
		if _, ok := task.NextDueAfter(task.Due); !ok {
			log.Fatalf("Recurring rule %q yields no occurrence after %s", *recurring, task.Due)
		}
	}

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	if err := db.Create(task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}

// parseDue accepts RFC3339 or "2006-01-02 15:04" in local time
func parseDue(s string) (time.Time, error) {
	if due, err := time.Parse(time.RFC3339, s); err == nil {
		return due, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", s, time.Local)
}

func parseIDs(s string) ([]uint, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%q is not a valid id", part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
