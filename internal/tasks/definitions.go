package tasks

// DefineTasks registers all available tasks on r
func DefineTasks(r *Registry) {
	// Register general tasks
	r.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register payment tasks
	r.Register(GeneratePaymentsTask.TaskID(), GeneratePaymentsTask.HandleExecution)
}
