package tasks

// TaskSchedulerInterface defines the interface for background task scheduling.
// Used by the main application and the API to manage poll cycles, enrichment
// runs and report exports.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerPollCycle() error
	TriggerExportReport() error
}
