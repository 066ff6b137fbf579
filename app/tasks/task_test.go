package tasks

import (
	"testing"
	"time"
)

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypePollCycle)

	if task.GetRetryCount() != 0 {
		t.Errorf("expected new task retry count 0, got %d", task.GetRetryCount())
	}
	if !task.CanRetry() {
		t.Error("expected new task to be retryable")
	}

	for i := 0; i < task.GetMaxRetries(); i++ {
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Errorf("expected task to be exhausted after %d retries", task.GetMaxRetries())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeExportReport)

	if task.GetDuration() != 0 {
		t.Error("expected zero duration before Start")
	}

	task.Start()
	time.Sleep(time.Millisecond)
	if task.GetDuration() <= 0 {
		t.Error("expected positive duration after Start")
	}
}

func TestTaskIDsUnique(t *testing.T) {
	a := NewTask(TaskTypePollCycle)
	b := NewTask(TaskTypePollCycle)

	if a.GetID() == b.GetID() {
		t.Errorf("expected distinct task IDs, both were %q", a.GetID())
	}
}
