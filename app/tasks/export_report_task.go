package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashdean/property-comb/app/export"
)

// ExportReportTask writes the XLSX workbook report.
type ExportReportTask struct {
	Task
	exporter *export.Exporter
}

func NewExportReportTask(exporter *export.Exporter) *ExportReportTask {
	return &ExportReportTask{
		Task:     NewTask(TaskTypeExportReport),
		exporter: exporter,
	}
}

func (t *ExportReportTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path, err := t.exporter.WriteXLSX()
	if err != nil {
		return fmt.Errorf("failed to write XLSX report: %w", err)
	}

	slog.Info("Task completed",
		"type", "ExportReport",
		"duration", t.GetDuration(),
		"path", path)

	return nil
}
