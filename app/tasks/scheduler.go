package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashdean/property-comb/app/areas"
	"github.com/ashdean/property-comb/app/cfg"
	"github.com/ashdean/property-comb/app/database"
	"github.com/ashdean/property-comb/app/enrich"
	"github.com/ashdean/property-comb/app/export"
	"github.com/ashdean/property-comb/app/notifier"
	"github.com/ashdean/property-comb/app/scraper"
	"github.com/ashdean/property-comb/app/tracker"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	areaConfigs  map[string]*areas.AreaConfig
	scraper      *scraper.Scraper
	tracker      *tracker.Tracker
	notifier     *notifier.Notifier
	exporter     *export.Exporter
	reporter     *export.DiscordReporter
	tfl          *enrich.TfLClient
	repo         database.ListingRepository
	interval     time.Duration
	workerCount  int
	enrichMax    int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
	pollGuard    chan struct{}
	lastReportMu sync.Mutex
	lastReport   string
}

func NewScheduler(areaConfigs map[string]*areas.AreaConfig, sc *scraper.Scraper,
	tr *tracker.Tracker, nt *notifier.Notifier, ex *export.Exporter,
	reporter *export.DiscordReporter, tfl *enrich.TfLClient,
	repo database.ListingRepository) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		areaConfigs: areaConfigs,
		scraper:     sc,
		tracker:     tr,
		notifier:    nt,
		exporter:    ex,
		reporter:    reporter,
		tfl:         tfl,
		repo:        repo,
		interval:    time.Duration(cfg.PollInterval) * time.Minute,
		workerCount: cfg.WorkerCount,
		enrichMax:   cfg.EnrichMaxPerRun,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		pollGuard:   make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerPollCycle enqueues an immediate poll cycle, used by the API.
func (s *Scheduler) TriggerPollCycle() error {
	task := NewPollCycleTask(s.areaConfigs, s.scraper, s.tracker, s.notifier,
		s.exporter, s.reporter, s.repo, s.pollGuard)
	return s.EnqueueTask(task)
}

// TriggerExportReport enqueues an immediate XLSX report export, used by the API.
func (s *Scheduler) TriggerExportReport() error {
	return s.EnqueueTask(NewExportReportTask(s.exporter))
}

func (s *Scheduler) enqueueTasks() {
	if err := s.TriggerPollCycle(); err != nil {
		slog.Warn("Failed to enqueue PollCycleTask", "error", err)
	}

	if s.tfl.Enabled() {
		enrichTask := NewEnrichJourneyTask(s.tfl, s.repo, s.enrichMax)
		if err := s.EnqueueTask(enrichTask); err != nil {
			slog.Warn("Failed to enqueue EnrichJourneyTask", "error", err)
		}
	}

	// one XLSX report per calendar day
	today := time.Now().Format("2006-01-02")
	s.lastReportMu.Lock()
	due := s.lastReport != today
	if due {
		s.lastReport = today
	}
	s.lastReportMu.Unlock()
	if due {
		if err := s.TriggerExportReport(); err != nil {
			slog.Warn("Failed to enqueue ExportReportTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Minute
			if retryDelay > 10*time.Minute {
				retryDelay = 10 * time.Minute
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				select {
				case <-time.After(retryDelay):
				case <-s.ctx.Done():
					return
				}
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
