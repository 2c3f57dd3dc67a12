package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jochuk/clubdesk/internal/domain/session"
	"github.com/jochuk/clubdesk/internal/platform/cache"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/panjf2000/ants/v2"
)

const (
	refreshStatusSuccess = "success"
	refreshStatusFailed  = "failed"

	refreshMaxWorkerCap = 8
)

// RefreshInput narrows one warm-up run. Zero values fall back to the
// configured defaults.
type RefreshInput struct {
	Sessions   int
	MaxWorkers int
}

type RefreshResult struct {
	TaskCount    int                 `json:"task_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	WorkerCount  int                 `json:"worker_count"`
	Tasks        []RefreshTaskResult `json:"tasks"`
}

type RefreshTaskResult struct {
	Target     string `json:"target"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// RefreshConfig carries the warm-up defaults from the environment.
type RefreshConfig struct {
	Sessions   int
	MaxWorkers int
}

// sheetSnapshotPruner is the slice of the sheet snapshot store the
// warm-up job needs to drop rows for dates that left the calendar.
type sheetSnapshotPruner interface {
	Dates(ctx context.Context) ([]int64, error)
	Delete(ctx context.Context, dateID int64) error
}

// RefreshService re-fetches the most recent sessions' sheets and the fee
// ledger through a bounded worker pool, refreshing the snapshots behind
// them. It backs the internal warm-up job route.
type RefreshService struct {
	attendance *AttendanceService
	fee        *FeeService
	sessions   *SessionService
	snapshots  sheetSnapshotPruner
	cache      *cache.Store
	cfg        RefreshConfig
	logger     *logging.Logger
}

func NewRefreshService(
	attendance *AttendanceService,
	fee *FeeService,
	sessions *SessionService,
	snapshots sheetSnapshotPruner,
	cacheStore *cache.Store,
	cfg RefreshConfig,
	logger *logging.Logger,
) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RefreshService{
		attendance: attendance,
		fee:        fee,
		sessions:   sessions,
		snapshots:  snapshots,
		cache:      cacheStore,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *RefreshService) Run(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Run")
	defer span.End()

	if s.attendance == nil || s.fee == nil || s.sessions == nil {
		return RefreshResult{}, fmt.Errorf("%w: refresh service is not fully configured", ErrDependencyUnavailable)
	}

	sessionCount := input.Sessions
	if sessionCount <= 0 {
		sessionCount = s.cfg.Sessions
	}
	if sessionCount <= 0 {
		return RefreshResult{}, fmt.Errorf("%w: sessions must be greater than zero", ErrInvalidInput)
	}

	calendar := s.sessions.List(ctx)
	days := calendar
	if len(days) > sessionCount {
		days = days[:sessionCount]
	}

	type refreshTask struct {
		target string
		run    func(context.Context) (int, error)
	}

	tasks := make([]refreshTask, 0, len(days)+1)
	for _, day := range days {
		day := day
		tasks = append(tasks, refreshTask{
			target: "sheet:" + day.Label,
			run: func(ctx context.Context) (int, error) {
				sheet, err := s.attendance.BuildSheet(ctx, day.ID, nil)
				if err != nil {
					return 0, err
				}
				return len(sheet.Rows()), nil
			},
		})
	}
	tasks = append(tasks, refreshTask{
		target: "ledger",
		run: func(ctx context.Context) (int, error) {
			if s.cache != nil {
				s.cache.Delete(ctx, cacheKeyLedger)
			}
			ledger, err := s.fee.Ledger(ctx)
			if err != nil {
				return 0, err
			}
			return len(ledger), nil
		},
	})

	workerCount := normalizeRefreshWorkerCount(input.MaxWorkers, s.cfg.MaxWorkers, len(tasks))
	result := RefreshResult{
		TaskCount:   len(tasks),
		WorkerCount: workerCount,
		Tasks:       make([]RefreshTaskResult, 0, len(tasks)),
	}

	results := make(chan RefreshTaskResult, len(tasks))

	var successCount atomic.Int32
	var failedCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := RefreshTaskResult{Target: task.target}

			records, err := task.run(ctx)
			row.Records = records
			row.DurationMs = time.Since(start).Milliseconds()
			if err != nil {
				row.Status = refreshStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
			} else {
				row.Status = refreshStatusSuccess
				successCount.Add(1)
			}

			results <- row
		}); err != nil {
			workers.Done()
			return RefreshResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].Target < result.Tasks[j].Target
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())

	s.pruneSnapshots(ctx, calendar)

	s.logger.InfoContext(ctx, "refresh run finished",
		"tasks", result.TaskCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"workers", result.WorkerCount,
	)
	return result, nil
}

// pruneSnapshots drops sheet snapshots for dates no longer on the
// calendar. Best effort: a failed prune is logged, never surfaced.
func (s *RefreshService) pruneSnapshots(ctx context.Context, calendar []session.Session) {
	if s.snapshots == nil {
		return
	}

	known := make(map[int64]struct{}, len(calendar))
	for _, day := range calendar {
		known[day.ID] = struct{}{}
	}

	dates, err := s.snapshots.Dates(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "listing sheet snapshots for pruning failed", "error", err)
		return
	}

	pruned := 0
	for _, dateID := range dates {
		if _, ok := known[dateID]; ok {
			continue
		}
		if err := s.snapshots.Delete(ctx, dateID); err != nil {
			s.logger.WarnContext(ctx, "pruning sheet snapshot failed", "date_id", dateID, "error", err)
			continue
		}
		pruned++
	}
	if pruned > 0 {
		s.logger.InfoContext(ctx, "pruned stale sheet snapshots", "count", pruned)
	}
}

func normalizeRefreshWorkerCount(requested, configured, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	value := requested
	if value <= 0 {
		value = configured
	}
	if value <= 0 {
		value = 1
	}
	if value > refreshMaxWorkerCap {
		value = refreshMaxWorkerCap
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}
