package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/barqyst/fpl-advisor/internal/domain/team"
	"github.com/barqyst/fpl-advisor/internal/platform/logging"
)

const (
	defaultResyncWorkers = 4
	maxResyncWorkers     = 16
)

// ResyncInput bounds one bulk refresh run.
type ResyncInput struct {
	// Workers caps the concurrent refresh tasks. The outbound throttle
	// still spaces the actual provider requests.
	Workers int
	// DryRun walks the stored records without re-importing anything.
	DryRun bool
}

// ResyncTaskResult is the outcome of one user's team refresh.
type ResyncTaskResult struct {
	UserID     string
	FPLTeamID  int64
	Status     string
	Message    string
	DurationMs int64
}

const (
	resyncStatusSuccess = "success"
	resyncStatusFailed  = "failed"
	resyncStatusSkipped = "skipped"
)

// ResyncResult summarizes one bulk refresh run.
type ResyncResult struct {
	Tasks        []ResyncTaskResult
	SuccessCount int
	FailedCount  int
	SkippedCount int
	DurationMs   int64
}

// ResyncService re-imports every stored team record from the provider. Runs
// are triggered from an internal job route rather than a schedule.
type ResyncService struct {
	teams  *TeamService
	repo   team.Repository
	logger *logging.Logger
}

func NewResyncService(teams *TeamService, repo team.Repository, logger *logging.Logger) *ResyncService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResyncService{teams: teams, repo: repo, logger: logger}
}

// Run refreshes every stored team through a bounded worker pool. Individual
// failures are reported per task and never abort the run.
func (s *ResyncService) Run(ctx context.Context, input ResyncInput) (ResyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResyncService.Run")
	defer span.End()

	started := time.Now()

	userIDs, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return ResyncResult{}, fmt.Errorf("list resync targets: %w", err)
	}

	var result ResyncResult
	if len(userIDs) == 0 {
		return result, nil
	}

	workerCount := input.Workers
	if workerCount <= 0 {
		workerCount = defaultResyncWorkers
	}
	if workerCount > maxResyncWorkers {
		workerCount = maxResyncWorkers
	}

	results := make(chan ResyncTaskResult, len(userIDs))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var skippedCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return ResyncResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, userID := range userIDs {
		userID := userID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := s.refreshUser(ctx, userID, input.DryRun)
			row.DurationMs = time.Since(start).Milliseconds()

			switch row.Status {
			case resyncStatusSuccess:
				successCount.Add(1)
			case resyncStatusSkipped:
				skippedCount.Add(1)
			default:
				failedCount.Add(1)
			}

			results <- row
		}); err != nil {
			workers.Done()
			return ResyncResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].UserID < result.Tasks[j].UserID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.SkippedCount = int(skippedCount.Load())
	result.DurationMs = time.Since(started).Milliseconds()

	s.logger.InfoContext(ctx, "resync run finished",
		"targets", len(userIDs),
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"skipped", result.SkippedCount,
		"duration_ms", result.DurationMs)

	return result, nil
}

func (s *ResyncService) refreshUser(ctx context.Context, userID string, dryRun bool) ResyncTaskResult {
	row := ResyncTaskResult{UserID: userID}

	record, found, err := s.repo.GetLatestByUser(ctx, userID)
	if err != nil {
		row.Status = resyncStatusFailed
		row.Message = shortReason(err)
		return row
	}
	if !found || record.FPLTeamID <= 0 {
		row.Status = resyncStatusSkipped
		row.Message = "no stored team"
		return row
	}
	row.FPLTeamID = record.FPLTeamID

	if dryRun {
		row.Status = resyncStatusSkipped
		row.Message = "dry run"
		return row
	}

	if _, err := s.teams.Import(ctx, userID, record.FPLTeamID); err != nil {
		row.Status = resyncStatusFailed
		row.Message = shortReason(err)
		return row
	}
	row.Status = resyncStatusSuccess
	return row
}
