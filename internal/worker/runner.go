// Package worker contains the background job runtime: a pool of workers
// that claim queued jobs, drive the extract/chunk/generate pipeline under
// the shared quota ledger, heartbeat while processing, and reclaim jobs
// whose worker went silent.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/events"
	"github.com/cardforge/cardforge-api/internal/extraction"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/quota"
	"github.com/cardforge/cardforge-api/internal/store"
)

// defaultReclaimCheckInterval applies when the config leaves the reclaim
// scan interval unset.
const defaultReclaimCheckInterval = time.Minute

// Runner manages the worker pool. One Runner per process; workers share
// the job store, the quota ledger, and the wake channel.
type Runner struct {
	jobStore  store.JobStore
	extractor extraction.Extractor
	generator generation.Generator
	ledger    *quota.Ledger

	cfg         config.WorkerConfig
	chunkTokens int

	instanceID string
	wake       chan struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger

	// now is the clock, overridable in tests.
	now func() time.Time
}

// NewRunner creates a new Runner.
// It returns an error if any of the required dependencies are nil.
func NewRunner(
	jobStore store.JobStore,
	extractor extraction.Extractor,
	generator generation.Generator,
	ledger *quota.Ledger,
	cfg config.WorkerConfig,
	processing config.ProcessingConfig,
	logger *slog.Logger,
) (*Runner, error) {
	if jobStore == nil {
		return nil, errors.New("jobStore cannot be nil")
	}
	if extractor == nil {
		return nil, errors.New("extractor cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if ledger == nil {
		return nil, errors.New("ledger cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.ReclaimCheckInterval == 0 {
		cfg.ReclaimCheckInterval = defaultReclaimCheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		jobStore:    jobStore,
		extractor:   extractor,
		generator:   generator,
		ledger:      ledger,
		cfg:         cfg,
		chunkTokens: processing.DefaultChunkTokens,
		instanceID:  uuid.New().String()[:8],
		wake:        make(chan struct{}, cfg.WakeQueueSize),
		ctx:         ctx,
		cancelFunc:  cancel,
		logger:      logger.With(slog.String("component", "worker_runner")),
		now:         time.Now,
	}, nil
}

// Ensure Runner can receive worker wake events
var _ events.EventHandler = (*Runner)(nil)

// HandleEvent implements events.EventHandler. The wake signal is
// fire-and-forget: when the buffer is full the signal is dropped, and the
// job is picked up by the next poll instead.
func (r *Runner) HandleEvent(ctx context.Context, event *events.JobQueuedEvent) error {
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start launches the worker pool and the reclaim monitor.
func (r *Runner) Start() {
	r.logger.Info("starting worker runner",
		slog.Int("worker_count", r.cfg.Count),
		slog.String("instance_id", r.instanceID))

	for i := 0; i < r.cfg.Count; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.reclaimMonitor()
}

// Stop gracefully shuts down the runner. In-flight jobs are abandoned
// mid-chunk; their stale heartbeats get them reclaimed to queued.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("worker runner stopped")
}

// worker is one member of the pool. It drains the queue whenever it is
// woken or its poll timer fires.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	workerID := fmt.Sprintf("%s-%d", r.instanceID, id)
	log := r.logger.With(slog.String("worker_id", workerID))
	log.Debug("starting worker")

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Drain once at startup to pick up jobs left over from before.
	r.drainQueue(workerID, log)

	for {
		select {
		case <-r.ctx.Done():
			log.Debug("stopping worker")
			return
		case <-r.wake:
			r.drainQueue(workerID, log)
		case <-ticker.C:
			r.drainQueue(workerID, log)
		}
	}
}

// drainQueue claims and processes jobs until the queue is empty or the
// runner is shutting down.
func (r *Runner) drainQueue(workerID string, log *slog.Logger) {
	for r.ctx.Err() == nil {
		job, err := r.jobStore.ClaimNext(r.ctx, workerID, r.now().UTC())
		if err != nil {
			if !errors.Is(err, store.ErrNoJobsAvailable) && r.ctx.Err() == nil {
				log.Error("failed to claim next job", slog.String("error", err.Error()))
			}
			return
		}

		r.processJob(job, workerID)
	}
}

// reclaimMonitor periodically returns heartbeat-stale processing jobs to
// the queue. Reclaim is not a failure: the job simply becomes claimable
// again.
func (r *Runner) reclaimMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.ReclaimCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			cutoff := r.now().UTC().Add(-r.cfg.HeartbeatTimeout)
			count, err := r.jobStore.ReclaimStale(r.ctx, cutoff)
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Error("reclaim scan failed", slog.String("error", err.Error()))
				}
				continue
			}
			if count > 0 {
				r.logger.Warn("returned stale jobs to queue", slog.Int("count", count))
			}
		}
	}
}

// startHeartbeat stamps worker liveness on the job at the configured
// interval until the returned stop function is called. A rejected
// heartbeat means the job was reclaimed or finalized; the goroutine just
// stops.
func (r *Runner) startHeartbeat(jobID uuid.UUID, workerID string, log *slog.Logger) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(r.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				if err := r.jobStore.Heartbeat(r.ctx, jobID, workerID, r.now().UTC()); err != nil {
					log.Debug("heartbeat rejected, stopping",
						slog.String("error", err.Error()))
					return
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}
