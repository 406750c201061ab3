package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WorkerPoolConfig tunes one pool. Zero intervals take defaults.
type WorkerPoolConfig struct {
	Concurrency     int
	RateLimitMax    int
	RateLimitWindow time.Duration

	PollInterval      time.Duration
	PromoteInterval   time.Duration
	StalledInterval   time.Duration
	LockRenewInterval time.Duration
}

func (c WorkerPoolConfig) withDefaults() WorkerPoolConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 30
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PromoteInterval <= 0 {
		c.PromoteInterval = time.Second
	}
	if c.StalledInterval <= 0 {
		c.StalledInterval = 30 * time.Second
	}
	if c.LockRenewInterval <= 0 {
		c.LockRenewInterval = 20 * time.Second
	}
	return c
}

// WorkerPool consumes one queue with a fixed number of workers that share a rate limiter.
type WorkerPool struct {
	queue     repository.QueueRepository
	collector Collector
	limiter   *rate.Limiter
	cfg       WorkerPoolConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a pool for queue. It does nothing until Start.
func NewWorkerPool(queue repository.QueueRepository, collector Collector, cfg WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	cfg = cfg.withDefaults()
	return &WorkerPool{
		queue:     queue,
		collector: collector,
		// Burst 1: at most RateLimitMax+1 jobs start in any window.
		limiter: rate.NewLimiter(rate.Every(cfg.RateLimitWindow/time.Duration(cfg.RateLimitMax)), 1),
		cfg:     cfg,
		logger:  logger.Named("worker_pool").With(zap.String("queue", string(queue.Name()))),
	}
}

// Start launches the workers, the delayed-job promoter and the stalled-job checker.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.wg.Add(2)
	go p.every(ctx, p.cfg.PromoteInterval, p.promote)
	go p.every(ctx, p.cfg.StalledInterval, p.recoverStalled)

	p.logger.Info("Worker pool started",
		zap.Int("concurrency", p.cfg.Concurrency),
		zap.Int("rate_limit_max", p.cfg.RateLimitMax),
		zap.Duration("rate_limit_window", p.cfg.RateLimitWindow),
	)
}

// Stop cancels every goroutine and waits for in-flight jobs to return.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		job, err := p.queue.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to take job", zap.Error(err))
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.PollInterval):
			}
			continue
		}
		p.process(ctx, log, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, log *zap.Logger, job *entity.Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		p.renewLock(jobCtx, log, job)
	}()

	err := p.handle(jobCtx, job)
	cancel()
	<-renewed

	if ctx.Err() != nil {
		// The lock lapses and stalled recovery requeues it.
		log.Warn("Job interrupted by shutdown", zap.String("job_id", job.ID))
		return
	}
	if err != nil {
		if failErr := p.queue.Fail(ctx, job, err); failErr != nil {
			log.Error("Failed to record job failure", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return
	}
	if err := p.queue.Complete(ctx, job); err != nil {
		log.Error("Failed to complete job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// handle runs the collector and turns a panic into a job failure.
func (p *WorkerPool) handle(ctx context.Context, job *entity.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobsProcessedTotal.WithLabelValues(string(job.Queue), "failure").Inc()
			p.logger.Error("Job handler panicked",
				zap.String("job_id", job.ID),
				zap.String("page_url", job.Payload.PageURL),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return p.collector.Handle(ctx, job)
}

func (p *WorkerPool) renewLock(ctx context.Context, log *zap.Logger, job *entity.Job) {
	ticker := time.NewTicker(p.cfg.LockRenewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.queue.ExtendLock(ctx, job); err != nil && ctx.Err() == nil {
				log.Warn("Failed to extend job lock", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

func (p *WorkerPool) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *WorkerPool) promote(ctx context.Context) {
	n, err := p.queue.Promote(ctx)
	if err != nil && ctx.Err() == nil {
		p.logger.Error("Failed to promote delayed jobs", zap.Error(err))
	}
	if n > 0 {
		p.logger.Debug("Promoted delayed jobs", zap.Int("count", n))
	}
	p.refreshDepth(ctx)
}

func (p *WorkerPool) recoverStalled(ctx context.Context) {
	n, err := p.queue.RecoverStalled(ctx)
	if err != nil && ctx.Err() == nil {
		p.logger.Error("Failed to recover stalled jobs", zap.Error(err))
	}
	if n > 0 {
		p.logger.Warn("Recovered stalled jobs", zap.Int("count", n))
	}
}

func (p *WorkerPool) refreshDepth(ctx context.Context) {
	counts, err := p.queue.Counts(ctx)
	if err != nil {
		return
	}
	for state, n := range counts {
		metrics.JobsInQueue.WithLabelValues(string(p.queue.Name()), string(state)).Set(float64(n))
	}
}
