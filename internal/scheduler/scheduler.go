package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/ingest"
)

const (
	ingestJob   = "ingest"
	backfillJob = "image-backfill"

	defaultLockTTL       = 55 * time.Minute
	defaultBackfillLimit = 200
)

// Sweeper 为缺图文章投递 backfill 任务，*imagecache.Sweeper 实现该接口
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (int, error)
}

type Options struct {
	IngestSpec    string
	BackfillSpec  string
	BackfillLimit int
	LockTTL       time.Duration
	// StartupDelay 首轮采集的延迟，<0 表示启动时不立即采集
	StartupDelay time.Duration
}

// Scheduler 定时触发采集与图片补全；同名任务通过租约锁互斥，
// 手动触发（API / CLI）与定时任务共用同一把锁
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *ingest.Orchestrator
	sweeper      Sweeper
	locker       Locker
	opts         Options
	timer        *time.Timer
}

func New(opts Options, o *ingest.Orchestrator, sweeper Sweeper, locker Locker) (*Scheduler, error) {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.BackfillLimit <= 0 {
		opts.BackfillLimit = defaultBackfillLimit
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{
		cron:         c,
		orchestrator: o,
		sweeper:      sweeper,
		locker:       locker,
		opts:         opts,
	}

	if opts.IngestSpec != "" {
		if _, err := c.AddFunc(opts.IngestSpec, s.scheduledIngest); err != nil {
			return nil, err
		}
	}
	if opts.BackfillSpec != "" && sweeper != nil {
		if _, err := c.AddFunc(opts.BackfillSpec, s.scheduledBackfill); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.opts.StartupDelay < 0 {
		return
	}
	// 延迟执行首轮采集，避免与服务启动争抢资源
	s.timer = time.AfterFunc(s.opts.StartupDelay, s.scheduledIngest)
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	if s.timer != nil {
		s.timer.Stop()
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sources 返回已注册来源
func (s *Scheduler) Sources() []string {
	return s.orchestrator.Sources()
}

// RunIngest 在持锁状态下执行一轮全量采集；已有采集在运行时返回 ErrLocked
func (s *Scheduler) RunIngest(ctx context.Context) (map[string]ingest.Result, error) {
	release, err := s.locker.Acquire(ctx, ingestJob, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.orchestrator.RunAll(ctx), nil
}

// RunIngestSource 只采集一个来源，与全量采集共用锁
func (s *Scheduler) RunIngestSource(ctx context.Context, name string) (int, error) {
	release, err := s.locker.Acquire(ctx, ingestJob, s.opts.LockTTL)
	if err != nil {
		return 0, err
	}
	defer release()
	return s.orchestrator.RunSource(ctx, name)
}

// RunBackfill 扫描缺图文章并投递任务；limit<=0 时使用配置值
func (s *Scheduler) RunBackfill(ctx context.Context, limit int) (int, error) {
	if s.sweeper == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = s.opts.BackfillLimit
	}
	release, err := s.locker.Acquire(ctx, backfillJob, s.opts.LockTTL)
	if err != nil {
		return 0, err
	}
	defer release()
	return s.sweeper.Sweep(ctx, limit)
}

func (s *Scheduler) scheduledIngest() {
	if _, err := s.RunIngest(context.Background()); err != nil {
		log.Info().Err(err).Str("job", ingestJob).Msg("scheduled run skipped")
	}
}

func (s *Scheduler) scheduledBackfill() {
	if _, err := s.RunBackfill(context.Background(), 0); err != nil {
		log.Info().Err(err).Str("job", backfillJob).Msg("scheduled run skipped")
	}
}

// cronLogger 把 cron 内部日志转到 zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
