package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/collector"
	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/imagecache"
	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/jobs"
	"github.com/LJTian/NewsHub/internal/scheduler"
	"github.com/LJTian/NewsHub/internal/storage"
)

const startupDelay = 15 * time.Second

// App 持有 cmd/api 与 cmd/collect 共用的全部组件
type App struct {
	Config       *config.Config
	Store        *storage.Store
	Orchestrator *ingest.Orchestrator
	Scheduler    *scheduler.Scheduler
	Pool         *jobs.Pool
	Sweeper      *imagecache.Sweeper
}

// New 连接存储并装配采集、图片与调度组件；不启动任何后台任务
func New(cfg *config.Config) (*App, error) {
	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := fetch.New(fetch.Options{
		Timeout:    cfg.FetchTimeout,
		UserAgent:  cfg.UserAgent,
		PerHostRPS: cfg.PerHostRPS,
	})

	queue := jobs.NewRedisQueue(store.Redis, "")
	dispatcher := jobs.NewDispatcher(queue)

	sink := collector.NewSink(store, dispatcher)
	adapters := collector.Build(collector.Deps{
		Fetcher:    client,
		Sink:       sink,
		Scraper:    collector.NewPageScraper(client, imagecache.DefaultFilter()),
		UserAgent:  client.UserAgent(),
		Timeout:    client.Timeout(),
		CrawlDelay: client.MinInterval(),
	}, sources)
	orchestrator := ingest.New(adapters, cfg.WorkerCount)

	var renderer imagecache.Renderer
	if cfg.RendererURL != "" {
		renderer = imagecache.NewRendererClient(cfg.RendererURL, 0)
	}
	resolver := imagecache.NewResolver(store, client, dispatcher, renderer)
	cacher := imagecache.NewCacher(store, client, imagecache.NewLocalStore(cfg.ImageDir), imagecache.Transcoder{
		Quality:  cfg.ImageQuality,
		MaxWidth: cfg.ImageMaxWidth,
	})
	pool := jobs.NewPool(queue, cfg.ImageWorkers)
	imagecache.Register(pool, resolver, cacher)
	sweeper := imagecache.NewSweeper(store, dispatcher)

	sched, err := scheduler.New(scheduler.Options{
		IngestSpec:    cfg.IngestCron,
		BackfillSpec:  cfg.BackfillCron,
		BackfillLimit: cfg.BackfillLimit,
		LockTTL:       cfg.RunLockTTL,
		StartupDelay:  startupDelay,
	}, orchestrator, sweeper, scheduler.NewRedisLocker(store.Redis))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	log.Info().Strs("sources", orchestrator.Sources()).Msg("adapters registered")
	return &App{
		Config:       cfg,
		Store:        store,
		Orchestrator: orchestrator,
		Scheduler:    sched,
		Pool:         pool,
		Sweeper:      sweeper,
	}, nil
}

// Close 停止后台任务并关闭连接
func (a *App) Close(ctx context.Context) {
	a.Scheduler.Stop(ctx)
	a.Pool.Stop()
	if err := a.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}
