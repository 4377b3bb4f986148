package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/app"
	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/logging"
)

type options struct {
	Source   string `short:"s" long:"source" description:"only collect this source (case-insensitive)"`
	Backfill bool   `short:"b" long:"backfill" description:"enqueue image backfill for articles without images and process the queue"`
	Limit    int    `short:"l" long:"limit" default:"0" description:"max articles to backfill (0 uses BACKFILL_LIMIT)"`
	List     bool   `long:"list" description:"print registered sources and exit"`
}

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集或在 cron/k8s job 中运行
func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	cfg.LogSummary(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	defer a.Close(context.Background())

	if opts.List {
		for _, name := range a.Orchestrator.Sources() {
			fmt.Println(name)
		}
		return
	}

	if opts.Backfill {
		queued, err := a.Scheduler.RunBackfill(ctx, opts.Limit)
		if err != nil {
			log.Fatal().Err(err).Msg("backfill failed")
		}
		// 在当前进程内处理完队列后退出
		processed := a.Pool.Drain(ctx, 5*time.Second)
		log.Info().Int("queued", queued).Int("processed", processed).Msg("backfill done")
		return
	}

	if opts.Source != "" {
		count, err := a.Scheduler.RunIngestSource(ctx, opts.Source)
		if err != nil {
			log.Fatal().Err(err).Str("source", opts.Source).Msg("collect failed")
		}
		log.Info().Str("source", opts.Source).Int("count", count).Msg("collect done")
		return
	}

	results, err := a.Scheduler.RunIngest(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("collect failed")
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := results[name]
		fmt.Printf("%-16s success=%-5t count=%-4d %s\n", name, r.Success, r.Count, r.Error)
	}
}
