package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/collector"
)

const defaultWorkers = 3

var ErrUnknownSource = errors.New("ingest: unknown source")

// Result 是单个来源一次采集的结果
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Orchestrator 并发执行全部来源适配器，单个来源失败不影响其它来源
type Orchestrator struct {
	adapters []collector.Adapter
	workers  int
}

func New(adapters []collector.Adapter, workers int) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Orchestrator{adapters: adapters, workers: workers}
}

// Sources 返回已注册来源名称，顺序与注册顺序一致
func (o *Orchestrator) Sources() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// RunAll 用固定数量的 worker 跑完所有来源，返回每个来源的结果
func (o *Orchestrator) RunAll(ctx context.Context) map[string]Result {
	start := time.Now()
	log.Info().Int("sources", len(o.adapters)).Int("workers", o.workers).Msg("ingest run started")

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Result, len(o.adapters))
		queue   = make(chan collector.Adapter)
	)

	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range queue {
				count, err := runAdapter(ctx, a)
				r := Result{Success: err == nil, Count: count}
				if err != nil {
					r.Error = err.Error()
				}
				mu.Lock()
				results[a.Name()] = r
				mu.Unlock()
			}
		}()
	}
	for _, a := range o.adapters {
		queue <- a
	}
	close(queue)
	wg.Wait()

	total := 0
	failed := 0
	for _, r := range results {
		total += r.Count
		if !r.Success {
			failed++
		}
	}
	log.Info().
		Int("new_articles", total).
		Int("failed_sources", failed).
		Dur("elapsed", time.Since(start)).
		Msg("ingest run done")
	return results
}

// RunSource 只执行名称匹配（大小写不敏感）的来源
func (o *Orchestrator) RunSource(ctx context.Context, name string) (int, error) {
	for _, a := range o.adapters {
		if strings.EqualFold(a.Name(), name) {
			return runAdapter(ctx, a)
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

func runAdapter(ctx context.Context, a collector.Adapter) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", a.Name(), r)
			log.Error().Str("source", a.Name()).Interface("panic", r).Msg("adapter panicked")
		}
	}()

	start := time.Now()
	count, err = a.Collect(ctx)
	if err != nil {
		log.Warn().Err(err).Str("source", a.Name()).Msg("source failed")
		return count, err
	}
	log.Info().Str("source", a.Name()).Int("count", count).Dur("elapsed", time.Since(start)).Msg("source done")
	return count, nil
}
