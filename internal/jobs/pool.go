package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Handler func(ctx context.Context, job Job) error

// Pool 从 Queue 中取任务并按 Kind 分发给处理器。
// 处理器错误只记录日志，不重新入队：缺图文章由下一次 backfill 扫描重新覆盖。
type Pool struct {
	queue       Queue
	workers     int
	pollTimeout time.Duration
	jobTimeout  time.Duration

	mu       sync.RWMutex
	handlers map[Kind]Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(queue Queue, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:       queue,
		workers:     workers,
		pollTimeout: 2 * time.Second,
		jobTimeout:  2 * time.Minute,
		handlers:    make(map[Kind]Handler),
	}
}

func (p *Pool) Handle(kind Kind, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	log.Info().Int("workers", p.workers).Msg("job pool started")
}

func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.queue.Pop(ctx, p.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Int("worker", id).Msg("job queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		_ = p.Process(ctx, *job)
	}
}

// Process 同步执行单个任务；panic 与错误都被吸收并记录
func (p *Pool) Process(ctx context.Context, job Job) (err error) {
	p.mu.RLock()
	h, ok := p.handlers[job.Kind]
	p.mu.RUnlock()
	if !ok {
		log.Warn().Str("kind", string(job.Kind)).Str("job", job.ID).Msg("no handler for job kind")
		return fmt.Errorf("no handler for %s", job.Kind)
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
		if err != nil {
			log.Warn().Err(err).
				Str("kind", string(job.Kind)).
				Str("job", job.ID).
				Str("article_id", job.ArticleID).
				Msg("job failed")
		}
	}()
	return h(jobCtx, job)
}

// Drain 在当前 goroutine 中处理队列中已有的任务，直到一次 Pop 超时；返回处理数量
func (p *Pool) Drain(ctx context.Context, idle time.Duration) int {
	n := 0
	for {
		job, err := p.queue.Pop(ctx, idle)
		if err != nil || job == nil {
			return n
		}
		_ = p.Process(ctx, *job)
		n++
	}
}
