package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	// KindBackfillImage 为缺图文章解析图片 URL
	KindBackfillImage Kind = "backfill_image"
	// KindCacheImage 下载并转存已有 image_url 的图片
	KindCacheImage Kind = "cache_image"
)

// Job 是按文章排队的异步图片任务；处理器在入口处重新校验状态，重复投递无副作用
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	ArticleID  string    `json:"articleId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func NewJob(kind Kind, articleID string) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		ArticleID:  articleID,
		EnqueuedAt: time.Now().UTC(),
	}
}

var ErrQueueFull = errors.New("jobs: queue is full")

type Queue interface {
	Push(ctx context.Context, job Job) error
	// Pop 等待至多 timeout；超时返回 (nil, nil)
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
}

// MemoryQueue 基于带缓冲 channel，供测试替代 RedisQueue
type MemoryQueue struct {
	ch chan Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 300
	}
	return &MemoryQueue{ch: make(chan Job, size)}
}

func (q *MemoryQueue) Push(ctx context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case job := <-q.ch:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// RedisQueue 以 Redis list 作为跨进程队列（LPUSH 入队，BRPOP 出队）
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "newshub:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	bs, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, bs).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}
	// BRPOP 返回 [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("pop job: unexpected reply length %d", len(res))
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}
