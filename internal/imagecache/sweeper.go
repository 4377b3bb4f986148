package imagecache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/jobs"
	"github.com/LJTian/NewsHub/internal/storage"
)

// BackfillEnqueuer 投递 Stage A 任务
type BackfillEnqueuer interface {
	EnqueueBackfillImage(ctx context.Context, articleID string) error
}

// Sweeper 为缺图文章（按发布时间倒序）批量投递 backfill 任务
type Sweeper struct {
	repo    storage.ArticleRepository
	enqueue BackfillEnqueuer
}

func NewSweeper(repo storage.ArticleRepository, enqueue BackfillEnqueuer) *Sweeper {
	return &Sweeper{repo: repo, enqueue: enqueue}
}

// Sweep 返回成功投递的任务数
func (s *Sweeper) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 200
	}
	ids, err := s.repo.ListMissingImages(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list missing images: %w", err)
	}
	queued := 0
	for _, id := range ids {
		if err := s.enqueue.EnqueueBackfillImage(ctx, id); err != nil {
			log.Warn().Err(err).Str("article_id", id).Msg("enqueue backfill failed")
			continue
		}
		queued++
	}
	log.Info().Int("missing", len(ids)).Int("queued", queued).Msg("image backfill sweep done")
	return queued, nil
}

// Register 将两个阶段注册为任务处理器
func Register(pool *jobs.Pool, r *Resolver, c *Cacher) {
	pool.Handle(jobs.KindBackfillImage, func(ctx context.Context, job jobs.Job) error {
		return r.Backfill(ctx, job.ArticleID)
	})
	pool.Handle(jobs.KindCacheImage, func(ctx context.Context, job jobs.Job) error {
		return c.Cache(ctx, job.ArticleID)
	})
}
