package collector

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/LJTian/NewsHub/internal/processor"
	"github.com/LJTian/NewsHub/internal/storage"
	"github.com/LJTian/NewsHub/internal/textutil"
)

// Sink 是所有适配器共用的入库流程：规范化、指纹、质量分、去重、写入、投递图片任务
type Sink struct {
	repo   storage.ArticleRepository
	images ImageEnqueuer
	now    func() time.Time
}

func NewSink(repo storage.ArticleRepository, images ImageEnqueuer) *Sink {
	return &Sink{repo: repo, images: images, now: time.Now}
}

// Save 入库单条候选文章，返回是否新增。
// 校验失败与重复都静默跳过；其它持久化错误记录日志后跳过。
// backfill 为 true 时，缺图文章会投递 backfill 任务。
func (s *Sink) Save(ctx context.Context, source string, c *Candidate, backfill bool) bool {
	title := textutil.Clean(c.Title)
	link := strings.TrimSpace(c.URL)
	if title == "" || link == "" {
		return false
	}
	description := textutil.Clean(c.Description)
	content := textutil.Clean(c.Content)
	if content == "" {
		content = description
	}
	image := strings.TrimSpace(c.ImageURL)

	now := s.now()
	fp := processor.Fingerprint(source, title, c.PublishedAt)
	score := processor.QualityScore(title, description, image != "", c.PublishedAt, now)

	exists, err := s.repo.ExistsByURL(ctx, link)
	if err != nil {
		log.Error().Err(err).Str("source", source).Str("url", link).Msg("check url failed")
		return false
	}
	if exists {
		return false
	}
	if fp != nil {
		exists, err = s.repo.ExistsByFingerprint(ctx, *fp)
		if err != nil {
			log.Error().Err(err).Str("source", source).Str("url", link).Msg("check fingerprint failed")
			return false
		}
		if exists {
			return false
		}
	}

	published := c.PublishedAt
	if published.IsZero() {
		published = now
	}

	a := &storage.Article{
		ID:           processor.ArticleID(link),
		Title:        title,
		Description:  storage.StringPtr(description),
		Content:      storage.StringPtr(content),
		Source:       source,
		Category:     storage.StringPtr(strings.ToLower(strings.TrimSpace(c.Category))),
		URL:          link,
		Fingerprint:  fp,
		ImageURL:     storage.StringPtr(image),
		Author:       storage.StringPtr(textutil.Clean(c.Author)),
		QualityScore: score,
		PublishedAt:  published,
	}
	if len(c.Extra) > 0 {
		a.ExtraData = datatypes.JSONMap(c.Extra)
	}

	if err := s.repo.CreateArticle(ctx, a); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			log.Error().Err(err).Str("source", source).Str("url", link).Msg("save article failed")
		}
		return false
	}

	s.enqueueImage(ctx, a, backfill)
	return true
}

func (s *Sink) enqueueImage(ctx context.Context, a *storage.Article, backfill bool) {
	if s.images == nil {
		return
	}
	var err error
	switch {
	case a.ImageURL != nil:
		err = s.images.EnqueueCacheImage(ctx, a.ID)
	case backfill:
		err = s.images.EnqueueBackfillImage(ctx, a.ID)
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("article_id", a.ID).Msg("enqueue image job failed")
	}
}
