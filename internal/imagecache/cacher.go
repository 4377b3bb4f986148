package imagecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/storage"
)

const keyPrefix = "news-images"

// Cacher 下载文章图片、转码并写入对象存储（Stage B），每篇文章至多成功一次
type Cacher struct {
	repo       storage.ArticleRepository
	fetcher    Fetcher
	store      ObjectStore
	transcoder Transcoder
}

func NewCacher(repo storage.ArticleRepository, fetcher Fetcher, store ObjectStore, t Transcoder) *Cacher {
	return &Cacher{repo: repo, fetcher: fetcher, store: store, transcoder: t}
}

// ObjectKey 由文章 ID 与图片 URL 的 md5 组成，确定且不冲突
func ObjectKey(articleID, imageURL, ext string) string {
	sum := md5.Sum([]byte(imageURL))
	return fmt.Sprintf("%s/%s-%s.%s", keyPrefix, articleID, hex.EncodeToString(sum[:]), ext)
}

func (c *Cacher) Cache(ctx context.Context, articleID string) error {
	a, err := c.repo.GetArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load article %s: %w", articleID, err)
	}
	if a.ImageURL == nil || a.CachedImagePath != nil {
		return nil
	}
	imageURL := *a.ImageURL

	resp, err := c.fetcher.Get(ctx, imageURL, fetch.AcceptImage)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	data, ext, err := c.transcoder.Transcode(resp.Body)
	if err != nil {
		log.Debug().Err(err).Str("article_id", articleID).Str("image", imageURL).Msg("transcode failed, storing original")
		data, ext = resp.Body, ExtFromURL(imageURL)
	}

	key := ObjectKey(articleID, imageURL, ext)
	if err := c.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	ok, err := c.repo.SetCachedImagePath(ctx, articleID, key)
	if err != nil {
		return fmt.Errorf("set cached path: %w", err)
	}
	if ok {
		log.Debug().Str("article_id", articleID).Str("key", key).Int("bytes", len(data)).Msg("image cached")
	}
	return nil
}
