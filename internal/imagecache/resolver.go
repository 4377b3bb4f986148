package imagecache

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/storage"
)

// Fetcher 是图片管线所需的 HTTP 抓取能力，*fetch.Client 实现该接口
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) (*fetch.Response, error)
}

// CacheEnqueuer 在找到 image_url 后投递缓存任务
type CacheEnqueuer interface {
	EnqueueCacheImage(ctx context.Context, articleID string) error
}

// 仍停留在这些 host 上时，说明聚合器跳转未完成
var defaultAggregatorHosts = []string{"news.google."}

// Resolver 为入库时没有图片的文章解析真实文章地址并挑选配图（Stage A）
type Resolver struct {
	repo        storage.ArticleRepository
	fetcher     Fetcher
	renderer    Renderer
	filter      Filter
	aggregators []string
	cache       CacheEnqueuer
}

func NewResolver(repo storage.ArticleRepository, fetcher Fetcher, cache CacheEnqueuer, renderer Renderer) *Resolver {
	return &Resolver{
		repo:        repo,
		fetcher:     fetcher,
		renderer:    renderer,
		filter:      DefaultFilter(),
		aggregators: defaultAggregatorHosts,
		cache:       cache,
	}
}

// page 是已抓取的文章页
type page struct {
	url  string
	html []byte
}

// Backfill 处理单篇文章；文章已有图片时直接返回。
// 找不到图片不是错误，等待下一轮 backfill 扫描。
func (r *Resolver) Backfill(ctx context.Context, articleID string) error {
	a, err := r.repo.GetArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load article %s: %w", articleID, err)
	}
	if a.ImageURL != nil {
		return nil
	}

	p, err := r.resolvePage(ctx, a.URL)
	if err != nil {
		return err
	}

	host := ""
	if u, err := url.Parse(p.url); err == nil {
		host = u.Hostname()
	}
	image := SelectImage(ExtractCandidates(p.html, p.url), host, r.filter)
	if image == "" {
		log.Debug().Str("article_id", articleID).Str("url", p.url).Msg("no image candidate")
		return nil
	}

	ok, err := r.repo.SetImageURL(ctx, articleID, image)
	if err != nil {
		return fmt.Errorf("set image url: %w", err)
	}
	if !ok {
		return nil
	}
	log.Debug().Str("article_id", articleID).Str("image", image).Msg("image url resolved")
	if r.cache != nil {
		if err := r.cache.EnqueueCacheImage(ctx, articleID); err != nil {
			return fmt.Errorf("enqueue cache job: %w", err)
		}
	}
	return nil
}

// resolvePage 跟随跳转；若仍停留在聚合器上，优先使用 canonical / og:url，
// 再退回到渲染 sidecar，最后抓取解析出的文章页
func (r *Resolver) resolvePage(ctx context.Context, articleURL string) (*page, error) {
	resp, err := r.fetcher.Get(ctx, articleURL, fetch.AcceptHTML)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", articleURL, err)
	}
	if !r.isAggregator(resp.FinalURL) {
		return &page{url: resp.FinalURL, html: resp.Body}, nil
	}

	target := CanonicalURL(resp.Body, resp.FinalURL)
	if target == "" || r.isAggregator(target) {
		if r.renderer == nil {
			return &page{url: resp.FinalURL, html: resp.Body}, nil
		}
		rendered, err := r.renderer.Render(ctx, articleURL)
		if err != nil {
			return nil, err
		}
		if rendered.HTML != "" && !r.isAggregator(rendered.FinalURL) {
			return &page{url: rendered.FinalURL, html: []byte(rendered.HTML)}, nil
		}
		target = rendered.FinalURL
	}
	if target == "" {
		return &page{url: resp.FinalURL, html: resp.Body}, nil
	}

	final, err := r.fetcher.Get(ctx, target, fetch.AcceptHTML)
	if err != nil {
		return nil, fmt.Errorf("fetch resolved page %s: %w", target, err)
	}
	return &page{url: final.FinalURL, html: final.Body}, nil
}

func (r *Resolver) isAggregator(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, a := range r.aggregators {
		if strings.Contains(host, a) {
			return true
		}
	}
	return false
}
