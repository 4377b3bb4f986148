package collector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"
)

const (
	defaultIndexMaxItems = 40
	defaultIndexMaxAge   = 2 * 24 * time.Hour
)

// IndexSource 描述一个通过栏目首页抓取文章链接的来源
type IndexSource struct {
	Name         string
	IndexURL     string
	LinkSelector string
	// PathPattern 匹配文章链接的路径部分
	PathPattern *regexp.Regexp
	MaxItems    int
	MaxAge      time.Duration
	// Delay 是同一 host 两次请求之间的最小间隔，与 fetch.Client 的限速一致
	Delay time.Duration
}

// IndexAdapter 用 colly 抓取栏目页上的文章链接，再逐篇抓取文章页
type IndexAdapter struct {
	src       IndexSource
	scraper   *PageScraper
	sink      *Sink
	userAgent string
	timeout   time.Duration
	now       func() time.Time
}

func NewIndexAdapter(src IndexSource, scraper *PageScraper, sink *Sink, userAgent string, timeout time.Duration) *IndexAdapter {
	if src.MaxItems <= 0 {
		src.MaxItems = defaultIndexMaxItems
	}
	if src.MaxAge <= 0 {
		src.MaxAge = defaultIndexMaxAge
	}
	if src.LinkSelector == "" {
		src.LinkSelector = "a[href]"
	}
	return &IndexAdapter{src: src, scraper: scraper, sink: sink, userAgent: userAgent, timeout: timeout, now: time.Now}
}

func (a *IndexAdapter) Name() string {
	return a.src.Name
}

func (a *IndexAdapter) Collect(ctx context.Context) (int, error) {
	links, err := a.collectLinks(ctx)
	if err != nil {
		log.Warn().Err(err).Str("source", a.src.Name).Str("url", a.src.IndexURL).Msg("index page unavailable")
		return 0, err
	}

	cutoff := a.now().Add(-a.src.MaxAge)
	count := 0
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		if exists, err := a.sink.repo.ExistsByURL(ctx, link); err == nil && exists {
			continue
		}
		c, err := a.scraper.Scrape(ctx, link, time.Time{})
		if err != nil {
			log.Debug().Err(err).Str("source", a.src.Name).Str("url", link).Msg("article fetch failed")
			continue
		}
		if !c.PublishedAt.IsZero() && c.PublishedAt.Before(cutoff) {
			continue
		}
		if a.sink.Save(ctx, a.src.Name, c, true) {
			count++
		}
	}

	log.Info().Str("source", a.src.Name).Int("links", len(links)).Int("count", count).Msg("index collect done")
	return count, nil
}

// collectLinks 返回页面中匹配 PathPattern 的去重绝对链接，最多 MaxItems 条
func (a *IndexAdapter) collectLinks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := url.Parse(a.src.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.UserAgent(a.userAgent),
	)
	if a.timeout > 0 {
		c.SetRequestTimeout(a.timeout)
	}
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: a.src.Delay}); err != nil {
		return nil, fmt.Errorf("set crawl limit: %w", err)
	}
	// colly 不接收 context，取消后在发出请求前中止
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	seen := make(map[string]struct{})
	links := make([]string, 0, a.src.MaxItems)

	c.OnHTML(a.src.LinkSelector, func(e *colly.HTMLElement) {
		if len(links) >= a.src.MaxItems {
			return
		}
		abs := e.Request.AbsoluteURL(e.Attr("href"))
		u, err := url.Parse(abs)
		if err != nil || u.Hostname() != base.Hostname() {
			return
		}
		if a.src.PathPattern != nil && !a.src.PathPattern.MatchString(u.Path) {
			return
		}
		u.Fragment = ""
		link := u.String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("visit %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(a.src.IndexURL); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return links, nil
}
