package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/feed"
	"github.com/LJTian/NewsHub/internal/fetch"
)

const (
	defaultSitemapMaxItems    = 120
	defaultSitemapMaxAge      = 14 * 24 * time.Hour
	defaultSitemapConcurrency = 4
	maxChildSitemaps          = 3
)

// SitemapSource 描述一个通过新闻 sitemap 抓取的来源
type SitemapSource struct {
	Name        string
	SitemapURL  string
	PathFilter  string
	MaxItems    int
	MaxAge      time.Duration
	Concurrency int
}

// SitemapAdapter 遍历新闻 sitemap，直接抓取文章页元数据，绕开不可靠的 RSS
type SitemapAdapter struct {
	src     SitemapSource
	fetcher Fetcher
	scraper *PageScraper
	sink    *Sink
	now     func() time.Time
}

func NewSitemapAdapter(src SitemapSource, fetcher Fetcher, scraper *PageScraper, sink *Sink) *SitemapAdapter {
	if src.MaxItems <= 0 {
		src.MaxItems = defaultSitemapMaxItems
	}
	if src.MaxAge <= 0 {
		src.MaxAge = defaultSitemapMaxAge
	}
	if src.Concurrency <= 0 {
		src.Concurrency = defaultSitemapConcurrency
	}
	return &SitemapAdapter{src: src, fetcher: fetcher, scraper: scraper, sink: sink, now: time.Now}
}

func (a *SitemapAdapter) Name() string {
	return a.src.Name
}

func (a *SitemapAdapter) Collect(ctx context.Context) (int, error) {
	entries, err := a.loadEntries(ctx, a.src.SitemapURL)
	if err != nil {
		log.Warn().Err(err).Str("source", a.src.Name).Str("url", a.src.SitemapURL).Msg("sitemap unavailable")
		return 0, err
	}

	cutoff := a.now().Add(-a.src.MaxAge)
	pending := make([]feed.SitemapEntry, 0, a.src.MaxItems)
	processed := 0
	for _, e := range entries {
		if a.src.PathFilter != "" && !strings.Contains(e.Loc, a.src.PathFilter) {
			continue
		}
		if processed >= a.src.MaxItems {
			break
		}
		processed++

		if exists, err := a.sink.repo.ExistsByURL(ctx, e.Loc); err == nil && exists {
			continue
		}
		if t, ok := feed.ParseDate(e.PublicationDate); ok && t.Before(cutoff) {
			continue
		}
		pending = append(pending, e)
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, a.src.Concurrency)
		count int
	)
	for _, e := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(e feed.SitemapEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			fallback, _ := feed.ParseDate(e.PublicationDate)
			c, err := a.scraper.Scrape(ctx, e.Loc, fallback)
			if err != nil {
				if !errors.Is(err, ErrNoTitle) {
					log.Debug().Err(err).Str("source", a.src.Name).Str("url", e.Loc).Msg("article fetch failed")
				}
				return
			}
			if a.sink.Save(ctx, a.src.Name, c, true) {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	log.Info().Str("source", a.src.Name).Int("examined", processed).Int("count", count).Msg("sitemap collect done")
	return count, nil
}

// loadEntries 读取 urlset；若为 sitemapindex，则展开前几个子 sitemap
func (a *SitemapAdapter) loadEntries(ctx context.Context, sitemapURL string) ([]feed.SitemapEntry, error) {
	sm, err := a.fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if !sm.IsIndex {
		return sm.Entries, nil
	}

	var out []feed.SitemapEntry
	for i, child := range sm.Entries {
		if i >= maxChildSitemaps {
			break
		}
		csm, err := a.fetchSitemap(ctx, child.Loc)
		if err != nil {
			log.Warn().Err(err).Str("source", a.src.Name).Str("url", child.Loc).Msg("child sitemap unavailable")
			continue
		}
		if !csm.IsIndex {
			out = append(out, csm.Entries...)
		}
	}
	return out, nil
}

func (a *SitemapAdapter) fetchSitemap(ctx context.Context, sitemapURL string) (*feed.Sitemap, error) {
	resp, err := a.fetcher.Get(ctx, sitemapURL, fetch.AcceptXML)
	if err != nil {
		return nil, err
	}
	sm, err := feed.ParseSitemap(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}
	return sm, nil
}
