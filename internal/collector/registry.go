package collector

import (
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/config"
)

// DefaultFeedSources 内置的 RSS 来源
func DefaultFeedSources() []FeedSource {
	return []FeedSource{
		{
			Name: "Daily Nation",
			FeedURLs: []string{
				"https://nation.africa/rss",
				"https://nation.africa/rss/news",
				"https://nation.africa/rss/business",
				"https://nation.africa/rss/sports",
			},
			CategoryRule: CategoryFromURL,
		},
		{
			Name: "The Standard",
			FeedURLs: []string{
				"https://www.standardmedia.co.ke/rss/headlines.php",
				"https://www.standardmedia.co.ke/rss/kenya.php",
				"https://www.standardmedia.co.ke/rss/politics.php",
				"https://www.standardmedia.co.ke/rss/business.php",
				"https://www.standardmedia.co.ke/rss/sports.php",
			},
			CategoryRule: CategoryFromTag,
		},
		{
			Name:            "Business Daily",
			FeedURLs:        []string{"https://www.businessdailyafrica.com/bd/rss.xml"},
			CategoryRule:    CategoryFromTag,
			DefaultCategory: "business",
		},
		{
			Name: "The Star",
			FeedURLs: []string{
				"https://www.the-star.co.ke/rss",
				"https://www.the-star.co.ke/rss/news",
				"https://www.the-star.co.ke/rss/business",
				"https://www.the-star.co.ke/rss/sports",
			},
			CategoryRule: CategoryFromURL,
		},
	}
}

// DefaultSitemapSource Citizen Digital 的 RSS 经聚合器跳转且缩略图不可用，改走新闻 sitemap
func DefaultSitemapSource() SitemapSource {
	return SitemapSource{
		Name:       "Citizen TV",
		SitemapURL: "https://citizen.digital/sitemap.xml",
		PathFilter: "/article/",
		MaxItems:   defaultSitemapMaxItems,
		MaxAge:     defaultSitemapMaxAge,
	}
}

func DefaultIndexSource() IndexSource {
	return IndexSource{
		Name:         "Kenyans.co.ke",
		IndexURL:     "https://www.kenyans.co.ke/news",
		LinkSelector: "a[href]",
		PathPattern:  regexp.MustCompile(`^/news/\d+-`),
		MaxItems:     defaultIndexMaxItems,
		MaxAge:       defaultIndexMaxAge,
	}
}

// Deps 是构建适配器所需的共享依赖
type Deps struct {
	Fetcher   Fetcher
	Sink      *Sink
	Scraper   *PageScraper
	UserAgent string
	Timeout   time.Duration
	// CrawlDelay 用于不经过 Fetcher 的 colly 抓取
	CrawlDelay time.Duration
}

// Build 按内置来源与 sources 配置构建适配器列表，顺序稳定
func Build(deps Deps, sf *config.SourcesFile) []Adapter {
	var adapters []Adapter

	for _, src := range DefaultFeedSources() {
		override, ok := sf.Lookup(src.Name)
		if ok && override.Disabled {
			log.Info().Str("source", src.Name).Msg("source disabled by config")
			continue
		}
		if ok && len(override.Feeds) > 0 {
			src.FeedURLs = override.Feeds
		}
		adapters = append(adapters, NewFeedAdapter(src, deps.Fetcher, deps.Sink))
	}

	sm := DefaultSitemapSource()
	if override, ok := sf.Lookup(sm.Name); !ok || !override.Disabled {
		if ok && override.Entry != "" {
			sm.SitemapURL = override.Entry
		}
		adapters = append(adapters, NewSitemapAdapter(sm, deps.Fetcher, deps.Scraper, deps.Sink))
	}

	idx := DefaultIndexSource()
	if override, ok := sf.Lookup(idx.Name); !ok || !override.Disabled {
		if ok && override.Entry != "" {
			idx.IndexURL = override.Entry
		}
		idx.Delay = deps.CrawlDelay
		adapters = append(adapters, NewIndexAdapter(idx, deps.Scraper, deps.Sink, deps.UserAgent, deps.Timeout))
	}

	for _, g := range sf.Generic() {
		adapters = append(adapters, NewGenericFeedAdapter(g.Name, g.Feeds, g.Category, deps.Fetcher, deps.Sink))
	}
	return adapters
}
