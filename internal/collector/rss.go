package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/feed"
	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/textutil"
)

// 每个 feed 只处理前 N 条
const DefaultFeedItemLimit = 25

// CategoryRule 决定 feed 条目的分类来源
type CategoryRule int

const (
	// CategoryFromURL 仅从文章 URL 路径推断
	CategoryFromURL CategoryRule = iota
	// CategoryFromTag 优先使用 <category>，缺失时再从 URL 推断
	CategoryFromTag
)

// FeedSource 描述一个基于 RSS/Atom 的来源
type FeedSource struct {
	Name            string
	FeedURLs        []string
	CategoryRule    CategoryRule
	DefaultCategory string
}

// FeedAdapter 按 FeedSource 抓取 feed 并交给 Sink 入库
type FeedAdapter struct {
	src      FeedSource
	fetcher  Fetcher
	sink     *Sink
	maxItems int
}

func NewFeedAdapter(src FeedSource, fetcher Fetcher, sink *Sink) *FeedAdapter {
	return &FeedAdapter{src: src, fetcher: fetcher, sink: sink, maxItems: DefaultFeedItemLimit}
}

func (a *FeedAdapter) Name() string {
	return a.src.Name
}

func (a *FeedAdapter) Collect(ctx context.Context) (int, error) {
	count := 0
	failed := 0
	var lastErr error

	for _, feedURL := range a.src.FeedURLs {
		items, err := a.fetchItems(ctx, feedURL)
		if err != nil {
			log.Warn().Err(err).Str("source", a.src.Name).Str("url", feedURL).Msg("feed unavailable")
			failed++
			lastErr = err
			continue
		}
		for _, it := range items {
			c := a.extract(it)
			if c == nil {
				continue
			}
			if a.sink.Save(ctx, a.src.Name, c, false) {
				count++
			}
		}
	}

	log.Info().Str("source", a.src.Name).Int("count", count).Msg("feed collect done")
	if len(a.src.FeedURLs) > 0 && failed == len(a.src.FeedURLs) {
		return count, fmt.Errorf("%s: all %d feeds failed: %w", a.src.Name, failed, lastErr)
	}
	return count, nil
}

func (a *FeedAdapter) fetchItems(ctx context.Context, feedURL string) ([]*feed.Item, error) {
	resp, err := a.fetcher.Get(ctx, feedURL, fetch.AcceptXML)
	if err != nil {
		return nil, err
	}
	doc, err := feed.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feedURL, err)
	}
	items := doc.Items()
	if len(items) > a.maxItems {
		items = items[:a.maxItems]
	}
	return items, nil
}

// extract 从单条 item 中提取候选文章，缺少标题或链接时返回 nil
func (a *FeedAdapter) extract(it *feed.Item) *Candidate {
	title := it.Text(".//title")
	rawDesc := firstNonEmpty(it.Text(".//description"), it.Text(".//summary"), it.Text(".//content"))
	link := it.Text(".//link")
	if link == "" {
		link = recoverLink(rawDesc, it.Text(".//guid"))
	}
	if textutil.Clean(title) == "" || link == "" {
		return nil
	}

	c := &Candidate{
		Title:       title,
		URL:         link,
		Description: rawDesc,
		Author:      firstNonEmpty(it.Text(".//author"), it.Text(".//dc:creator")),
		ImageURL:    itemImage(it, rawDesc),
		Category:    a.category(it, link),
	}
	pub := firstNonEmpty(it.Text(".//pubDate"), it.Text(".//published"), it.Text(".//updated"), it.Text(".//dc:date"))
	if t, ok := feed.ParseDate(pub); ok {
		c.PublishedAt = t
	}
	return c
}

func (a *FeedAdapter) category(it *feed.Item, link string) string {
	if a.src.CategoryRule == CategoryFromTag {
		if tag := strings.ToLower(textutil.Clean(it.Text(".//category"))); tag != "" {
			return tag
		}
	}
	if c := InferCategory(link); c != "" {
		return c
	}
	return a.src.DefaultCategory
}

// itemImage 依次尝试 media:content、media:thumbnail、图片 enclosure、描述中的第一张 <img>
func itemImage(it *feed.Item, rawDesc string) string {
	if u := it.Attr(".//media:content", "url"); u != "" {
		return u
	}
	if u := it.Attr(".//media:thumbnail", "url"); u != "" {
		return u
	}
	if u := it.Attr(".//enclosure", "url"); u != "" {
		if imageExtRe.MatchString(u) || strings.HasPrefix(it.Attr(".//enclosure", "type"), "image/") {
			return u
		}
	}
	return firstHTMLAttr(rawDesc, "img[src]", "src")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
