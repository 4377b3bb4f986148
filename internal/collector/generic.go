package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/fetch"
)

// GenericFeedAdapter 用 gofeed 解析配置文件中声明的通用 RSS/Atom/JSON Feed 来源
type GenericFeedAdapter struct {
	name     string
	feedURLs []string
	category string
	fetcher  Fetcher
	sink     *Sink
	parser   *gofeed.Parser
	maxItems int
}

func NewGenericFeedAdapter(name string, feedURLs []string, category string, fetcher Fetcher, sink *Sink) *GenericFeedAdapter {
	return &GenericFeedAdapter{
		name:     name,
		feedURLs: feedURLs,
		category: category,
		fetcher:  fetcher,
		sink:     sink,
		parser:   gofeed.NewParser(),
		maxItems: DefaultFeedItemLimit,
	}
}

func (g *GenericFeedAdapter) Name() string {
	return g.name
}

func (g *GenericFeedAdapter) Collect(ctx context.Context) (int, error) {
	count := 0
	failed := 0
	var lastErr error

	for _, feedURL := range g.feedURLs {
		resp, err := g.fetcher.Get(ctx, feedURL, fetch.AcceptXML)
		if err == nil {
			var parsed *gofeed.Feed
			parsed, err = g.parser.Parse(bytes.NewReader(resp.Body))
			if err == nil {
				count += g.saveItems(ctx, parsed.Items)
				continue
			}
			err = fmt.Errorf("parse %s: %w", feedURL, err)
		}
		log.Warn().Err(err).Str("source", g.name).Str("url", feedURL).Msg("feed unavailable")
		failed++
		lastErr = err
	}

	log.Info().Str("source", g.name).Int("count", count).Msg("generic feed collect done")
	if len(g.feedURLs) > 0 && failed == len(g.feedURLs) {
		return count, fmt.Errorf("%s: all %d feeds failed: %w", g.name, failed, lastErr)
	}
	return count, nil
}

func (g *GenericFeedAdapter) saveItems(ctx context.Context, items []*gofeed.Item) int {
	if len(items) > g.maxItems {
		items = items[:g.maxItems]
	}
	count := 0
	for _, it := range items {
		c := g.candidate(it)
		if c == nil {
			continue
		}
		if g.sink.Save(ctx, g.name, c, false) {
			count++
		}
	}
	return count
}

func (g *GenericFeedAdapter) candidate(it *gofeed.Item) *Candidate {
	link := strings.TrimSpace(it.Link)
	if link == "" {
		link = recoverLink(it.Description, it.GUID)
	}
	if strings.TrimSpace(it.Title) == "" || link == "" {
		return nil
	}

	c := &Candidate{
		Title:       it.Title,
		URL:         link,
		Description: it.Description,
		Content:     it.Content,
		ImageURL:    gofeedImage(it),
		Category:    g.category,
	}
	if len(it.Categories) > 0 && strings.TrimSpace(it.Categories[0]) != "" {
		c.Category = it.Categories[0]
	} else if inferred := InferCategory(link); inferred != "" {
		c.Category = inferred
	}
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		c.Author = it.Authors[0].Name
	}
	switch {
	case it.PublishedParsed != nil:
		c.PublishedAt = *it.PublishedParsed
	case it.UpdatedParsed != nil:
		c.PublishedAt = *it.UpdatedParsed
	}
	return c
}

// gofeedImage 依次尝试 item.Image、图片 enclosure、media 扩展、描述中的 <img>
func gofeedImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || imageExtRe.MatchString(enc.URL) {
			return enc.URL
		}
	}
	if media, ok := it.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, e := range media[key] {
				if u := e.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	if u := firstHTMLAttr(it.Description, "img[src]", "src"); u != "" {
		return u
	}
	return firstHTMLAttr(it.Content, "img[src]", "src")
}
