package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/feed"
	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/imagecache"
	"github.com/LJTian/NewsHub/internal/textutil"
)

// 各字段的 meta 优先级
var (
	metaTitle       = []string{"og:title", "twitter:title"}
	metaDescription = []string{"og:description", "description"}
	metaImage       = []string{"og:image", "twitter:image"}
	metaAuthor      = []string{"author", "article:author"}
	metaSection     = []string{"article:section"}
	metaPublished   = []string{"article:published_time"}
)

const maxContentRunes = 20000

// ErrNoTitle 页面缺少标题 meta，条目被拒绝
var ErrNoTitle = errors.New("collector: page has no title")

// PageScraper 抓取文章页并从社交 meta 标签与正文中提取字段
type PageScraper struct {
	fetcher Fetcher
	filter  imagecache.Filter
}

func NewPageScraper(fetcher Fetcher, filter imagecache.Filter) *PageScraper {
	return &PageScraper{fetcher: fetcher, filter: filter}
}

// Scrape 返回文章页的候选字段；fallbackPublished 在页面没有发布时间时使用（可为零值）
func (p *PageScraper) Scrape(ctx context.Context, pageURL string, fallbackPublished time.Time) (*Candidate, error) {
	resp, err := p.fetcher.Get(ctx, pageURL, fetch.AcceptHTML)
	if err != nil {
		return nil, err
	}
	return p.parse(pageURL, resp.Body, fallbackPublished)
}

func (p *PageScraper) parse(pageURL string, body []byte, fallbackPublished time.Time) (*Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", pageURL, err)
	}

	title := metaContent(doc, metaTitle)
	if textutil.Clean(title) == "" {
		return nil, ErrNoTitle
	}

	c := &Candidate{
		Title:       title,
		URL:         pageURL,
		Description: metaContent(doc, metaDescription),
		Author:      metaContent(doc, metaAuthor),
		Category:    strings.ToLower(textutil.Clean(metaContent(doc, metaSection))),
		PublishedAt: fallbackPublished,
	}
	if img := metaContent(doc, metaImage); img != "" && p.filter.Allowed(img) {
		c.ImageURL = img
	}
	if t, ok := feed.ParseDate(metaContent(doc, metaPublished)); ok {
		c.PublishedAt = t
	}

	p.fillContent(c, pageURL, body)
	return c, nil
}

// fillContent 用 readability 提取正文；失败时正文退回为描述
func (p *PageScraper) fillContent(c *Candidate, pageURL string, body []byte) {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("readability failed")
		c.Content = c.Description
		return
	}
	c.Content = textutil.Truncate(strings.TrimSpace(article.TextContent), maxContentRunes)
	if c.Content == "" {
		c.Content = c.Description
	}
	if c.Description == "" {
		c.Description = article.Excerpt
	}
	if c.Author == "" {
		c.Author = article.Byline
	}
}

// metaContent 按优先级查找 meta[property=…] 或 meta[name=…] 的 content
func metaContent(doc *goquery.Document, keys []string) string {
	for _, key := range keys {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)
		var out string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				out = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if out != "" {
			return out
		}
	}
	return ""
}
