package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/araddon/dateparse"
)

// SitemapEntry 是 sitemap 中的一条 <url>（或 sitemapindex 中的 <sitemap>）
type SitemapEntry struct {
	Loc             string
	PublicationDate string
	Title           string
}

// Sitemap 解析结果；IsIndex 为 true 时 Entries 为子 sitemap 地址
type Sitemap struct {
	IsIndex bool
	Entries []SitemapEntry
}

// ParseSitemap 解析普通 sitemap / Google News sitemap / sitemapindex
func ParseSitemap(data []byte) (*Sitemap, error) {
	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sitemap: parse xml: %w", err)
	}
	root := rootElement(top)
	if root == nil {
		return nil, fmt.Errorf("sitemap: empty document")
	}
	doc := &Document{root: root, namespaces: declaredPrefixes(top)}

	sm := &Sitemap{}
	var nodes []*xmlquery.Node
	switch strings.ToLower(root.Data) {
	case "urlset":
		nodes = childElements(root, "url")
	case "sitemapindex":
		sm.IsIndex = true
		nodes = childElements(root, "sitemap")
	default:
		return nil, fmt.Errorf("sitemap: unexpected root element <%s>", root.Data)
	}

	for _, n := range nodes {
		it := &Item{node: n, doc: doc}
		loc := it.Text("loc")
		if loc == "" {
			continue
		}
		sm.Entries = append(sm.Entries, SitemapEntry{
			Loc:             loc,
			PublicationDate: it.Text(".//publication_date"),
			Title:           it.Text(".//title"),
		})
	}
	return sm, nil
}

// ParseDate 宽松解析各类 RSS/HTML 日期格式，失败返回 ok=false
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
