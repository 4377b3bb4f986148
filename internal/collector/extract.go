package collector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// URL 路径中的栏目段 -> 分类，按顺序匹配，未命中返回 ""
var urlCategories = []struct {
	segment  string
	category string
}{
	{"/sports/", "sports"},
	{"/business/", "business"},
	{"/politics/", "politics"},
	{"/technology/", "technology"},
	{"/health/", "health"},
}

var imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// InferCategory 根据文章 URL 路径推断分类
func InferCategory(link string) string {
	lower := strings.ToLower(link)
	for _, c := range urlCategories {
		if strings.Contains(lower, c.segment) {
			return c.category
		}
	}
	return ""
}

// firstHTMLAttr 在一段 HTML 片段中取第一个匹配 selector 的属性值
func firstHTMLAttr(fragment, selector, attr string) string {
	if !strings.Contains(fragment, "<") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var out string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			out = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return out
}

// recoverLink 在 feed 的 link 为空时，依次尝试描述中的第一个链接与 guid
func recoverLink(rawDescription, guid string) string {
	if href := firstHTMLAttr(rawDescription, "a[href]", "href"); isHTTPURL(href) {
		return href
	}
	guid = strings.TrimSpace(guid)
	if isHTTPURL(guid) {
		return guid
	}
	return ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
