package imagecache

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var candidateMeta = []string{"og:image", "og:image:secure_url", "twitter:image"}

// img 回退选择器，按优先级
var imgFallbacks = []string{
	"article img[src]",
	`img[class*="hero"][src], img[class*="featured"][src], img[class*="main"][src]`,
	"img[src]",
}

// ExtractCandidates 从 HTML 中按优先级提取图片候选：
// og:image、og:image:secure_url、twitter:image；都没有时依次回退到
// <article> 内第一张图、hero/featured/main 类图片、任意图片。
func ExtractCandidates(html []byte, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var out []string
	for _, key := range candidateMeta {
		doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).Each(func(_ int, s *goquery.Selection) {
			if v := absolute(base, s.AttrOr("content", "")); v != "" {
				out = append(out, v)
			}
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, sel := range imgFallbacks {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = absolute(base, s.AttrOr("src", ""))
			return found == ""
		})
		if found != "" {
			return []string{found}
		}
	}
	return nil
}

// CanonicalURL 返回 <link rel=canonical>，其次 og:url
func CanonicalURL(html []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	base, _ := url.Parse(pageURL)
	if v := absolute(base, doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")); v != "" {
		return v
	}
	return absolute(base, doc.Find(`meta[property="og:url"]`).First().AttrOr("content", ""))
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
