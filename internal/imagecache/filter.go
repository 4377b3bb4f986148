package imagecache

import (
	"net/url"
	"regexp"
	"strings"
)

// Filter 过滤追踪/聚合器 CDN 图片与 sprite/logo 等占位图
type Filter struct {
	BlockedHosts []string
	BlockedPath  *regexp.Regexp
}

var defaultBlockedPath = regexp.MustCompile(`(?i)(sprite|logo|icon|placeholder|default)`)

func DefaultFilter() Filter {
	return Filter{
		BlockedHosts: []string{"google", "gstatic"},
		BlockedPath:  defaultBlockedPath,
	}
}

// Allowed 判断候选图片 URL 是否可用
func (f Filter) Allowed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, marker := range f.BlockedHosts {
		if marker != "" && strings.Contains(host, marker) {
			return false
		}
	}
	if f.BlockedPath != nil && f.BlockedPath.MatchString(u.Path) {
		return false
	}
	return true
}

// SelectImage 过滤候选后优先返回与文章同域（含子域）的图片，否则返回第一个可用候选
func SelectImage(candidates []string, publisherHost string, f Filter) string {
	publisher := baseHost(publisherHost)
	first := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !f.Allowed(c) {
			continue
		}
		if first == "" {
			first = c
		}
		u, _ := url.Parse(c)
		if publisher != "" && sameSite(baseHost(u.Hostname()), publisher) {
			return c
		}
	}
	return first
}

func baseHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// sameSite host 与 publisher 相同，或为其子域（如 cdn.publisher.com）
func sameSite(host, publisher string) bool {
	return host == publisher || strings.HasSuffix(host, "."+publisher)
}
