package textutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Clean 去掉 HTML 标签、解码实体并压缩空白，所有采集器入库前都走这里
func Clean(s string) string {
	if s == "" {
		return ""
	}
	// 部分源把 HTML 再转义一次放进 description（&lt;p&gt;...），先还原一层
	if strings.Contains(s, "&lt;") {
		s = html.UnescapeString(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapse(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			}
			// 标签边界补一个空格，避免 <p>a</p><p>b</p> 粘连成 "ab"
			b.WriteByte(' ')
		}
	}
}

// NormalizeTitle 用于指纹计算：清洗后统一小写
func NormalizeTitle(s string) string {
	return strings.ToLower(Clean(s))
}

// Truncate 按 rune 截断
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

func collapse(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
