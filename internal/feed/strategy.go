package feed

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// textStrategy 是字段提取的一种方式，命中非空文本时返回 ok=true
type textStrategy struct {
	name    string
	extract func(it *Item, f field) (string, bool)
}

// 依次尝试，直到某一策略成功
var textStrategies = []textStrategy{
	{name: "child", extract: childText},
	{name: "xpath", extract: xpathText},
	{name: "namespaced", extract: namespacedText},
	{name: "atom-link", extract: atomLinkHref},
}

// childText 直接子元素
func childText(it *Item, f field) (string, bool) {
	for n := it.node.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode || n.Data != f.local {
			continue
		}
		if f.prefix != "" && n.Prefix != f.prefix {
			continue
		}
		if v := strings.TrimSpace(n.InnerText()); v != "" {
			return v, true
		}
	}
	return "", false
}

// xpathText 对节点执行原始 XPath
func xpathText(it *Item, f field) (string, bool) {
	n, err := xmlquery.Query(it.node, f.path)
	if err != nil || n == nil {
		return "", false
	}
	v := strings.TrimSpace(n.InnerText())
	return v, v != ""
}

// namespacedText 用文档声明的每个前缀限定查询
func namespacedText(it *Item, f field) (string, bool) {
	for _, prefix := range it.doc.namespaces {
		for _, expr := range []string{prefix + ":" + f.local, ".//" + prefix + ":" + f.local} {
			n, err := xmlquery.Query(it.node, expr)
			if err != nil || n == nil {
				continue
			}
			if v := strings.TrimSpace(n.InnerText()); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// atomLinkHref Atom 的 <link href="..."/>，优先 rel=alternate
func atomLinkHref(it *Item, f field) (string, bool) {
	if f.local != "link" {
		return "", false
	}
	var first string
	for n := it.node.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode || n.Data != "link" {
			continue
		}
		href := strings.TrimSpace(n.SelectAttr("href"))
		if href == "" {
			continue
		}
		rel := n.SelectAttr("rel")
		if rel == "" || rel == "alternate" {
			return href, true
		}
		if first == "" {
			first = href
		}
	}
	return first, first != ""
}
