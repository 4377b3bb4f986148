package feed

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Kind 表示识别出的订阅格式
type Kind string

const (
	KindRSS  Kind = "rss"
	KindAtom Kind = "atom"
	KindRDF  Kind = "rdf"
)

var ErrUnknownFormat = errors.New("feed: neither RSS nor Atom")

// Document 是解析后的订阅文档，保留命名空间声明以便按前缀回退查询
type Document struct {
	Kind       Kind
	root       *xmlquery.Node
	items      []*Item
	namespaces []string // 已声明的命名空间前缀，排序后保证回退顺序稳定
}

// Item 是一条 <item> 或 <entry> 节点
type Item struct {
	node *xmlquery.Node
	doc  *Document
}

// Parse 解析 RSS 2.0 / Atom（以及 RSS 1.0 RDF），XML 损坏时返回 error
func Parse(data []byte) (*Document, error) {
	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("feed: parse xml: %w", err)
	}
	root := rootElement(top)
	if root == nil {
		return nil, fmt.Errorf("feed: empty document")
	}

	doc := &Document{root: root, namespaces: declaredPrefixes(top)}

	var nodes []*xmlquery.Node
	switch strings.ToLower(root.Data) {
	case "rss":
		doc.Kind = KindRSS
		for _, ch := range childElements(root, "channel") {
			nodes = append(nodes, childElements(ch, "item")...)
		}
	case "feed":
		doc.Kind = KindAtom
		nodes = childElements(root, "entry")
	case "rdf":
		doc.Kind = KindRDF
		nodes = childElements(root, "item")
	default:
		return nil, fmt.Errorf("%w: root element <%s>", ErrUnknownFormat, root.Data)
	}

	doc.items = make([]*Item, 0, len(nodes))
	for _, n := range nodes {
		doc.items = append(doc.items, &Item{node: n, doc: doc})
	}
	return doc, nil
}

// Items 返回全部条目，顺序与文档一致
func (d *Document) Items() []*Item {
	return d.items
}

// Namespaces 返回文档中声明过的命名空间前缀
func (d *Document) Namespaces() []string {
	return d.namespaces
}

// Text 按策略链提取字段文本，全部失败时返回 ""
func (it *Item) Text(path string) string {
	return it.TextOr(path, "")
}

// TextOr 同 Text，但可指定默认值
func (it *Item) TextOr(path, def string) string {
	f := parseField(path)
	for _, s := range textStrategies {
		if v, ok := s.extract(it, f); ok {
			return v
		}
	}
	return def
}

// Attr 返回 path 命中的第一个节点上的属性值
func (it *Item) Attr(path, attr string) string {
	f := parseField(path)
	for _, n := range it.queryWithFallback(f) {
		if v := strings.TrimSpace(n.SelectAttr(attr)); v != "" {
			return v
		}
	}
	return ""
}

// OuterXML 便于调试与保存原始数据
func (it *Item) OuterXML() string {
	return it.node.OutputXML(true)
}

func (it *Item) queryWithFallback(f field) []*xmlquery.Node {
	if nodes, err := xmlquery.QueryAll(it.node, f.path); err == nil && len(nodes) > 0 {
		return nodes
	}
	for _, prefix := range it.doc.namespaces {
		if f.prefix != "" && f.prefix != prefix {
			continue
		}
		if nodes, err := xmlquery.QueryAll(it.node, ".//"+prefix+":"+f.local); err == nil && len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

type field struct {
	path   string // 原始查询路径，例如 .//dc:creator
	last   string // 最后一段，例如 dc:creator
	prefix string
	local  string
}

func parseField(path string) field {
	path = strings.TrimSpace(path)
	last := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		last = path[i+1:]
	}
	f := field{path: path, last: last, local: last}
	if i := strings.Index(last, ":"); i >= 0 {
		f.prefix, f.local = last[:i], last[i+1:]
	}
	return f
}

func rootElement(top *xmlquery.Node) *xmlquery.Node {
	for n := top.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func childElements(parent *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode && strings.EqualFold(n.Data, local) {
			out = append(out, n)
		}
	}
	return out
}

func declaredPrefixes(top *xmlquery.Node) []string {
	seen := make(map[string]struct{})
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		if n.Type == xmlquery.ElementNode {
			for _, a := range n.Attr {
				if a.Name.Space == "xmlns" && a.Name.Local != "" {
					seen[a.Name.Local] = struct{}{}
				}
			}
			// 命名空间声明几乎都在 rss/channel/feed 上，不必深入到条目正文
			if n.Parent != nil && n.Parent.Type == xmlquery.ElementNode && n.Parent.Parent != nil &&
				n.Parent.Parent.Type == xmlquery.ElementNode {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(top)

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
