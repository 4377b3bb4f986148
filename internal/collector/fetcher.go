package collector

import (
	"context"
	"time"

	"github.com/LJTian/NewsHub/internal/fetch"
)

// Candidate 是适配器从单条 feed item 或文章页中提取的原始字段
type Candidate struct {
	Title       string
	URL         string
	Description string
	Content     string
	Category    string
	Author      string
	ImageURL    string
	// PublishedAt 解析失败时为零值，入库时回退为当前时间
	PublishedAt time.Time
	Extra       map[string]any
}

// Adapter 抽象每一个新闻来源；新增来源只需实现该接口
type Adapter interface {
	Name() string
	// Collect 抓取并入库，返回新增文章数。单条失败不影响整体，
	// 仅在来源完全不可用时返回 error。
	Collect(ctx context.Context) (int, error)
}

// Fetcher 是适配器所需的 HTTP 抓取能力，*fetch.Client 实现该接口
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) (*fetch.Response, error)
}

// ImageEnqueuer 负责把入库后的文章投递到图片任务队列
type ImageEnqueuer interface {
	EnqueueCacheImage(ctx context.Context, articleID string) error
	EnqueueBackfillImage(ctx context.Context, articleID string) error
}
