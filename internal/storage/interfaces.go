package storage

import "context"

// ArticleRepository 是采集、图片管线与读侧共用的持久化接口；
// Store（postgres）与 MemStore（内存）均实现它。
type ArticleRepository interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	// CreateArticle URL 或指纹冲突时返回 ErrDuplicate
	CreateArticle(ctx context.Context, a *Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)

	// ListMissingImages 返回 image_url 为空的文章 ID，按发布时间倒序
	ListMissingImages(ctx context.Context, limit int) ([]string, error)
	// SetImageURL 仅在 image_url 仍为空时写入，返回是否写入成功
	SetImageURL(ctx context.Context, id, imageURL string) (bool, error)
	// SetCachedImagePath 仅在 image_url 非空且 cached_image_path 为空时写入
	SetCachedImagePath(ctx context.Context, id, path string) (bool, error)

	ListArticles(ctx context.Context, q ArticleQuery) ([]Article, int64, error)
	ListLatest(ctx context.Context, limit int) ([]Article, error)
}
