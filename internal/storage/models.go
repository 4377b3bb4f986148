package storage

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	// ErrDuplicate URL 或指纹与已有文章冲突
	ErrDuplicate = errors.New("storage: duplicate article")
	ErrNotFound  = errors.New("storage: article not found")
)

// Article 是规范化后的文章记录，url 与非空 fingerprint 全局唯一
type Article struct {
	ID              string            `gorm:"primaryKey;size:40" json:"id"`
	Title           string            `gorm:"size:512;not null" json:"title"`
	Description     *string           `gorm:"type:text" json:"description"`
	Content         *string           `gorm:"type:text" json:"content"`
	Source          string            `gorm:"size:64;index" json:"source"`
	Category        *string           `gorm:"size:64;index" json:"category"`
	URL             string            `gorm:"size:1024;uniqueIndex" json:"url"`
	Fingerprint     *string           `gorm:"size:40;uniqueIndex" json:"fingerprint"`
	ImageURL        *string           `gorm:"size:1024" json:"imageUrl"`
	CachedImagePath *string           `gorm:"size:512" json:"cachedImagePath"`
	Author          *string           `gorm:"size:255" json:"author"`
	QualityScore    int               `gorm:"index" json:"qualityScore"`
	PublishedAt     time.Time         `gorm:"index" json:"publishedAt"`
	Views           int64             `gorm:"default:0" json:"views"`
	ExtraData       datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ArticleQuery 读侧查询条件
type ArticleQuery struct {
	Source   string
	Category string
	Search   string
	Page     int
	Limit    int
}

func (q ArticleQuery) normalized() ArticleQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// StringPtr 空串返回 nil，便于可选字段赋值
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
