package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 列表缓存 TTL，依赖短 TTL 自然过期，不做通配删除
const listCacheTTL = 5 * time.Minute

// searchVector 与 migrations 中 GIN 索引的表达式保持一致
const searchVector = "to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(description, ''))"

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

var _ ArticleRepository = (*Store)(nil)

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Article{}); err != nil {
		return nil, err
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", redisAddr).Msg("redis ping failed")
	}

	return &Store{DB: db, Redis: rdb}, nil
}

func (s *Store) Close() error {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Article{}).Where("url = ?", url).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Article{}).Where("fingerprint = ?", fingerprint).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateArticle(ctx context.Context, a *Article) error {
	a.Title = toValidUTF8(a.Title)
	if a.Description != nil {
		d := toValidUTF8(*a.Description)
		a.Description = &d
	}
	if a.Content != nil {
		c := toValidUTF8(*a.Content)
		a.Content = &c
	}

	err := s.DB.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetArticle(ctx context.Context, id string) (*Article, error) {
	a := &Article{}
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListMissingImages(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&Article{}).
		Where("image_url IS NULL").
		Order("published_at DESC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *Store) SetImageURL(ctx context.Context, id, imageURL string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&Article{}).
		Where("id = ? AND image_url IS NULL", id).
		Update("image_url", imageURL)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) SetCachedImagePath(ctx context.Context, id, path string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&Article{}).
		Where("id = ? AND image_url IS NOT NULL AND cached_image_path IS NULL", id).
		Update("cached_image_path", path)
	return res.RowsAffected > 0, res.Error
}

type cachedPage struct {
	Items []Article `json:"items"`
	Total int64     `json:"total"`
}

// ListArticles 按来源、分类与全文检索分页返回文章，结果在 Redis 中缓存 5 分钟
func (s *Store) ListArticles(ctx context.Context, q ArticleQuery) ([]Article, int64, error) {
	q = q.normalized()
	cacheKey := fmt.Sprintf("news:list:%s:%s:%s:%d:%d", q.Source, q.Category, q.Search, q.Page, q.Limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached cachedPage
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached.Items, cached.Total, nil
			}
		}
	}

	stmts, err := buildListQueries(q)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.DB.WithContext(ctx).Raw(stmts.countSQL, stmts.countArgs...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []Article
	if err := s.DB.WithContext(ctx).Raw(stmts.listSQL, stmts.listArgs...).Scan(&list).Error; err != nil {
		return nil, 0, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(cachedPage{Items: list, Total: total}); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, total, nil
}

type listQueries struct {
	countSQL  string
	countArgs []any
	listSQL   string
	listArgs  []any
}

func buildListQueries(q ArticleQuery) (listQueries, error) {
	where := sq.And{}
	if q.Source != "" {
		where = append(where, sq.Eq{"source": q.Source})
	}
	if q.Category != "" {
		where = append(where, sq.Eq{"category": strings.ToLower(q.Category)})
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		where = append(where, sq.Expr(searchVector+" @@ plainto_tsquery('simple', ?)", term))
	}

	var out listQueries
	var err error
	out.countSQL, out.countArgs, err = sq.Select("COUNT(*)").From("articles").Where(where).ToSql()
	if err != nil {
		return out, err
	}
	out.listSQL, out.listArgs, err = sq.Select("*").From("articles").Where(where).
		OrderBy("published_at DESC", "id ASC").
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit)).
		ToSql()
	return out, err
}

func (s *Store) ListLatest(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	var list []Article
	err := s.DB.WithContext(ctx).Order("published_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
