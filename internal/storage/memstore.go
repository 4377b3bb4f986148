package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore 是 ArticleRepository 的内存实现，唯一性规则与 postgres 一致，供测试替代 Store
type MemStore struct {
	mu           sync.Mutex
	byID         map[string]*Article
	urls         map[string]string
	fingerprints map[string]string
	now          func() time.Time
}

var _ ArticleRepository = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		byID:         make(map[string]*Article),
		urls:         make(map[string]string),
		fingerprints: make(map[string]string),
		now:          time.Now,
	}
}

func (m *MemStore) ExistsByURL(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.urls[url]
	return ok, nil
}

func (m *MemStore) ExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fingerprints[fingerprint]
	return ok, nil
}

func (m *MemStore) CreateArticle(_ context.Context, a *Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[a.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.urls[a.URL]; ok {
		return ErrDuplicate
	}
	if a.Fingerprint != nil {
		if _, ok := m.fingerprints[*a.Fingerprint]; ok {
			return ErrDuplicate
		}
	}

	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.byID[a.ID] = &cp
	m.urls[a.URL] = a.ID
	if a.Fingerprint != nil {
		m.fingerprints[*a.Fingerprint] = a.ID
	}
	return nil
}

func (m *MemStore) GetArticle(_ context.Context, id string) (*Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemStore) ListMissingImages(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []*Article
	for _, a := range m.byID {
		if a.ImageURL == nil {
			missing = append(missing, a)
		}
	}
	sortNewestFirst(missing)
	if limit > 0 && len(missing) > limit {
		missing = missing[:limit]
	}
	ids := make([]string, 0, len(missing))
	for _, a := range missing {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (m *MemStore) SetImageURL(_ context.Context, id, imageURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.ImageURL != nil {
		return false, nil
	}
	a.ImageURL = &imageURL
	a.UpdatedAt = m.now()
	return true, nil
}

func (m *MemStore) SetCachedImagePath(_ context.Context, id, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.ImageURL == nil || a.CachedImagePath != nil {
		return false, nil
	}
	a.CachedImagePath = &path
	a.UpdatedAt = m.now()
	return true, nil
}

func (m *MemStore) ListArticles(_ context.Context, q ArticleQuery) ([]Article, int64, error) {
	q = q.normalized()
	m.mu.Lock()
	defer m.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(q.Search))
	var matched []*Article
	for _, a := range m.byID {
		if q.Source != "" && a.Source != q.Source {
			continue
		}
		if q.Category != "" && (a.Category == nil || *a.Category != strings.ToLower(q.Category)) {
			continue
		}
		if term != "" {
			text := strings.ToLower(a.Title)
			if a.Description != nil {
				text += " " + strings.ToLower(*a.Description)
			}
			if !strings.Contains(text, term) {
				continue
			}
		}
		matched = append(matched, a)
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]Article, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, *a)
	}
	return out, total, nil
}

func (m *MemStore) ListLatest(_ context.Context, limit int) ([]Article, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	list := m.All()
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Len 返回已保存的文章数
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// All 返回全部文章的副本，按发布时间倒序
func (m *MemStore) All() []Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*Article, 0, len(m.byID))
	for _, a := range m.byID {
		all = append(all, a)
	}
	sortNewestFirst(all)
	out := make([]Article, 0, len(all))
	for _, a := range all {
		out = append(out, *a)
	}
	return out
}

func sortNewestFirst(list []*Article) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].PublishedAt.Equal(list[j].PublishedAt) {
			return list[i].PublishedAt.After(list[j].PublishedAt)
		}
		return list[i].ID < list[j].ID
	})
}
