package ranking

import (
	"sort"
	"time"

	"github.com/LJTian/NewsHub/internal/storage"
)

const (
	readSourceWeight   = 2
	readCategoryWeight = 1
	followedWeight     = 5
	freshBonus         = 1
	freshWindow        = 48 * time.Hour
)

// Interaction 是一次阅读记录涉及的来源与分类
type Interaction struct {
	Source   string `json:"source"`
	Category string `json:"category"`
}

// Weights 是按来源、分类累计的偏好分
type Weights struct {
	Sources    map[string]int `json:"sources"`
	Categories map[string]int `json:"categories"`
}

// Scored 是带推荐分的文章
type Scored struct {
	storage.Article
	Score int `json:"score"`
}

// BuildWeights 每次阅读给来源 +2、分类 +1，每个关注的来源 +5
func BuildWeights(history []Interaction, followed []string) Weights {
	w := Weights{Sources: map[string]int{}, Categories: map[string]int{}}
	for _, h := range history {
		if h.Source != "" {
			w.Sources[h.Source] += readSourceWeight
		}
		if h.Category != "" {
			w.Categories[h.Category] += readCategoryWeight
		}
	}
	for _, s := range followed {
		if s != "" {
			w.Sources[s] += followedWeight
		}
	}
	return w
}

// Score 来源分 + 分类分 + 48 小时内发布的新鲜度加分
func Score(a storage.Article, w Weights, now time.Time) int {
	score := w.Sources[a.Source]
	if a.Category != nil {
		score += w.Categories[*a.Category]
	}
	if !a.PublishedAt.IsZero() {
		age := now.Sub(a.PublishedAt)
		if age < 0 {
			age = -age
		}
		if age <= freshWindow {
			score += freshBonus
		}
	}
	return score
}

// Rank 返回严格全序的结果：分数降序，其次 published_at 降序，最后按 ID 升序。
// 不修改入参。
func Rank(items []storage.Article, w Weights, now time.Time) []Scored {
	out := make([]Scored, len(items))
	for i, a := range items {
		out[i] = Scored{Article: a, Score: Score(a, w, now)}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
	return out
}
