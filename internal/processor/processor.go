package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LJTian/NewsHub/internal/textutil"
)

// 质量分权重与时间窗口，均为启发式常量
const (
	titleLongLen   = 40
	titleMediumLen = 20
	descLongLen    = 200
	descMediumLen  = 100
	descShortLen   = 50

	freshWindow  = 24 * time.Hour
	recentWindow = 72 * time.Hour

	MaxQualityScore = 100
)

// ArticleID 以 URL 的 sha1 作为文章主键
func ArticleID(url string) string {
	return hashString(url)
}

// Fingerprint 去重指纹：sha1(lower(source)|normalized(title)|YYYY-MM-DD)。
// source 或标题归一化后为空时返回 nil。
func Fingerprint(source, title string, publishedAt time.Time) *string {
	src := strings.ToLower(strings.TrimSpace(source))
	t := textutil.NormalizeTitle(title)
	if src == "" || t == "" {
		return nil
	}
	date := ""
	if !publishedAt.IsZero() {
		date = publishedAt.UTC().Format("2006-01-02")
	}
	fp := hashString(src + "|" + t + "|" + date)
	return &fp
}

// QualityScore 内容丰富度评分，范围 [0,100]
func QualityScore(title, description string, hasImage bool, publishedAt, now time.Time) int {
	score := 0

	switch n := len([]rune(title)); {
	case n >= titleLongLen:
		score += 20
	case n >= titleMediumLen:
		score += 10
	}

	switch n := len([]rune(description)); {
	case n >= descLongLen:
		score += 30
	case n >= descMediumLen:
		score += 20
	case n >= descShortLen:
		score += 10
	}

	if hasImage {
		score += 20
	}

	if !publishedAt.IsZero() {
		age := now.Sub(publishedAt)
		switch {
		case age <= freshWindow:
			score += 30
		case age <= recentWindow:
			score += 10
		}
	}

	if score > MaxQualityScore {
		score = MaxQualityScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func hashString(s string) string {
	h := sha1.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
