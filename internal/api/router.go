package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/ingest"
	"github.com/LJTian/NewsHub/internal/ranking"
	"github.com/LJTian/NewsHub/internal/scheduler"
	"github.com/LJTian/NewsHub/internal/storage"
)

const (
	defaultRecommendLimit = 12
	maxRecommendLimit     = 100
	// 候选集为 limit 的 3 倍
	candidateFactor = 3
)

// Runner 是触发类接口需要的能力，*scheduler.Scheduler 实现该接口
type Runner interface {
	Sources() []string
	RunIngest(ctx context.Context) (map[string]ingest.Result, error)
	RunIngestSource(ctx context.Context, name string) (int, error)
	RunBackfill(ctx context.Context, limit int) (int, error)
}

type Server struct {
	repo   storage.ArticleRepository
	runner Runner
	now    func() time.Time
}

func NewServer(repo storage.ArticleRepository, runner Runner) *Server {
	return &Server{repo: repo, runner: runner, now: time.Now}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.GET("/sources", s.listSources)
		v1.POST("/ingest", s.ingest)
		v1.POST("/images/backfill", s.backfillImages)
		v1.POST("/recommend", s.recommend)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listNews(c *gin.Context) {
	q := storage.ArticleQuery{
		Source:   c.Query("source"),
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}

	items, total, err := s.repo.ListArticles(c.Request.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list articles failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
		"total":   total,
	})
}

func (s *Server) listSources(c *gin.Context) {
	ok(c, s.runner.Sources())
}

// ingest 同步执行采集；?source= 指定单个来源
func (s *Server) ingest(c *gin.Context) {
	ctx := c.Request.Context()
	if name := c.Query("source"); name != "" {
		count, err := s.runner.RunIngestSource(ctx, name)
		switch {
		case errors.Is(err, ingest.ErrUnknownSource):
			fail(c, http.StatusNotFound, "unknown_source", "unknown source: "+name)
			return
		case errors.Is(err, scheduler.ErrLocked):
			fail(c, http.StatusConflict, "locked", "an ingestion run is already in progress")
			return
		}
		r := ingest.Result{Success: err == nil, Count: count}
		if err != nil {
			r.Error = err.Error()
		}
		ok(c, map[string]ingest.Result{name: r})
		return
	}

	results, err := s.runner.RunIngest(ctx)
	if errors.Is(err, scheduler.ErrLocked) {
		fail(c, http.StatusConflict, "locked", "an ingestion run is already in progress")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("ingest run failed")
		internalError(c)
		return
	}
	ok(c, results)
}

func (s *Server) backfillImages(c *gin.Context) {
	queued, err := s.runner.RunBackfill(c.Request.Context(), queryInt(c, "limit", 0))
	if errors.Is(err, scheduler.ErrLocked) {
		fail(c, http.StatusConflict, "locked", "an image backfill is already in progress")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("image backfill failed")
		internalError(c)
		return
	}
	ok(c, gin.H{"queued": queued})
}

type recommendRequest struct {
	FollowedSources []string              `json:"followed_sources"`
	History         []ranking.Interaction `json:"history"`
	Limit           int                   `json:"limit"`
}

// recommend 按调用方提供的阅读历史与关注来源对最新文章重新排序
func (s *Server) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecommendLimit
	}
	if limit > maxRecommendLimit {
		limit = maxRecommendLimit
	}

	candidates, err := s.repo.ListLatest(c.Request.Context(), limit*candidateFactor)
	if err != nil {
		log.Error().Err(err).Msg("load recommendation candidates failed")
		internalError(c)
		return
	}

	ranked := ranking.Rank(candidates, ranking.BuildWeights(req.History, req.FollowedSources), s.now())
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	ok(c, ranked)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func internalError(c *gin.Context) {
	fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
}
