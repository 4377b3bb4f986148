package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/LJTian/NewsHub/internal/imagecache"
	"github.com/LJTian/NewsHub/internal/logging"
)

// 聚合器落地页通过 JS 跳转，导航后等待跳转完成
const settleDelay = 3 * time.Second

type renderRequest struct {
	URL string `json:"url"`
}

func main() {
	logging.Setup(getEnv("LOG_LEVEL", "info"), getEnv("LOG_PRETTY", "") == "true")

	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Warn().Err(err).Msg("warmup chromedp failed")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, imagecache.RenderResult{Error: "invalid json"})
			return
		}
		if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			writeJSON(w, http.StatusBadRequest, imagecache.RenderResult{Error: "url must be http(s)"})
			return
		}

		// 每个请求一个独立 tab，复用同一个浏览器
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		ctx, cancel := context.WithTimeout(tabCtx, 30*time.Second)
		defer cancel()

		var finalURL, html string
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(settleDelay),
			chromedp.Location(&finalURL),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			log.Warn().Err(err).Str("url", req.URL).Msg("render failed")
			writeJSON(w, http.StatusOK, imagecache.RenderResult{Error: err.Error()})
			return
		}

		html = strings.TrimSpace(html)
		if html == "" {
			writeJSON(w, http.StatusOK, imagecache.RenderResult{FinalURL: finalURL, Error: "empty document"})
			return
		}
		log.Debug().Str("url", req.URL).Str("final_url", finalURL).Int("bytes", len(html)).Msg("rendered")
		writeJSON(w, http.StatusOK, imagecache.RenderResult{OK: true, FinalURL: finalURL, HTML: html})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Info().Str("addr", addr).Msg("renderer listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("http server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
