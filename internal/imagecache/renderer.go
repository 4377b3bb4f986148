package imagecache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RenderResult 是渲染 sidecar（cmd/renderer）的响应
type RenderResult struct {
	OK       bool   `json:"ok"`
	FinalURL string `json:"finalUrl"`
	HTML     string `json:"html"`
	Error    string `json:"error,omitempty"`
}

// Renderer 用无头浏览器打开页面，解析只能靠 JS 完成的聚合器跳转
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*RenderResult, error)
}

// RendererClient 调用 cmd/renderer 暴露的 POST /render
type RendererClient struct {
	endpoint string
	http     *http.Client
}

func NewRendererClient(baseURL string, timeout time.Duration) *RendererClient {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &RendererClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/render",
		http:     &http.Client{Timeout: timeout},
	}
}

func (r *RendererClient) Render(ctx context.Context, pageURL string) (*RenderResult, error) {
	body, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	defer resp.Body.Close()

	var out RenderResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("renderer: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return nil, fmt.Errorf("renderer: status %d: %s", resp.StatusCode, out.Error)
	}
	return &out, nil
}
