package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// 很多媒体站点会拒绝非浏览器 UA
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 10 << 20 // 10MB

	AcceptXML   = "application/rss+xml,application/atom+xml,application/xml,text/xml;q=0.9,*/*;q=0.8"
	AcceptHTML  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptImage = "image/avif,image/webp,image/*,*/*;q=0.8"
)

// ErrTooLarge 响应体超过 MaxBytes
var ErrTooLarge = errors.New("response body too large")

// StatusError 表示远端返回了非 2xx
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Response 是一次成功抓取的结果
type Response struct {
	Body        []byte
	FinalURL    string
	ContentType string
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// 每个 host 每秒请求数上限，<=0 表示不限速
	PerHostRPS float64
	MaxBytes   int64
}

// Client 带超时、浏览器 UA 与按 host 限速的 HTTP 抓取器，失败以 error 返回，不做内联重试
type Client struct {
	http      *http.Client
	userAgent string
	rps       float64
	maxBytes  int64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		rps:       opts.PerHostRPS,
		maxBytes:  opts.MaxBytes,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (c *Client) UserAgent() string { return c.userAgent }

func (c *Client) Timeout() time.Duration { return c.http.Timeout }

// MinInterval 是限速下同一 host 的请求间隔，不限速时为 0
func (c *Client) MinInterval() time.Duration {
	if c.rps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.rps)
}

// Get 发起 GET 请求并读取响应体，超过 MaxBytes 时返回 ErrTooLarge
func (c *Client) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	if l := c.limiter(u.Host); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: rate limit wait: %w", rawURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 丢弃少量响应体以便连接复用
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", rawURL, ErrTooLarge, c.maxBytes)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	return &Response{
		Body:        body,
		FinalURL:    final,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	if c.rps <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		burst := int(c.rps)
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(c.rps), burst)
		c.limiters[host] = l
	}
	return l
}
