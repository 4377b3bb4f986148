package collector

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/fetch"
	"github.com/LJTian/NewsHub/internal/imagecache"
	"github.com/LJTian/NewsHub/internal/storage"
)

type recordingImages struct {
	mu       sync.Mutex
	cache    []string
	backfill []string
}

func (r *recordingImages) EnqueueCacheImage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = append(r.cache, id)
	return nil
}

func (r *recordingImages) EnqueueBackfillImage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backfill = append(r.backfill, id)
	return nil
}

func newTestSink(now time.Time) (*Sink, *storage.MemStore, *recordingImages) {
	repo := storage.NewMemStore()
	images := &recordingImages{}
	s := NewSink(repo, images)
	s.now = func() time.Time { return now }
	return s, repo, images
}

func serve(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".xml") || strings.Contains(r.URL.Path, "rss") {
			w.Header().Set("Content-Type", "application/rss+xml")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rss(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel><title>Test</title>` + strings.Join(items, "\n") + `</channel></rss>`
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestFeedAdapterEndToEnd(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	pub := now.Add(-3 * time.Hour)
	desc := strings.Repeat("a", 120)

	srv := serve(t, map[string]string{
		"/rss": rss(fmt.Sprintf(`<item>
  <title>Kenya to Host Major Climate Summit</title>
  <link>https://nation.africa/news/x</link>
  <description>%s</description>
  <media:content url="https://nation.africa/img/summit.jpg" medium="image"/>
  <pubDate>%s</pubDate>
</item>`, desc, pub.Format(time.RFC1123Z))),
	})

	sink, repo, images := newTestSink(now)
	a := NewFeedAdapter(FeedSource{Name: "Daily Nation", FeedURLs: []string{srv.URL + "/rss"}}, fetch.New(fetch.Options{}), sink)

	n, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 1 || repo.Len() != 1 {
		t.Fatalf("expected 1 new article, got n=%d len=%d", n, repo.Len())
	}

	got := repo.All()[0]
	if got.QualityScore != 80 {
		t.Fatalf("quality score = %d, want 80", got.QualityScore)
	}
	wantFP := sha1Hex("daily nation|kenya to host major climate summit|2024-05-10")
	if got.Fingerprint == nil || *got.Fingerprint != wantFP {
		t.Fatalf("fingerprint = %v, want %s", got.Fingerprint, wantFP)
	}
	if got.ID != sha1Hex("https://nation.africa/news/x") {
		t.Fatalf("id = %s", got.ID)
	}
	if got.ImageURL == nil || *got.ImageURL != "https://nation.africa/img/summit.jpg" {
		t.Fatalf("image = %v", got.ImageURL)
	}
	if !got.PublishedAt.Equal(pub) {
		t.Fatalf("published = %v, want %v", got.PublishedAt, pub)
	}
	if got.Content == nil || *got.Content != desc {
		t.Fatalf("content should fall back to description")
	}
	if len(images.cache) != 1 || images.cache[0] != got.ID {
		t.Fatalf("cache jobs = %v", images.cache)
	}

	// 第二次运行不产生新记录
	n, err = a.Collect(context.Background())
	if err != nil || n != 0 || repo.Len() != 1 {
		t.Fatalf("second run: n=%d err=%v len=%d", n, err, repo.Len())
	}
}

func TestFeedAdapterSkipsInvalidItems(t *testing.T) {
	var items []string
	for i := 0; i < 10; i++ {
		title := fmt.Sprintf("Headline number %d", i)
		if i == 4 {
			title = "   "
		}
		items = append(items, fmt.Sprintf(`<item><title>%s</title><link>https://www.the-star.co.ke/news/%d</link></item>`, title, i))
	}
	srv := serve(t, map[string]string{"/rss": rss(items...)})

	sink, repo, images := newTestSink(time.Now())
	a := NewFeedAdapter(FeedSource{Name: "The Star", FeedURLs: []string{srv.URL + "/rss"}}, fetch.New(fetch.Options{}), sink)
	n, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 9 || repo.Len() != 9 {
		t.Fatalf("expected 9 articles, got n=%d len=%d", n, repo.Len())
	}
	// 无图且非 backfill 来源不投递任务
	if len(images.cache)+len(images.backfill) != 0 {
		t.Fatalf("unexpected image jobs: %+v", images)
	}
	for _, a := range repo.All() {
		if a.Fingerprint == nil {
			t.Fatalf("article %s has no fingerprint", a.URL)
		}
		if a.PublishedAt.IsZero() {
			t.Fatalf("article %s has zero published_at", a.URL)
		}
	}
}

func TestFeedAdapterFingerprintDedup(t *testing.T) {
	pub := time.Now().Add(-time.Hour).Format(time.RFC1123Z)
	item := func(link string) string {
		return fmt.Sprintf(`<item><title>Budget Reading Today!</title><link>%s</link><pubDate>%s</pubDate></item>`, link, pub)
	}
	srv := serve(t, map[string]string{
		"/rss/a": rss(item("https://nation.africa/news/budget-1")),
		"/rss/b": rss(item("https://nation.africa/news/budget-2?utm=x")),
	})

	sink, repo, _ := newTestSink(time.Now())
	client := fetch.New(fetch.Options{})
	a := NewFeedAdapter(FeedSource{Name: "Daily Nation", FeedURLs: []string{srv.URL + "/rss/a", srv.URL + "/rss/b"}}, client, sink)
	if n, err := a.Collect(context.Background()); err != nil || n != 1 {
		t.Fatalf("same source same story: n=%d err=%v", n, err)
	}

	// 指纹包含来源，不同来源的同名文章各自保留
	other := NewFeedAdapter(FeedSource{Name: "The Star", FeedURLs: []string{srv.URL + "/rss/b"}}, client, sink)
	if n, err := other.Collect(context.Background()); err != nil || n != 1 {
		t.Fatalf("other source: n=%d err=%v", n, err)
	}
	// 已存在的 URL 按 URL 去重
	if n, _ := other.Collect(context.Background()); n != 0 || repo.Len() != 2 {
		t.Fatalf("rerun: n=%d len=%d", n, repo.Len())
	}
}

func TestFeedAdapterLinkRecoveryAndCategories(t *testing.T) {
	srv := serve(t, map[string]string{
		"/rss": rss(
			`<item><title>No link but anchor</title><description><![CDATA[<p>Read <a href="https://www.standardmedia.co.ke/sports/article/1">more</a></p>]]></description></item>`,
			`<item><title>Guid only</title><guid>https://www.standardmedia.co.ke/business/article/2</guid></item>`,
			`<item><title>Tagged</title><link>https://www.standardmedia.co.ke/article/3</link><category> Politics </category></item>`,
			`<item><title>Relative guid</title><guid isPermaLink="false">abc-123</guid></item>`,
		),
	})

	sink, repo, _ := newTestSink(time.Now())
	a := NewFeedAdapter(FeedSource{
		Name:         "The Standard",
		FeedURLs:     []string{srv.URL + "/rss"},
		CategoryRule: CategoryFromTag,
	}, fetch.New(fetch.Options{}), sink)
	n, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 articles, got %d", n)
	}

	want := map[string]string{
		"https://www.standardmedia.co.ke/sports/article/1":   "sports",
		"https://www.standardmedia.co.ke/business/article/2": "business",
		"https://www.standardmedia.co.ke/article/3":          "politics",
	}
	for _, a := range repo.All() {
		cat, ok := want[a.URL]
		if !ok {
			t.Fatalf("unexpected url %s", a.URL)
		}
		if a.Category == nil || *a.Category != cat {
			t.Fatalf("%s: category = %v, want %s", a.URL, a.Category, cat)
		}
	}
}

func TestFeedAdapterAllFeedsFailed(t *testing.T) {
	srv := serve(t, map[string]string{"/ok": rss(`<item><title>Fine</title><link>https://x.co.ke/a</link></item>`)})
	client := fetch.New(fetch.Options{})

	sink, _, _ := newTestSink(time.Now())
	a := NewFeedAdapter(FeedSource{Name: "Broken", FeedURLs: []string{srv.URL + "/missing", srv.URL + "/gone"}}, client, sink)
	if _, err := a.Collect(context.Background()); err == nil {
		t.Fatalf("expected error when every feed fails")
	}

	partial := NewFeedAdapter(FeedSource{Name: "Partial", FeedURLs: []string{srv.URL + "/missing", srv.URL + "/ok"}}, client, sink)
	n, err := partial.Collect(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("partial failure: n=%d err=%v", n, err)
	}
}

func TestItemImageSources(t *testing.T) {
	srv := serve(t, map[string]string{
		"/rss": rss(
			`<item><title>Thumb</title><link>https://x.co.ke/1</link><media:thumbnail url="https://x.co.ke/t.jpg"/></item>`,
			`<item><title>Enclosure</title><link>https://x.co.ke/2</link><enclosure url="https://x.co.ke/e.png" type="image/png"/></item>`,
			`<item><title>Audio</title><link>https://x.co.ke/3</link><enclosure url="https://x.co.ke/a.mp3" type="audio/mpeg"/></item>`,
			`<item><title>Inline</title><link>https://x.co.ke/4</link><description><![CDATA[<img src="https://x.co.ke/i.jpg"> text]]></description></item>`,
		),
	})
	sink, repo, _ := newTestSink(time.Now())
	a := NewFeedAdapter(FeedSource{Name: "Images", FeedURLs: []string{srv.URL + "/rss"}}, fetch.New(fetch.Options{}), sink)
	if _, err := a.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := map[string]string{
		"https://x.co.ke/1": "https://x.co.ke/t.jpg",
		"https://x.co.ke/2": "https://x.co.ke/e.png",
		"https://x.co.ke/3": "",
		"https://x.co.ke/4": "https://x.co.ke/i.jpg",
	}
	for _, a := range repo.All() {
		got := ""
		if a.ImageURL != nil {
			got = *a.ImageURL
		}
		if got != want[a.URL] {
			t.Fatalf("%s: image = %q, want %q", a.URL, got, want[a.URL])
		}
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]string{
		"https://nation.africa/kenya/sports/football/x": "sports",
		"https://nation.africa/Business/x":              "business",
		"https://x.com/politics/y":                      "politics",
		"https://x.com/technology/y":                    "technology",
		"https://x.com/health/y":                        "health",
		"https://x.com/news/y":                          "",
	}
	for in, want := range cases {
		if got := InferCategory(in); got != want {
			t.Fatalf("InferCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func articlePage(title, desc, image, published string) string {
	var b strings.Builder
	b.WriteString("<html><head>")
	if title != "" {
		fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, title)
	}
	if desc != "" {
		fmt.Fprintf(&b, `<meta name="description" content="%s">`, desc)
	}
	if image != "" {
		fmt.Fprintf(&b, `<meta property="og:image" content="%s">`, image)
	}
	if published != "" {
		fmt.Fprintf(&b, `<meta property="article:published_time" content="%s">`, published)
	}
	b.WriteString(`<meta name="author" content="Jane Wanjiru">`)
	b.WriteString("</head><body><article><h1>" + title + "</h1>")
	for i := 0; i < 5; i++ {
		b.WriteString("<p>Nairobi residents gathered on Tuesday as officials outlined the plan, which covers transport, housing and water supply across the county over the coming decade.</p>")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func TestPageScraperParse(t *testing.T) {
	p := NewPageScraper(nil, imagecache.DefaultFilter())
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	html := articlePage("County Plan Unveiled", "", "https://cdn.citizen.digital/logo.png", "")
	c, err := p.parse("https://citizen.digital/article/plan", []byte(html), fallback)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Title != "County Plan Unveiled" || c.Author != "Jane Wanjiru" {
		t.Fatalf("unexpected fields: %+v", c)
	}
	if c.ImageURL != "" {
		t.Fatalf("logo image should be filtered, got %q", c.ImageURL)
	}
	if !c.PublishedAt.Equal(fallback) {
		t.Fatalf("published = %v, want fallback", c.PublishedAt)
	}
	if !strings.Contains(c.Content, "Nairobi residents") {
		t.Fatalf("content not extracted: %q", c.Content)
	}

	if _, err := p.parse("https://citizen.digital/article/x", []byte(articlePage("", "d", "", "")), fallback); !errors.Is(err, ErrNoTitle) {
		t.Fatalf("expected ErrNoTitle, got %v", err)
	}
}

func TestSitemapAdapter(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	old := time.Now().Add(-30 * 24 * time.Hour).UTC().Format(time.RFC3339)

	var srvURL string
	routes := map[string]string{}
	srv := serve(t, routes)
	srvURL = srv.URL

	entry := func(path, date string) string {
		return fmt.Sprintf(`<url><loc>%s%s</loc><news:news><news:publication_date>%s</news:publication_date></news:news></url>`, srvURL, path, date)
	}
	routes["/sitemap.xml"] = `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><sitemap><loc>` + srvURL + `/news-sitemap.xml</loc></sitemap></sitemapindex>`
	routes["/news-sitemap.xml"] = `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:news="http://www.google.com/schemas/sitemap-news/0.9">` +
		entry("/article/with-image", recent) +
		entry("/article/no-image", recent) +
		entry("/article/no-title", recent) +
		entry("/article/stale", old) +
		entry("/article/known", recent) +
		entry("/tags/politics", recent) +
		`</urlset>`
	routes["/article/with-image"] = articlePage("Floods Hit Western Kenya", "Heavy rains displaced families.", "https://cdn.citizen.digital/photos/floods.jpg", recent)
	routes["/article/no-image"] = articlePage("Senate Passes Finance Bill", "Vote concluded late.", "", "")
	routes["/article/no-title"] = articlePage("", "desc", "", "")
	routes["/article/stale"] = articlePage("Old Story", "old", "", old)

	sink, repo, images := newTestSink(time.Now())
	known := srvURL + "/article/known"
	if err := repo.CreateArticle(context.Background(), &storage.Article{ID: "known", Title: "Known", Source: "Citizen TV", URL: known, PublishedAt: time.Now()}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	client := fetch.New(fetch.Options{})
	a := NewSitemapAdapter(SitemapSource{
		Name:       "Citizen TV",
		SitemapURL: srvURL + "/sitemap.xml",
		PathFilter: "/article/",
	}, client, NewPageScraper(client, imagecache.DefaultFilter()), sink)

	n, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 new articles, got %d", n)
	}
	if len(images.cache) != 1 || len(images.backfill) != 1 {
		t.Fatalf("image jobs: cache=%v backfill=%v", images.cache, images.backfill)
	}
	for _, a := range repo.All() {
		if a.Source != "Citizen TV" {
			t.Fatalf("source = %q", a.Source)
		}
		if strings.HasSuffix(a.URL, "/article/stale") || strings.HasSuffix(a.URL, "/tags/politics") {
			t.Fatalf("unexpected article %s", a.URL)
		}
	}
}

func TestSitemapAdapterUnavailable(t *testing.T) {
	srv := serve(t, map[string]string{})
	sink, _, _ := newTestSink(time.Now())
	client := fetch.New(fetch.Options{})
	a := NewSitemapAdapter(SitemapSource{Name: "Citizen TV", SitemapURL: srv.URL + "/sitemap.xml"}, client, NewPageScraper(client, imagecache.DefaultFilter()), sink)
	if _, err := a.Collect(context.Background()); err == nil {
		t.Fatalf("expected error for missing sitemap")
	}
}

func TestIndexAdapter(t *testing.T) {
	recent := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)
	old := time.Now().Add(-10 * 24 * time.Hour).UTC().Format(time.RFC3339)

	srv := serve(t, map[string]string{
		"/news": `<html><body>
<a href="/news/101-first-story">First</a>
<a href="/news/101-first-story#comments">Comments</a>
<a href="/news/102-old-story">Old</a>
<a href="/about">About</a>
<a href="https://other.example/news/103-elsewhere">Elsewhere</a>
<a href="/news/104-third-story">Third</a>
</body></html>`,
		"/news/101-first-story": articlePage("Matatu Fares Rise", "Operators cite fuel.", "", recent),
		"/news/102-old-story":   articlePage("Archive Piece", "old", "", old),
		"/news/104-third-story": articlePage("Teachers Strike Called Off", "Union agrees.", "", ""),
	})

	client := fetch.New(fetch.Options{})
	sink, repo, images := newTestSink(time.Now())
	a := NewIndexAdapter(IndexSource{
		Name:        "Kenyans.co.ke",
		IndexURL:    srv.URL + "/news",
		PathPattern: regexp.MustCompile(`^/news/\d+-`),
	}, NewPageScraper(client, imagecache.DefaultFilter()), sink, "test-agent", 5*time.Second)

	links, err := a.collectLinks(context.Background())
	if err != nil {
		t.Fatalf("collectLinks: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("links = %v", links)
	}

	n, err := a.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 2 || repo.Len() != 2 {
		t.Fatalf("expected 2 articles, got n=%d len=%d", n, repo.Len())
	}
	if len(images.backfill) != 2 {
		t.Fatalf("backfill jobs = %v", images.backfill)
	}
}

func TestIndexAdapterCrawlPoliteness(t *testing.T) {
	srv := serve(t, map[string]string{
		"/news": `<html><body><a href="/about">About</a></body></html>`,
	})
	sink, _, _ := newTestSink(time.Now())
	src := IndexSource{
		Name:        "Kenyans.co.ke",
		IndexURL:    srv.URL + "/news",
		PathPattern: regexp.MustCompile(`^/news/\d+-`),
		Delay:       150 * time.Millisecond,
	}
	a := NewIndexAdapter(src, NewPageScraper(nil, imagecache.DefaultFilter()), sink, "test-agent", 5*time.Second)

	start := time.Now()
	if _, err := a.collectLinks(context.Background()); err != nil {
		t.Fatalf("collectLinks: %v", err)
	}
	if elapsed := time.Since(start); elapsed < src.Delay {
		t.Fatalf("crawl delay not applied, took %v", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.collectLinks(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildPassesCrawlDelay(t *testing.T) {
	adapters := Build(Deps{CrawlDelay: 250 * time.Millisecond}, nil)
	for _, ad := range adapters {
		if idx, ok := ad.(*IndexAdapter); ok {
			if idx.src.Delay != 250*time.Millisecond {
				t.Fatalf("index delay = %v", idx.src.Delay)
			}
			return
		}
	}
	t.Fatalf("no index adapter built")
}

func TestGenericFeedAdapter(t *testing.T) {
	srv := serve(t, map[string]string{
		"/atom.xml": `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Capital FM</title>
  <entry>
    <title>Shilling Gains Against Dollar</title>
    <link href="https://www.capitalfm.co.ke/business/2024/05/shilling"/>
    <id>urn:1</id>
    <updated>2024-05-10T08:00:00Z</updated>
    <author><name>Reporter One</name></author>
    <summary type="html">&lt;img src="https://www.capitalfm.co.ke/img/shilling.jpg"&gt; Markets rallied.</summary>
  </entry>
  <entry>
    <title></title>
    <link href="https://www.capitalfm.co.ke/news/empty"/>
    <id>urn:2</id>
  </entry>
</feed>`,
	})

	sink, repo, _ := newTestSink(time.Now())
	g := NewGenericFeedAdapter("Capital FM", []string{srv.URL + "/atom.xml"}, "general", fetch.New(fetch.Options{}), sink)
	n, err := g.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 article, got %d", n)
	}
	a := repo.All()[0]
	if a.Category == nil || *a.Category != "business" {
		t.Fatalf("category = %v", a.Category)
	}
	if a.Author == nil || *a.Author != "Reporter One" {
		t.Fatalf("author = %v", a.Author)
	}
	if a.ImageURL == nil || *a.ImageURL != "https://www.capitalfm.co.ke/img/shilling.jpg" {
		t.Fatalf("image = %v", a.ImageURL)
	}
	if want := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC); !a.PublishedAt.Equal(want) {
		t.Fatalf("published = %v", a.PublishedAt)
	}
}

func TestSinkRejectsEmptyFields(t *testing.T) {
	sink, repo, _ := newTestSink(time.Now())
	ctx := context.Background()
	if sink.Save(ctx, "X", &Candidate{Title: "  ", URL: "https://x/1"}, false) {
		t.Fatalf("empty title accepted")
	}
	if sink.Save(ctx, "X", &Candidate{Title: "Title", URL: " "}, false) {
		t.Fatalf("empty url accepted")
	}
	if !sink.Save(ctx, "X", &Candidate{Title: "<b>Title</b> &amp; more", URL: "https://x/2", Category: " Sports "}, false) {
		t.Fatalf("valid candidate rejected")
	}
	a := repo.All()[0]
	if a.Title != "Title & more" {
		t.Fatalf("title not cleaned: %q", a.Title)
	}
	if a.Category == nil || *a.Category != "sports" {
		t.Fatalf("category = %v", a.Category)
	}
	if a.Description != nil || a.ImageURL != nil {
		t.Fatalf("empty optional fields should be nil")
	}
}

func TestBuildAppliesSourceConfig(t *testing.T) {
	sf := &config.SourcesFile{Sources: []config.SourceConfig{
		{Name: "the standard", Disabled: true},
		{Name: "Daily Nation", Feeds: []string{"https://mirror.example/nation.xml"}},
		{Name: "Kenyans.co.ke", Entry: "https://www.kenyans.co.ke/latest"},
		{Name: "Capital FM", Type: config.SourceTypeGeneric, Feeds: []string{"https://www.capitalfm.co.ke/feed"}, Category: "general"},
		{Name: "Off", Type: config.SourceTypeGeneric, Disabled: true, Feeds: []string{"https://off.example/feed"}},
	}}
	sink, _, _ := newTestSink(time.Now())
	client := fetch.New(fetch.Options{})
	adapters := Build(Deps{Fetcher: client, Sink: sink, Scraper: NewPageScraper(client, imagecache.DefaultFilter())}, sf)

	var names []string
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	want := []string{"Daily Nation", "Business Daily", "The Star", "Citizen TV", "Kenyans.co.ke", "Capital FM"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("adapters = %v", names)
	}

	nation := adapters[0].(*FeedAdapter)
	if len(nation.src.FeedURLs) != 1 || nation.src.FeedURLs[0] != "https://mirror.example/nation.xml" {
		t.Fatalf("feed override not applied: %v", nation.src.FeedURLs)
	}
	idx := adapters[4].(*IndexAdapter)
	if idx.src.IndexURL != "https://www.kenyans.co.ke/latest" {
		t.Fatalf("entry override not applied: %s", idx.src.IndexURL)
	}

	all := Build(Deps{Fetcher: client, Sink: sink}, nil)
	if len(all) != 6 {
		t.Fatalf("default adapters = %d", len(all))
	}
}
