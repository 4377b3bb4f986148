package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsHub/internal/collector"
	"github.com/LJTian/NewsHub/internal/ingest"
)

type blockingAdapter struct {
	name    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAdapter) Name() string { return b.name }

func (b *blockingAdapter) Collect(ctx context.Context) (int, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return 1, nil
}

type countingSweeper struct {
	mu     sync.Mutex
	limits []int
}

func (c *countingSweeper) Sweep(_ context.Context, limit int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits = append(c.limits, limit)
	return limit / 2, nil
}

func TestMemoryLockerLease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	release, err := l.Acquire(ctx, "ingest", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "ingest", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("second acquire: got %v, want ErrLocked", err)
	}
	// 不同任务名互不影响
	if _, err := l.Acquire(ctx, "image-backfill", time.Minute); err != nil {
		t.Fatalf("other job: %v", err)
	}

	release()
	release2, err := l.Acquire(ctx, "ingest", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}

	// 租约过期后可被重新获取，旧持有者的 release 不影响新持有者
	now = now.Add(2 * time.Minute)
	if _, err := l.Acquire(ctx, "ingest", time.Minute); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	release2()
	if _, err := l.Acquire(ctx, "ingest", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("stale release freed the new lease: %v", err)
	}
}

func TestRunIngestDoesNotOverlap(t *testing.T) {
	a := &blockingAdapter{name: "Slow", started: make(chan struct{}), release: make(chan struct{})}
	o := ingest.New([]collector.Adapter{a}, 1)
	s, err := New(Options{}, o, nil, NewMemoryLocker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan map[string]ingest.Result, 1)
	go func() {
		res, _ := s.RunIngest(context.Background())
		done <- res
	}()
	<-a.started

	if _, err := s.RunIngest(context.Background()); !errors.Is(err, ErrLocked) {
		t.Fatalf("overlapping run: got %v, want ErrLocked", err)
	}
	if _, err := s.RunIngestSource(context.Background(), "Slow"); !errors.Is(err, ErrLocked) {
		t.Fatalf("overlapping single-source run: got %v, want ErrLocked", err)
	}

	close(a.release)
	res := <-done
	if r := res["Slow"]; !r.Success || r.Count != 1 {
		t.Fatalf("result = %+v", res)
	}

	// 锁已释放
	if _, err := s.RunIngestSource(context.Background(), "Slow"); err != nil {
		t.Fatalf("run after release: %v", err)
	}
	if _, err := s.RunIngestSource(context.Background(), "Missing"); !errors.Is(err, ingest.ErrUnknownSource) {
		t.Fatalf("unknown source: %v", err)
	}
}

func TestRunBackfillUsesDefaultLimit(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New(Options{BackfillLimit: 50}, ingest.New(nil, 1), sw, NewMemoryLocker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n, err := s.RunBackfill(context.Background(), 0)
	if err != nil || n != 25 {
		t.Fatalf("RunBackfill: n=%d err=%v", n, err)
	}
	if _, err := s.RunBackfill(context.Background(), 10); err != nil {
		t.Fatalf("RunBackfill(10): %v", err)
	}
	if len(sw.limits) != 2 || sw.limits[0] != 50 || sw.limits[1] != 10 {
		t.Fatalf("limits = %v", sw.limits)
	}
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	if _, err := New(Options{IngestSpec: "not a cron"}, ingest.New(nil, 1), nil, NewMemoryLocker()); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestStartAndStop(t *testing.T) {
	s, err := New(Options{IngestSpec: "0 * * * *", BackfillSpec: "15 */3 * * *", StartupDelay: -1}, ingest.New(nil, 1), &countingSweeper{}, NewMemoryLocker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := len(s.cron.Entries()); n != 2 {
		t.Fatalf("cron entries = %d", n)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
