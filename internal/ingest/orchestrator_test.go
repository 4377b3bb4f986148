package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/NewsHub/internal/collector"
)

type fakeAdapter struct {
	name  string
	count int
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Collect(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panic {
		panic("boom")
	}
	return f.count, f.err
}

func TestRunAllIsolatesFailures(t *testing.T) {
	ok := &fakeAdapter{name: "Daily Nation", count: 4}
	failing := &fakeAdapter{name: "The Star", err: errors.New("all feeds failed")}
	panicking := &fakeAdapter{name: "Citizen TV", panic: true}
	empty := &fakeAdapter{name: "Business Daily"}

	o := New([]collector.Adapter{ok, failing, panicking, empty}, 2)
	results := o.RunAll(context.Background())

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if r := results["Daily Nation"]; !r.Success || r.Count != 4 {
		t.Fatalf("Daily Nation = %+v", r)
	}
	if r := results["The Star"]; r.Success || r.Error == "" {
		t.Fatalf("The Star = %+v", r)
	}
	if r := results["Citizen TV"]; r.Success || r.Error == "" {
		t.Fatalf("Citizen TV = %+v", r)
	}
	if r := results["Business Daily"]; !r.Success || r.Count != 0 {
		t.Fatalf("Business Daily = %+v", r)
	}
	for _, a := range []*fakeAdapter{ok, failing, panicking, empty} {
		if a.calls.Load() != 1 {
			t.Fatalf("%s called %d times", a.name, a.calls.Load())
		}
	}
}

func TestRunAllRunsConcurrently(t *testing.T) {
	var adapters []collector.Adapter
	for _, n := range []string{"a", "b", "c"} {
		adapters = append(adapters, &fakeAdapter{name: n, count: 1, delay: 100 * time.Millisecond})
	}
	start := time.Now()
	results := New(adapters, 3).RunAll(context.Background())
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("adapters did not run in parallel: %v", elapsed)
	}
	if len(results) != 3 {
		t.Fatalf("results = %v", results)
	}
}

func TestRunSource(t *testing.T) {
	star := &fakeAdapter{name: "The Star", count: 2}
	o := New([]collector.Adapter{&fakeAdapter{name: "Daily Nation"}, star}, 0)

	n, err := o.RunSource(context.Background(), "the star")
	if err != nil || n != 2 {
		t.Fatalf("RunSource: n=%d err=%v", n, err)
	}
	if _, err := o.RunSource(context.Background(), "Nope"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}

	names := o.Sources()
	if len(names) != 2 || names[0] != "Daily Nation" || names[1] != "The Star" {
		t.Fatalf("Sources = %v", names)
	}
}

func TestRunSourceRecoversPanic(t *testing.T) {
	o := New([]collector.Adapter{&fakeAdapter{name: "Bad", panic: true}}, 1)
	if _, err := o.RunSource(context.Background(), "Bad"); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}
