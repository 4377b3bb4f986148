package jobs

import "context"

// Dispatcher 为采集与 backfill 提供按文章入队的入口
type Dispatcher struct {
	queue Queue
}

func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) EnqueueBackfillImage(ctx context.Context, articleID string) error {
	return d.queue.Push(ctx, NewJob(KindBackfillImage, articleID))
}

func (d *Dispatcher) EnqueueCacheImage(ctx context.Context, articleID string) error {
	return d.queue.Push(ctx, NewJob(KindCacheImage, articleID))
}
