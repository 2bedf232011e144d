package watch

import (
	"context"
	"sort"
	"time"
)

// Serve 消费事件，把 debounce 时间内的变化合并后交给 fn，直到 ctx 结束
func (w *Watcher) Serve(ctx context.Context, debounce time.Duration, fn func(ctx context.Context, paths []string)) {
	pending := make(map[string]bool)
	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.eventCh:
			pending[ev.Path] = true
			if timer == nil {
				timer = time.After(debounce)
			}
		case <-timer:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			timer = nil
			fn(ctx, paths)
		}
	}
}
