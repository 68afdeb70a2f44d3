package engine

import (
	"context"
	"sync"

	"proxyforge/internal/shared/logger"
)

// workerPool 用固定数量的工人协程消费任务通道。没有停滞检测，
// 依赖探测自身的超时保证推进。
type workerPool struct {
	prober Prober
	opts   Options
}

func newWorkerPool(prober Prober, opts Options) *workerPool {
	return &workerPool{prober: prober, opts: opts}
}

func (w *workerPool) name() string { return ModeWorkerPool }

func (w *workerPool) run(ctx context.Context, endpoints []string) ([]string, error) {
	l := logger.WithComponent("Engine/WorkerPool")

	total := len(endpoints)
	jobs := make(chan string)
	prog := newProgress(total, l)

	var mu sync.Mutex
	valid := make([]string, 0, total)
	resolved := 0

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				res := w.prober.Probe(ctx, endpoint)
				mu.Lock()
				resolved++
				if accepted(res, w.opts.MaxLatency) {
					valid = append(valid, endpoint)
				}
				prog.observe(resolved, len(valid))
				mu.Unlock()
			}
		}()
	}

	interrupted := false
feed:
	for _, endpoint := range endpoints {
		select {
		case jobs <- endpoint:
		case <-ctx.Done():
			interrupted = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if interrupted {
		l.Warn().Err(ctx.Err()).Msg("Validation interrupted, remaining endpoints were not probed.")
		return valid, ctx.Err()
	}
	return valid, nil
}
