package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proxyforge/internal/shared/logger"
)

// probeOutcome 把一次探测的结果带回控制循环。id 用于对照在途表，
// 撤销后迟到的结果会因查不到条目而被丢弃。
type probeOutcome struct {
	id  string
	res Result
}

// inflightProbe 记录一个已放行的终端及其撤销句柄。
type inflightProbe struct {
	endpoint string
	cancel   context.CancelFunc
}

// cooperative 用单个控制循环调度探测：放行新探测直到在途数达到上限，
// 收割完成结果，整个窗口无任何完成时撤销全批并从游标处续灌。
type cooperative struct {
	prober  Prober
	limiter *Limiter
	opts    Options
}

func newCooperative(prober Prober, opts Options) (*cooperative, error) {
	if opts.Concurrency <= 0 {
		return nil, fmt.Errorf("cooperative mode needs a positive concurrency ceiling, got %d", opts.Concurrency)
	}
	if opts.StallMultiplier < 2 {
		return nil, fmt.Errorf("stall multiplier must be at least 2, got %d", opts.StallMultiplier)
	}
	return &cooperative{
		prober:  prober,
		limiter: NewLimiter(opts.Concurrency),
		opts:    opts,
	}, nil
}

func (c *cooperative) name() string { return ModeCooperative }

func (c *cooperative) run(ctx context.Context, endpoints []string) ([]string, error) {
	l := logger.WithComponent("Engine/Cooperative")

	total := len(endpoints)
	valid := make([]string, 0, total)
	resolved := 0
	cursor := 0

	// 缓冲取并发上限的两倍：在途发送最多上限个，加上收割间隙内
	// 补位探测的发送，不会超过这个数
	outcomes := make(chan probeOutcome, 2*c.opts.Concurrency)
	inflight := make(map[string]inflightProbe, c.opts.Concurrency)

	// 循环退出后关闭，让所有未送达的探测协程立即退场
	loopDone := make(chan struct{})
	defer close(loopDone)

	stallWindow := time.Duration(c.opts.StallMultiplier) * c.opts.ProbeTimeout
	stallTimer := time.NewTimer(stallWindow)
	defer stallTimer.Stop()

	resetStallTimer := func() {
		if !stallTimer.Stop() {
			select {
			case <-stallTimer.C:
			default:
			}
		}
		stallTimer.Reset(stallWindow)
	}

	// launch 在独立可撤销的 context 下启动一个探测协程。
	// 并发名额由协程退出时归还，卡死的探测会一直占着名额。
	launch := func(endpoint string) {
		probeCtx, cancel := context.WithCancel(ctx)
		id := uuid.NewString()
		inflight[id] = inflightProbe{endpoint: endpoint, cancel: cancel}
		go func() {
			defer c.limiter.Release()
			defer cancel()
			res := c.prober.Probe(probeCtx, endpoint)
			select {
			case outcomes <- probeOutcome{id: id, res: res}:
			case <-loopDone:
			}
		}()
	}

	// cancelAll 撤销全部在途探测，并在一个探测超时的宽限内等待
	// 各协程确认。宽限用尽就放弃，迟到结果靠在途表查不到来丢弃。
	cancelAll := func() {
		pending := len(inflight)
		for _, p := range inflight {
			p.cancel()
		}
		clear(inflight)
		if pending == 0 {
			return
		}
		grace := time.NewTimer(c.opts.ProbeTimeout)
		defer grace.Stop()
		for pending > 0 {
			select {
			case <-outcomes:
				pending--
			case <-grace.C:
				return
			}
		}
	}

	prog := newProgress(total, l)

	for resolved < total {
		// 灌入：游标未尽且有空余名额就继续放行
		for cursor < total && c.limiter.InFlight() < c.limiter.Capacity() {
			if err := c.limiter.Acquire(ctx); err != nil {
				break
			}
			launch(endpoints[cursor])
			cursor++
		}

		select {
		case out := <-outcomes:
			p, ok := inflight[out.id]
			if !ok {
				// 已撤销探测的迟到结果
				resetStallTimer()
				continue
			}
			delete(inflight, out.id)
			resolved++
			if accepted(out.res, c.opts.MaxLatency) {
				valid = append(valid, p.endpoint)
			}
			prog.observe(resolved, len(valid))
			resetStallTimer()

		case <-stallTimer.C:
			stalled := len(inflight)
			if stalled > 0 {
				l.Warn().
					Int("stalled", stalled).
					Str("window", stallWindow.String()).
					Msg("No probe finished within the stall window, revoking the batch.")
				resolved += stalled
				cancelAll()
			}
			resetStallTimer()

		case <-ctx.Done():
			l.Warn().Err(ctx.Err()).Msg("Validation interrupted, revoking in-flight probes.")
			cancelAll()
			return valid, ctx.Err()
		}
	}

	return valid, nil
}
