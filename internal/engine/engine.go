package engine

import (
	"context"
	"time"

	"proxyforge/internal/shared/logger"
)

// 调度策略名。ModeAuto 优先协作式，条件不满足时自动退回工作池。
const (
	ModeAuto        = "auto"
	ModeCooperative = "cooperative"
	ModeWorkerPool  = "workerpool"
)

const (
	defaultConcurrency     = 50
	defaultWorkers         = 10
	defaultProbeTimeout    = 5 * time.Second
	defaultStallMultiplier = 2
	defaultMaxLatency      = 5 * time.Second
)

// Options 控制一次验证批量的调度与判定参数。零值字段取默认值。
type Options struct {
	// Mode 选择调度策略，空值等同 ModeAuto。
	Mode string
	// Concurrency 是协作式调度的在途上限。
	Concurrency int
	// Workers 是工作池策略的固定工人数量。
	Workers int
	// ProbeTimeout 是单次探测的最长耗时。
	ProbeTimeout time.Duration
	// StallMultiplier 乘以 ProbeTimeout 得到停滞窗口，必须大于 1。
	StallMultiplier int
	// MaxLatency 是可用代理允许的最大响应耗时。
	MaxLatency time.Duration
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	if o.Concurrency == 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = defaultProbeTimeout
	}
	if o.StallMultiplier == 0 {
		o.StallMultiplier = defaultStallMultiplier
	}
	if o.MaxLatency <= 0 {
		o.MaxLatency = defaultMaxLatency
	}
	return o
}

// strategy 是一种批量调度的实现。run 返回判定为可用的终端切片。
type strategy interface {
	run(ctx context.Context, endpoints []string) ([]string, error)
	name() string
}

// Validator 是验证引擎的对外入口，构造时一次性选定调度策略。
type Validator struct {
	strat strategy
	opts  Options
}

// New 按 opts 选择调度策略。协作式构造失败时降级为工作池并告警，
// 调用方无需感知。
func New(prober Prober, opts Options) *Validator {
	opts = opts.withDefaults()

	if opts.Mode == ModeWorkerPool {
		return &Validator{strat: newWorkerPool(prober, opts), opts: opts}
	}

	coop, err := newCooperative(prober, opts)
	if err != nil {
		l := logger.WithComponent("Engine")
		l.Warn().Err(err).Msg("Cooperative scheduling unavailable, falling back to worker pool.")
		return &Validator{strat: newWorkerPool(prober, opts), opts: opts}
	}
	return &Validator{strat: coop, opts: opts}
}

// Mode 返回实际生效的策略名。
func (v *Validator) Mode() string {
	return v.strat.name()
}

// Validate 探测全部候选终端并返回可用子集。ctx 结束时撤销所有在途
// 探测，已得出的部分结果与 ctx 错误一并返回。
func (v *Validator) Validate(ctx context.Context, endpoints []string) ([]string, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	l := logger.WithComponent("Engine")
	l.Info().
		Int("count", len(endpoints)).
		Str("mode", v.strat.name()).
		Msg("Starting validation batch.")
	start := time.Now()

	valid, err := v.strat.run(ctx, endpoints)
	if err != nil {
		return valid, err
	}

	l.Info().
		Int("valid", len(valid)).
		Int("total", len(endpoints)).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Validation batch finished.")
	return valid, nil
}

// accepted 判断一次探测结果是否达到可用标准。
func accepted(res Result, maxLatency time.Duration) bool {
	return res.Usable && res.Measured && res.Latency <= maxLatency
}
