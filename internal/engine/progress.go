package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// reportInterval 根据批量大小分级选择播报间隔，批量越大播报越稀疏。
func reportInterval(total int) int {
	switch {
	case total > 10000:
		return 500
	case total > 1000:
		return 100
	default:
		return 50
	}
}

// progress 跟踪一批探测的完成进度并按间隔播报。
type progress struct {
	total    int
	interval int
	log      zerolog.Logger
}

func newProgress(total int, log zerolog.Logger) *progress {
	return &progress{total: total, interval: reportInterval(total), log: log}
}

// due 判断当前完成数是否到达播报点。最后一个结果总是播报。
func (p *progress) due(resolved int) bool {
	if p.total == 0 {
		return false
	}
	return resolved%p.interval == 0 || resolved == p.total
}

// observe 在到达播报点时输出一行进度。
func (p *progress) observe(resolved, valid int) {
	if !p.due(resolved) {
		return
	}
	percent := float64(resolved) / float64(p.total) * 100
	p.log.Info().
		Int("resolved", resolved).
		Int("total", p.total).
		Str("percent", fmt.Sprintf("%.1f%%", percent)).
		Int("valid", valid).
		Msg("Validation progress.")
}
