package engine

import (
	"testing"

	"proxyforge/internal/shared/logger"
)

func TestReportInterval(t *testing.T) {
	cases := []struct {
		total, want int
	}{
		{0, 50},
		{1, 50},
		{1000, 50},
		{1001, 100},
		{10000, 100},
		{10001, 500},
		{50000, 500},
	}
	for _, tc := range cases {
		if got := reportInterval(tc.total); got != tc.want {
			t.Errorf("reportInterval(%d): expected %d, but got %d", tc.total, tc.want, got)
		}
	}
}

func TestProgress_Due(t *testing.T) {
	p := newProgress(120, logger.WithComponent("test"))
	if p.interval != 50 {
		t.Fatalf("Expected interval 50 for 120 candidates, but got %d", p.interval)
	}

	for _, resolved := range []int{50, 100, 120} {
		if !p.due(resolved) {
			t.Errorf("Expected a report at resolved=%d", resolved)
		}
	}
	for _, resolved := range []int{1, 49, 73, 119} {
		if p.due(resolved) {
			t.Errorf("Expected no report at resolved=%d", resolved)
		}
	}

	empty := newProgress(0, logger.WithComponent("test"))
	if empty.due(0) {
		t.Errorf("Expected no report for an empty batch")
	}
}
