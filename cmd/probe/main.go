package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"proxyforge/internal/engine"
	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
)

// probe 是独立的诊断工具：对参数或标准输入里的终端逐个探测，
// 把可用的打印到标准输出。
func main() {
	testURL := flag.String("url", "https://httpbin.org/ip", "Target URL fetched through each proxy")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-probe timeout")
	maxLatency := flag.Duration("maxlatency", 5*time.Second, "Highest acceptable latency")
	mode := flag.String("mode", "", "Scheduling mode: cooperative or workerpool")
	concurrency := flag.Int("concurrency", 50, "Concurrency ceiling")
	flag.Parse()

	if err := logger.Init(types.LogConf{Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	endpoints := flag.Args()
	if len(endpoints) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				endpoints = append(endpoints, line)
			}
		}
	}
	if len(endpoints) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: probe [flags] endpoint...  (or endpoints on stdin, one per line)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prober := engine.NewNetProber(*testURL, *timeout)
	validator := engine.New(prober, engine.Options{
		Mode:         *mode,
		Concurrency:  *concurrency,
		ProbeTimeout: *timeout,
		MaxLatency:   *maxLatency,
	})

	valid, err := validator.Validate(ctx, endpoints)
	if err != nil {
		logger.Fatal().Err(err).Msg("Probe run interrupted.")
	}

	for _, e := range valid {
		fmt.Println(e)
	}
	logger.Info().Int("valid", len(valid)).Int("total", len(endpoints)).Msg("Probe run finished.")
}
