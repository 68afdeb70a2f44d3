package app

import (
	"context"
	"path/filepath"
	"time"

	"proxyforge/internal/engine"
	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
	manager "proxyforge/proxypool"
	"proxyforge/proxypool/storage"
)

// App 组装配置、验证引擎与代理池管理器。
type App struct {
	cfg     *types.Config
	manager *manager.Manager
}

// New 根据配置装配采集服务，空缺的配置项用默认值补齐。
func New(cfg *types.Config) *App {
	dataDir := cfg.CommonConf.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	dataFile := cfg.CommonConf.DataFile
	if dataFile == "" {
		dataFile = "proxies.json"
	}
	testURL := cfg.EngineConf.TestURL
	if testURL == "" {
		testURL = "https://httpbin.org/ip"
	}
	probeTimeout := time.Duration(cfg.EngineConf.ProbeTimeoutSec) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	prober := engine.NewNetProber(testURL, probeTimeout)
	validator := engine.New(prober, engine.Options{
		Mode:            cfg.EngineConf.Mode,
		Concurrency:     cfg.EngineConf.Concurrency,
		Workers:         cfg.EngineConf.Workers,
		ProbeTimeout:    probeTimeout,
		StallMultiplier: cfg.EngineConf.StallMultiplier,
		MaxLatency:      time.Duration(cfg.EngineConf.MaxLatencyMs) * time.Millisecond,
	})

	proxiesPath := filepath.Join(dataDir, dataFile)
	proxyStorage := storage.NewJSONStorage(proxiesPath)

	return &App{
		cfg:     cfg,
		manager: manager.NewManager(cfg, proxyStorage, validator),
	}
}

// RunOnce 执行单轮采集验证周期后返回。
func (a *App) RunOnce(ctx context.Context) error {
	return a.manager.RunCycle(ctx)
}

// Start 启动常驻调度循环。
func (a *App) Start() {
	a.manager.Start()
}

// Stop 停止调度并等待在途周期退出。
func (a *App) Stop() {
	a.manager.Stop()
	logger.Info().Msg("Application stopped.")
}

// Count 返回当前可用代理数量。
func (a *App) Count() int {
	return a.manager.Count()
}
