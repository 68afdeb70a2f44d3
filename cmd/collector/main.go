package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"proxyforge/internal/app"
	"proxyforge/internal/shared/config"
	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	once := flag.Bool("once", false, "Run a single collect and validate cycle, then exit")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "proxyforge.ini")

	// 1. 加载 .ini 行为配置
	cfg := new(types.Config)
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 创建并运行采集服务
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)

	if *once {
		if err := a.RunOnce(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Collect cycle failed.")
		}
		return
	}

	a.Start()
	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received.")
	a.Stop()
}
