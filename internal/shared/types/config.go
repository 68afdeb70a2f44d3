package types

// CommonConf 包含服务级别的通用配置。
type CommonConf struct {
	DataDir              string `ini:"data_dir"`
	DataFile             string `ini:"data_file"`
	RefreshIntervalHours int    `ini:"refresh_interval_hours"`
}

// EngineConf 包含验证引擎的全部可调参数。
type EngineConf struct {
	Mode            string `ini:"mode"` // cooperative 或 workerpool
	Concurrency     int    `ini:"concurrency"`
	Workers         int    `ini:"workers"`
	ProbeTimeoutSec int    `ini:"probe_timeout_sec"`
	StallMultiplier int    `ini:"stall_multiplier"`
	MaxLatencyMs    int    `ini:"max_latency_ms"`
	TestURL         string `ini:"test_url"`
}

// SourcesConf 包含按配置启用的通用页面类来源。
type SourcesConf struct {
	TableURL string `ini:"table_url"` // 通用 HTML 表格页
	PageURL  string `ini:"page_url"`  // 任意页面正文扫描
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是 proxyforge 的统一配置结构体。
type Config struct {
	CommonConf  `ini:"common"`
	EngineConf  `ini:"engine"`
	SourcesConf `ini:"sources"`
	LogConf     `ini:"log"`
}
