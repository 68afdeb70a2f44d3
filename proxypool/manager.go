package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"proxyforge/internal/engine"
	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
	"proxyforge/proxypool/source"
	"proxyforge/proxypool/storage"
)

const (
	roosterkidSOCKS4 = "https://raw.githubusercontent.com/roosterkid/openproxylist/main/SOCKS4.txt"
	roosterkidSOCKS5 = "https://raw.githubusercontent.com/roosterkid/openproxylist/main/SOCKS5.txt"
	roosterkidHTTPS  = "https://raw.githubusercontent.com/roosterkid/openproxylist/main/HTTPS.txt"
	hookzofSocks5    = "https://raw.githubusercontent.com/hookzof/socks5_list/master/proxy.txt"
	proxiflyAll      = "https://cdn.jsdelivr.net/gh/proxifly/free-proxy-list@main/proxies/all/data.txt"
	proxyscrapeAPI   = "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=%s&timeout=10000&country=all&ssl=all&anonymity=all"
)

// Manager 是代理池模块的总控制器：抓取、验证、持久化。
type Manager struct {
	cfg       *types.Config
	storage   storage.Storage
	sources   []source.Source
	validator *engine.Validator
	endpoints []string // 最近一轮验证通过的代理
	mu        sync.RWMutex

	// 调度器与生命周期管理
	refreshTicker *time.Ticker
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewManager 创建并初始化代理池管理器。
func NewManager(cfg *types.Config, store storage.Storage, validator *engine.Validator) *Manager {
	m := &Manager{
		cfg:       cfg,
		storage:   store,
		validator: validator,
		stopChan:  make(chan struct{}),
	}

	m.AddSource(source.NewColumnTextSource("roosterkid-socks4", roosterkidSOCKS4, "socks4", 12, 1))
	m.AddSource(source.NewColumnTextSource("roosterkid-socks5", roosterkidSOCKS5, "socks5h", 12, 1))
	m.AddSource(source.NewColumnTextSource("roosterkid-https", roosterkidHTTPS, "https", 12, 1))
	m.AddSource(source.NewTextListSource("hookzof-socks5", hookzofSocks5, "socks5"))
	m.AddSource(source.NewTextListSource("proxifly-all", proxiflyAll, ""))
	m.AddSource(source.NewTextListSource("proxyscrape-http", fmt.Sprintf(proxyscrapeAPI, "http"), "http"))
	m.AddSource(source.NewTextListSource("proxyscrape-socks4", fmt.Sprintf(proxyscrapeAPI, "socks4"), "socks4"))
	m.AddSource(source.NewTextListSource("proxyscrape-socks5", fmt.Sprintf(proxyscrapeAPI, "socks5"), "socks5h"))
	m.AddSource(source.NewGeonodeSource())

	if cfg.SourcesConf.TableURL != "" {
		m.AddSource(source.NewHTMLTableSource("table-page", cfg.SourcesConf.TableURL, "http"))
	}
	if cfg.SourcesConf.PageURL != "" {
		m.AddSource(source.NewPageScanSource("scan-page", cfg.SourcesConf.PageURL, "http"))
	}

	return m
}

// AddSource 添加一个代理来源到管理器。
func (m *Manager) AddSource(s source.Source) {
	m.sources = append(m.sources, s)
}

// RunCycle 执行一个完整的"抓取 -> 合并 -> 验证 -> 存储"周期。被中断
// 时直接返回错误，不落盘。
func (m *Manager) RunCycle(ctx context.Context) error {
	l := logger.WithComponent("ProxyPool/Manager")
	l.Info().Msg("Starting new collect and validate cycle...")

	existing, err := m.storage.Load()
	if err != nil {
		l.Error().Err(err).Msg("Failed to load proxies from storage. Starting with an empty pool.")
	}

	fetched := m.collect(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	candidates := dedupe(existing, fetched)
	if len(candidates) == 0 {
		l.Info().Msg("No candidates to validate in this cycle.")
		return nil
	}
	l.Info().
		Int("fetched", len(fetched)).
		Int("existing", len(existing)).
		Int("candidates", len(candidates)).
		Msg("Candidate pool assembled.")

	valid, err := m.validator.Validate(ctx, candidates)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.endpoints = valid
	m.mu.Unlock()

	if err := m.storage.Save(valid); err != nil {
		l.Error().Err(err).Msg("Failed to save proxies to storage after cycle.")
		return err
	}

	l.Info().Int("valid", len(valid)).Msg("Collect and validate cycle finished.")
	return nil
}

// collect 并发抓取所有来源并汇总结果，单个来源失败只告警。
func (m *Manager) collect(ctx context.Context) []string {
	l := logger.WithComponent("ProxyPool/Manager")

	var wg sync.WaitGroup
	fetchedChan := make(chan []string, len(m.sources))

	for _, s := range m.sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			endpoints, err := src.Fetch(ctx)
			if err != nil {
				l.Warn().Err(err).Str("source", src.Name()).Msg("Source failed.")
				return
			}
			if len(endpoints) > 0 {
				fetchedChan <- endpoints
			}
		}(s)
	}

	wg.Wait()
	close(fetchedChan)

	var all []string
	for endpoints := range fetchedChan {
		all = append(all, endpoints...)
	}
	return all
}

// dedupe 合并多个列表，按字典序去重排序。
func dedupe(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, e := range list {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

// Start 启动管理器的后台调度循环，启动后立即执行第一轮周期。
func (m *Manager) Start() {
	l := logger.WithComponent("ProxyPool/Manager")
	l.Info().Msg("Manager starting...")

	refreshInterval := time.Duration(m.cfg.CommonConf.RefreshIntervalHours) * time.Hour
	if refreshInterval <= 0 {
		refreshInterval = 6 * time.Hour
	}
	m.refreshTicker = time.NewTicker(refreshInterval)
	l.Info().Dur("refresh_interval", refreshInterval).Msg("Scheduler initialized.")

	m.wg.Add(1)
	go m.schedulerLoop()
}

// schedulerLoop 是核心的调度循环，监听 Ticker 和停止信号。
func (m *Manager) schedulerLoop() {
	defer m.wg.Done()
	l := logger.WithComponent("ProxyPool/Manager")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-m.stopChan
		cancel()
	}()

	if err := m.RunCycle(ctx); err != nil {
		l.Warn().Err(err).Msg("Initial cycle aborted.")
	}

	for {
		select {
		case <-m.refreshTicker.C:
			l.Info().Msg("Refresh ticker triggered.")
			if err := m.RunCycle(ctx); err != nil {
				l.Warn().Err(err).Msg("Cycle aborted.")
			}

		case <-m.stopChan:
			l.Info().Msg("Stop signal received. Shutting down scheduler.")
			m.refreshTicker.Stop()
			return
		}
	}
}

// Stop 优雅地停止调度循环，等待在途周期退出。
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	logger.Info().Msg("ProxyPool Manager gracefully stopped.")
}

// Endpoints 返回最近一轮验证通过的代理副本。
func (m *Manager) Endpoints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.endpoints))
	copy(out, m.endpoints)
	return out
}

// Count 返回当前可用代理数量。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.endpoints)
}
