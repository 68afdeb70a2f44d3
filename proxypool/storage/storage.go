package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"proxyforge/internal/shared/logger"
)

const snapshotVersion = "1.0"

// snapshot 是落盘的 JSON 结构，与既有数据文件保持兼容。
type snapshot struct {
	Version      string   `json:"version"`
	LastUpdated  string   `json:"last_updated"`
	TotalProxies int      `json:"total_proxies"`
	Proxies      []string `json:"proxies"`
}

// Storage 接口定义了代理数据持久化的行为。
type Storage interface {
	Load() ([]string, error)
	Save(endpoints []string) error
}

// JSONStorage 实现了 Storage 接口，把终端列表存成带元信息的 JSON
// 快照文件。
type JSONStorage struct {
	filePath string
	mu       sync.RWMutex
}

// NewJSONStorage 创建一个新的 JSONStorage 实例。
func NewJSONStorage(filePath string) *JSONStorage {
	return &JSONStorage{
		filePath: filePath,
	}
}

// Load 从快照文件加载终端列表。
func (s *JSONStorage) Load() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := logger.WithComponent("ProxyPool/Storage")

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l.Info().Str("path", s.filePath).Msg("Proxy data file not found, starting with an empty pool.")
			return nil, nil
		}
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse proxy data file %s: %w", s.filePath, err)
	}

	l.Info().Int("count", len(snap.Proxies)).Msg("Successfully loaded proxies from file.")
	return snap.Proxies, nil
}

// Save 把终端列表排序后写入快照文件，目录不存在时先创建。
func (s *JSONStorage) Save(endpoints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	sorted := make([]string, len(endpoints))
	copy(sorted, endpoints)
	sort.Strings(sorted)

	snap := snapshot{
		Version:      snapshotVersion,
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
		TotalProxies: len(sorted),
		Proxies:      sorted,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return err
	}

	l.Info().Int("count", len(sorted)).Msg("Successfully saved proxies to file.")
	return nil
}
