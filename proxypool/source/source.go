package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
	fetchTimeout = 20 * time.Second
)

// Source 接口定义了从代理源获取候选终端的行为。
type Source interface {
	// Fetch 执行抓取操作，返回 scheme://host:port 形式的终端切片。
	// 实现者应只负责抓取和初步解析，不进行验证。
	Fetch(ctx context.Context) ([]string, error)

	// Name 返回来源名称，用于日志记录。
	Name() string
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: fetchTimeout,
	}
}

// fetchBody 发起一次 GET 并整体读回响应体。
func fetchBody(ctx context.Context, client *http.Client, url, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", name, err)
	}
	return body, nil
}
