package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"proxyforge/internal/shared/logger"
)

// TextListSource 抓取纯文本列表源，每行一个代理。行内未带协议时用
// 配置的 scheme 补全。
type TextListSource struct {
	name      string
	url       string
	scheme    string // 为空且行内无协议时按 http 处理
	skipLines int    // 跳过的表头行数
	field     int    // 按空白切分后取第几列，-1 表示整行
	client    *http.Client
}

// NewTextListSource 创建一个逐行解析的文本列表源。
func NewTextListSource(name, url, scheme string) Source {
	return &TextListSource{
		name:   name,
		url:    url,
		scheme: scheme,
		field:  -1,
		client: newHTTPClient(),
	}
}

// NewColumnTextSource 针对带表头和多列的文本清单，例如 roosterkid
// 的列表在第二列放 host:port。
func NewColumnTextSource(name, url, scheme string, skipLines, field int) Source {
	return &TextListSource{
		name:      name,
		url:       url,
		scheme:    scheme,
		skipLines: skipLines,
		field:     field,
		client:    newHTTPClient(),
	}
}

func (s *TextListSource) Name() string {
	return s.name
}

func (s *TextListSource) Fetch(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Source")
	l.Info().Str("source", s.Name()).Msg("Starting fetch...")

	body, err := fetchBody(ctx, s.client, s.url, s.Name())
	if err != nil {
		return nil, err
	}

	var endpoints []string
	lineNo := 0
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		lineNo++
		if lineNo <= s.skipLines {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		token := line
		if s.field >= 0 {
			parts := strings.Fields(line)
			if len(parts) <= s.field {
				continue
			}
			token = parts[s.field]
		}

		endpoint, ok := normalizeEndpoint(token, s.scheme)
		if !ok {
			l.Debug().Str("line", line).Str("source", s.Name()).Msg("Skipping unparsable line.")
			continue
		}
		endpoints = append(endpoints, endpoint)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan response body for %s: %w", s.Name(), err)
	}

	l.Info().Int("count", len(endpoints)).Str("source", s.Name()).Msg("Fetch finished.")
	return endpoints, nil
}

// normalizeEndpoint 把一行代理文本变成完整终端。行内自带协议时把
// socks5 改写成 socks5h，与其它列表源的写法保持一致。
func normalizeEndpoint(token, scheme string) (string, bool) {
	if strings.Contains(token, "://") {
		if strings.HasPrefix(token, "socks5://") {
			token = "socks5h://" + strings.TrimPrefix(token, "socks5://")
		}
		return token, true
	}

	host, port, ok := splitHostPort(token)
	if !ok {
		return "", false
	}
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, port), true
}

// splitHostPort 拆出地址与端口，端口里偶尔混入的非数字字符直接清掉。
func splitHostPort(token string) (string, string, bool) {
	idx := strings.LastIndex(token, ":")
	if idx <= 0 || idx == len(token)-1 {
		return "", "", false
	}
	host := token[:idx]
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, token[idx+1:])
	if digits == "" {
		return "", "", false
	}
	return host, digits, true
}
