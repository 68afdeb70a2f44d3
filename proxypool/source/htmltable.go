package source

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"proxyforge/internal/shared/logger"
)

// HTMLTableSource 抓取以表格布局的代理页面，取每行前两列作为地址和
// 端口。
type HTMLTableSource struct {
	name   string
	url    string
	scheme string
	client *http.Client
}

func NewHTMLTableSource(name, url, scheme string) Source {
	return &HTMLTableSource{
		name:   name,
		url:    url,
		scheme: scheme,
		client: newHTTPClient(),
	}
}

func (s *HTMLTableSource) Name() string {
	return s.name
}

func (s *HTMLTableSource) Fetch(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Source")
	l.Info().Str("source", s.Name()).Msg("Starting fetch...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.Name(), err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page for %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, s.Name())
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", s.Name(), err)
	}

	var endpoints []string
	doc.Find("table tbody tr").Each(func(j int, sel *goquery.Selection) {
		ip := strings.TrimSpace(sel.Find("td").Eq(0).Text())
		portStr := strings.TrimSpace(sel.Find("td").Eq(1).Text())

		if ip == "" || portStr == "" {
			return
		}
		if net.ParseIP(ip) == nil {
			return
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			l.Warn().Str("ip", ip).Str("port", portStr).Str("source", s.Name()).Msg("Failed to parse port, skipping.")
			return
		}

		endpoints = append(endpoints, fmt.Sprintf("%s://%s:%d", s.scheme, ip, port))
	})

	l.Info().Int("count", len(endpoints)).Str("source", s.Name()).Msg("Fetch finished.")
	return endpoints, nil
}
