package source

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/gocolly/colly/v2"

	"proxyforge/internal/shared/logger"
)

var hostPortPattern = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{1,3}){3}):(\d{2,5})\b`)

// PageScanSource 不解析页面结构，直接用正则从响应文本里扫出全部
// ip:port 候选。适合表格标记混乱或经常改版的站点。
type PageScanSource struct {
	name   string
	url    string
	scheme string
}

func NewPageScanSource(name, url, scheme string) Source {
	return &PageScanSource{
		name:   name,
		url:    url,
		scheme: scheme,
	}
}

func (s *PageScanSource) Name() string {
	return s.name
}

func (s *PageScanSource) Fetch(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Source")
	l.Info().Str("source", s.Name()).Msg("Starting fetch...")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// collector 每次新建，回调不会在多次抓取之间累积
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(fetchTimeout)

	var endpoints []string
	var scrapeErr error
	var mu sync.Mutex

	c.OnResponse(func(r *colly.Response) {
		matches := hostPortPattern.FindAllSubmatch(r.Body, -1)
		mu.Lock()
		defer mu.Unlock()
		for _, m := range matches {
			endpoints = append(endpoints, fmt.Sprintf("%s://%s:%s", s.scheme, m[1], m[2]))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Error().Err(err).Int("status_code", r.StatusCode).Str("url", r.Request.URL.String()).Msg("Fetch request failed.")
		scrapeErr = err
	})

	c.Visit(s.url)
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}

	l.Info().Int("count", len(endpoints)).Str("source", s.Name()).Msg("Fetch finished.")
	return endpoints, nil
}
