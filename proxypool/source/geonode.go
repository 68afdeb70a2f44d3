package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"proxyforge/internal/shared/logger"
)

const (
	geonodeAPI        = "https://proxylist.geonode.com/api/proxy-list?limit=500&page=%d&sort_by=lastChecked&sort_type=desc"
	geonodeMaxPages   = 3
	geonodeMaxRetries = 2
)

// GeonodeSource 调用 Geonode 的公开 API 分页获取代理。
type GeonodeSource struct {
	api    string
	client *http.Client
}

func NewGeonodeSource() Source {
	return &GeonodeSource{
		api:    geonodeAPI,
		client: newHTTPClient(),
	}
}

func (s *GeonodeSource) Name() string {
	return "proxylist.geonode.com"
}

// geonodeEntry 对应 API 返回的单条代理记录。
type geonodeEntry struct {
	IP        string   `json:"ip"`
	Port      string   `json:"port"`
	Protocols []string `json:"protocols"`
}

type geonodeResponse struct {
	Data []geonodeEntry `json:"data"`
}

func (s *GeonodeSource) Fetch(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Source")
	l.Info().Str("source", s.Name()).Msg("Starting fetch...")

	var endpoints []string
	for page := 1; page <= geonodeMaxPages; page++ {
		url := fmt.Sprintf(s.api, page)

		var data geonodeResponse
		fetched := false
		for attempt := 1; attempt <= geonodeMaxRetries; attempt++ {
			body, err := fetchBody(ctx, s.client, url, s.Name())
			if err != nil {
				if ctx.Err() != nil {
					return endpoints, ctx.Err()
				}
				l.Warn().Err(err).Int("page", page).Int("attempt", attempt).Str("source", s.Name()).Msg("Page fetch failed.")
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return endpoints, ctx.Err()
				}
				continue
			}
			if err := json.Unmarshal(body, &data); err != nil {
				l.Warn().Err(err).Int("page", page).Str("source", s.Name()).Msg("Failed to unmarshal page.")
				break
			}
			fetched = true
			break
		}
		if !fetched {
			continue
		}

		// 空页说明已经翻到尽头
		if len(data.Data) == 0 {
			break
		}

		for _, item := range data.Data {
			if item.IP == "" || item.Port == "" || len(item.Protocols) == 0 {
				continue
			}
			endpoints = append(endpoints, fmt.Sprintf("%s://%s:%s", item.Protocols[0], item.IP, item.Port))
		}
		l.Debug().Int("page", page).Int("count", len(data.Data)).Str("source", s.Name()).Msg("Page fetched.")
	}

	l.Info().Int("count", len(endpoints)).Str("source", s.Name()).Msg("Fetch finished.")
	return endpoints, nil
}
