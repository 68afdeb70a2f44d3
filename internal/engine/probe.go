package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"

	"proxyforge/internal/shared/logger"
)

const maxBodyProbeBytes = 4096

// Result 是一次探测的结果。Latency 仅在 Measured 为 true 时有意义：
// 只要目标返回了响应（无论状态码）就会记录耗时，连接失败或超时则没有。
type Result struct {
	Usable   bool
	Latency  time.Duration
	Measured bool
}

// Prober 对单个代理终端执行一次可用性探测。实现不得让错误越过该边界，
// 所有失败都退化为 Usable=false 的结果。
type Prober interface {
	Probe(ctx context.Context, endpoint string) Result
}

// originBody 对应测试目标返回的 JSON 结构（例如 httpbin.org/ip）。
type originBody struct {
	Origin string `json:"origin"`
}

// NetProber 通过真实网络请求探测代理终端：经由该终端访问固定的测试
// 地址，以状态码和耗时判定可用性。
type NetProber struct {
	testURL string
	timeout time.Duration
}

func NewNetProber(testURL string, timeout time.Duration) *NetProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &NetProber{testURL: testURL, timeout: timeout}
}

// Probe 按协议前缀分发到对应的传输方式。终端字符串除此之外不做任何
// 解析或规范化。
func (p *NetProber) Probe(ctx context.Context, endpoint string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(endpoint, "socks5://"), strings.HasPrefix(endpoint, "socks5h://"):
		return p.probeSocks5(ctx, endpoint)
	case strings.HasPrefix(endpoint, "socks4://"), strings.HasPrefix(endpoint, "socks4a://"):
		return p.probeSocks4(ctx, endpoint)
	default:
		return p.probeHTTP(ctx, endpoint)
	}
}

// probeHTTP 通过 HTTP/HTTPS 代理请求测试地址。
func (p *NetProber) probeHTTP(ctx context.Context, endpoint string) Result {
	// 没有协议头的裸 host:port 默认按 http 代理处理
	proxyAddr := endpoint
	if !strings.Contains(proxyAddr, "://") {
		proxyAddr = "http://" + proxyAddr
	}
	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return Result{}
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	transport := &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		IdleConnTimeout:       p.timeout,
		TLSHandshakeTimeout:   p.timeout / 2,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return p.doRequest(ctx, transport)
}

// probeSocks5 通过 SOCKS5/SOCKS5h 代理请求测试地址。
func (p *NetProber) probeSocks5(ctx context.Context, endpoint string) Result {
	hostPort, err := endpointHostPort(endpoint)
	if err != nil {
		return Result{}
	}

	dialer, err := proxy.SOCKS5("tcp", hostPort, nil, &net.Dialer{Timeout: p.timeout})
	if err != nil {
		return Result{}
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return Result{}
	}

	transport := &http.Transport{
		DialContext:         contextDialer.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout: p.timeout / 2,
	}

	return p.doRequest(ctx, transport)
}

// probeSocks4 通过 SOCKS4/SOCKS4a 代理请求测试地址。h12.io/socks 的
// 拨号函数不感知 context，超时由其 URI 参数控制。
func (p *NetProber) probeSocks4(ctx context.Context, endpoint string) Result {
	hostPort, err := endpointHostPort(endpoint)
	if err != nil {
		return Result{}
	}

	scheme := "socks4"
	if strings.HasPrefix(endpoint, "socks4a://") {
		scheme = "socks4a"
	}
	dial := socks.Dial(fmt.Sprintf("%s://%s?timeout=%s", scheme, hostPort, p.timeout))

	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return dial(network, addr)
		},
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout: p.timeout / 2,
	}

	return p.doRequest(ctx, transport)
}

// doRequest 执行一次 GET 并按状态码与耗时生成结果。
func (p *NetProber) doRequest(ctx context.Context, transport *http.Transport) Result {
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.testURL, nil)
	if err != nil {
		return Result{}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Result{}
	}
	defer resp.Body.Close()

	res := Result{Latency: time.Since(start), Measured: true}
	if resp.StatusCode != http.StatusOK {
		return res
	}
	res.Usable = true

	// 尽力检查响应体的 origin 字段，仅用于诊断，不影响判定。
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyProbeBytes))
	if err != nil {
		return res
	}
	var ob originBody
	if err := json.Unmarshal(body, &ob); err != nil || ob.Origin == "" {
		l := logger.WithComponent("Engine")
		l.Debug().Str("url", p.testURL).Msg("Test response missing origin marker.")
	}

	return res
}

// endpointHostPort 仅提取 host:port 用于建立连接。
func endpointHostPort(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, nil
}
