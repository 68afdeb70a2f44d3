package engine

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNetProber_UsableProxy(t *testing.T) {
	// 测试服务器同时扮演代理与目标：收到绝对地址的请求直接应答
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"origin": "203.0.113.9"}`))
	}))
	defer ts.Close()

	p := NewNetProber("http://origin.test/ip", 2*time.Second)
	res := p.Probe(context.Background(), ts.URL)

	if !res.Usable {
		t.Fatalf("Expected a 200 response through the proxy to be usable")
	}
	if !res.Measured || res.Latency <= 0 {
		t.Errorf("Expected a measured latency, but got measured=%v latency=%s", res.Measured, res.Latency)
	}
}

func TestNetProber_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p := NewNetProber("http://origin.test/ip", 2*time.Second)
	res := p.Probe(context.Background(), ts.URL)

	if res.Usable {
		t.Errorf("Expected a 502 response to be unusable")
	}
	if !res.Measured {
		t.Errorf("Expected latency to be measured when any response arrived")
	}
}

func TestNetProber_ConnectionRefused(t *testing.T) {
	// 占一个端口再关掉，保证无人监听
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to grab a port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := NewNetProber("http://origin.test/ip", 500*time.Millisecond)
	res := p.Probe(context.Background(), addr)

	if res.Usable {
		t.Errorf("Expected a refused connection to be unusable")
	}
	if res.Measured {
		t.Errorf("Expected no latency on a transport failure")
	}
}

func TestNetProber_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	p := NewNetProber("http://origin.test/ip", 50*time.Millisecond)
	res := p.Probe(context.Background(), ts.URL)

	if res.Usable || res.Measured {
		t.Errorf("Expected a timed-out probe to be unusable and unmeasured, but got %+v", res)
	}
}

func TestEndpointHostPort(t *testing.T) {
	cases := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{"socks5://203.0.113.9:1080", "203.0.113.9:1080", false},
		{"socks4a://203.0.113.9:4145", "203.0.113.9:4145", false},
		{"socks5://", "", true},
	}
	for _, tc := range cases {
		got, err := endpointHostPort(tc.endpoint)
		if tc.wantErr {
			if err == nil {
				t.Errorf("endpointHostPort(%q): expected an error", tc.endpoint)
			}
			continue
		}
		if err != nil {
			t.Errorf("endpointHostPort(%q) failed: %v", tc.endpoint, err)
			continue
		}
		if got != tc.want {
			t.Errorf("endpointHostPort(%q): expected %q, but got %q", tc.endpoint, tc.want, got)
		}
	}
}
