package manager

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sort"
	"testing"
	"time"

	"proxyforge/internal/engine"
	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
)

func TestMain(m *testing.M) {
	logger.Init(types.LogConf{Level: "error"})
	os.Exit(m.Run())
}

// mockSource returns a fixed endpoint list.
type mockSource struct {
	name      string
	endpoints []string
	err       error
}

func (s *mockSource) Name() string { return s.name }

func (s *mockSource) Fetch(_ context.Context) ([]string, error) {
	return s.endpoints, s.err
}

// memoryStorage keeps the snapshot in memory and counts saves. Like the
// JSON storage it persists endpoints in sorted order.
type memoryStorage struct {
	data  []string
	saves int
}

func (s *memoryStorage) Load() ([]string, error) { return s.data, nil }

func (s *memoryStorage) Save(endpoints []string) error {
	s.data = append([]string(nil), endpoints...)
	sort.Strings(s.data)
	s.saves++
	return nil
}

// denyListProber rejects the listed endpoints and accepts the rest.
type denyListProber struct {
	deny map[string]bool
}

func (p *denyListProber) Probe(_ context.Context, endpoint string) engine.Result {
	if p.deny[endpoint] {
		return engine.Result{}
	}
	return engine.Result{Usable: true, Latency: 10 * time.Millisecond, Measured: true}
}

func newTestManager(store *memoryStorage, prober engine.Prober) *Manager {
	return &Manager{
		cfg:       &types.Config{},
		storage:   store,
		validator: engine.New(prober, engine.Options{Concurrency: 4}),
		stopChan:  make(chan struct{}),
	}
}

// --- Test Cases ---

func TestRunCycle_MergesAndPersists(t *testing.T) {
	store := &memoryStorage{data: []string{"http://old:1"}}
	prober := &denyListProber{deny: map[string]bool{"http://old:1": true}}
	m := newTestManager(store, prober)
	m.AddSource(&mockSource{name: "s1", endpoints: []string{"http://a:1", "http://b:2"}})
	m.AddSource(&mockSource{name: "s2", endpoints: []string{"http://b:2", "http://c:3"}})

	if err := m.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() returned an error: %v", err)
	}

	// 新旧来源合并去重后验证，失效的存量代理被淘汰
	want := []string{"http://a:1", "http://b:2", "http://c:3"}
	if !reflect.DeepEqual(store.data, want) {
		t.Errorf("Expected persisted pool %v, but got %v", want, store.data)
	}
	if store.saves != 1 {
		t.Errorf("Expected exactly one save, but got %d", store.saves)
	}
	if m.Count() != 3 {
		t.Errorf("Expected pool count 3, but got %d", m.Count())
	}
}

func TestRunCycle_SourceFailureTolerated(t *testing.T) {
	store := &memoryStorage{}
	m := newTestManager(store, &denyListProber{})
	m.AddSource(&mockSource{name: "broken", err: errors.New("connection reset")})
	m.AddSource(&mockSource{name: "working", endpoints: []string{"http://a:1"}})

	if err := m.RunCycle(context.Background()); err != nil {
		t.Fatalf("Expected a failing source to be tolerated, but got error: %v", err)
	}

	want := []string{"http://a:1"}
	if !reflect.DeepEqual(store.data, want) {
		t.Errorf("Expected persisted pool %v, but got %v", want, store.data)
	}
}

func TestRunCycle_NoCandidates(t *testing.T) {
	store := &memoryStorage{}
	m := newTestManager(store, &denyListProber{})

	if err := m.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() returned an error: %v", err)
	}
	if store.saves != 0 {
		t.Errorf("Expected no save for an empty cycle, but got %d", store.saves)
	}
}

func TestRunCycle_InterruptionSkipsSave(t *testing.T) {
	store := &memoryStorage{}
	m := newTestManager(store, &denyListProber{})
	m.AddSource(&mockSource{name: "s1", endpoints: []string{"http://a:1"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, but got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("Expected no save after an interrupted cycle, but got %d", store.saves)
	}
}

func TestNewManager_RegistersSources(t *testing.T) {
	store := &memoryStorage{}
	validator := engine.New(&denyListProber{}, engine.Options{})

	m := NewManager(&types.Config{}, store, validator)
	if len(m.sources) != 9 {
		t.Errorf("Expected 9 builtin sources, but got %d", len(m.sources))
	}

	cfg := &types.Config{}
	cfg.SourcesConf.TableURL = "http://table.example/list"
	cfg.SourcesConf.PageURL = "http://page.example/free"
	m = NewManager(cfg, store, validator)
	if len(m.sources) != 11 {
		t.Errorf("Expected 11 sources with table and page URLs set, but got %d", len(m.sources))
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe(
		[]string{"http://b:2", "http://a:1"},
		[]string{"http://a:1", "http://c:3"},
		nil,
	)
	want := []string{"http://a:1", "http://b:2", "http://c:3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, but got %v", want, got)
	}
}

func TestStartStop(t *testing.T) {
	store := &memoryStorage{}
	m := newTestManager(store, &denyListProber{})
	m.cfg.CommonConf.RefreshIntervalHours = 1

	m.Start()
	m.Stop()
	// 重复停止不应阻塞或崩溃
	m.Stop()
}
