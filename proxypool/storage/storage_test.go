package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"proxyforge/internal/shared/logger"
	"proxyforge/internal/shared/types"
)

func TestMain(m *testing.M) {
	logger.Init(types.LogConf{Level: "error"})
	os.Exit(m.Run())
}

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "proxies.json")
	s := NewJSONStorage(path)

	endpoints := []string{"socks5://5.6.7.8:1080", "http://1.2.3.4:8080"}
	if err := s.Save(endpoints); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}

	want := []string{"http://1.2.3.4:8080", "socks5://5.6.7.8:1080"}
	if !reflect.DeepEqual(loaded, want) {
		t.Errorf("Expected sorted endpoints %v, but got %v", want, loaded)
	}
}

func TestJSONStorage_SnapshotMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.json")
	s := NewJSONStorage(path)

	if err := s.Save([]string{"http://1.2.3.4:8080"}); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot file: %v", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Snapshot file is not valid JSON: %v", err)
	}
	if snap.Version != "1.0" {
		t.Errorf("Expected version '1.0', but got '%s'", snap.Version)
	}
	if snap.TotalProxies != 1 {
		t.Errorf("Expected total_proxies 1, but got %d", snap.TotalProxies)
	}
	if snap.LastUpdated == "" {
		t.Errorf("Expected last_updated to be set")
	}
}

func TestJSONStorage_LoadMissingFile(t *testing.T) {
	s := NewJSONStorage(filepath.Join(t.TempDir(), "nope.json"))

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Expected a missing file to load as an empty pool, but got error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected an empty pool, but got %v", loaded)
	}
}

func TestJSONStorage_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	s := NewJSONStorage(path)
	if _, err := s.Load(); err == nil {
		t.Errorf("Expected an error for a corrupt data file")
	}
}
