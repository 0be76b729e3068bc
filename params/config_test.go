package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("HL_API_URL", "https://api.example.test")
	t.Setenv("HL_TIMEOUT_MS", "2500")
	t.Setenv("HL_MAINNET", "true")
	t.Setenv("SIM_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Client.APIURL != "https://api.example.test" {
		t.Errorf("APIURL = %q", cfg.Client.APIURL)
	}
	if cfg.Client.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %v, want 2.5s", cfg.Client.Timeout)
	}
	if !cfg.Client.Mainnet {
		t.Error("Mainnet = false, want true")
	}
	if len(cfg.Simulator.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Simulator.AllowedOrigins)
	}
	if cfg.Client.WsURL != Default().Client.WsURL {
		t.Errorf("WsURL = %q, want default", cfg.Client.WsURL)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HL_JOURNAL_PATH=/tmp/journal-from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HL_JOURNAL_PATH", "")
	os.Unsetenv("HL_JOURNAL_PATH")

	cfg := LoadFromEnv(path)
	if cfg.Storage.JournalPath != "/tmp/journal-from-file" {
		t.Errorf("JournalPath = %q", cfg.Storage.JournalPath)
	}
}

func TestLoadAssets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	yml := "universe:\n  - name: BTC\n    szDecimals: 5\n  - name: ETH\n    szDecimals: 4\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	u, err := LoadAssets(path)
	if err != nil {
		t.Fatalf("LoadAssets() error: %v", err)
	}
	if idx, ok := u.AssetIndex("ETH"); !ok || idx != 1 {
		t.Errorf("AssetIndex(ETH) = %d, %v", idx, ok)
	}
	if got := u.Assets()[0].SzDecimals; got != 5 {
		t.Errorf("BTC szDecimals = %d, want 5", got)
	}
}

func TestLoadAssetsRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	yml := "universe:\n  - name: BTC\n  - name: BTC\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAssets(path); err == nil {
		t.Error("expected error for duplicate asset")
	}
}
