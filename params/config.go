package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/hlsdk/pkg/exchange"
)

type Client struct {
	APIURL  string
	WsURL   string
	Timeout time.Duration
	// Mainnet selects the agent source used when signing actions.
	Mainnet bool
	// PrivateKey is hex, with or without 0x. Never log it.
	PrivateKey string
	// VaultAddress is set when trading on behalf of a vault or subaccount.
	VaultAddress string
}

type Storage struct {
	// JournalPath is the pebble directory for the order journal.
	// Empty keeps the journal in memory.
	JournalPath string
}

type Simulator struct {
	ListenAddr     string
	AllowedOrigins []string
}

type Config struct {
	Client     Client
	Storage    Storage
	Simulator  Simulator
	AssetsFile string
	LogFile    string
}

func Default() Config {
	return Config{
		Client: Client{
			APIURL:  "http://localhost:8080",
			WsURL:   "ws://localhost:8080/ws",
			Timeout: 10 * time.Second,
		},
		Simulator: Simulator{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Client.APIURL = getEnv("HL_API_URL", cfg.Client.APIURL)
	cfg.Client.WsURL = getEnv("HL_WS_URL", cfg.Client.WsURL)
	cfg.Client.PrivateKey = getEnv("HL_PRIVATE_KEY", cfg.Client.PrivateKey)
	cfg.Client.VaultAddress = getEnv("HL_VAULT_ADDRESS", cfg.Client.VaultAddress)

	if timeout := os.Getenv("HL_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil {
			cfg.Client.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if mainnet := os.Getenv("HL_MAINNET"); mainnet != "" {
		cfg.Client.Mainnet = mainnet == "true"
	}

	cfg.Storage.JournalPath = getEnv("HL_JOURNAL_PATH", cfg.Storage.JournalPath)
	cfg.AssetsFile = getEnv("HL_ASSETS_FILE", cfg.AssetsFile)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	cfg.Simulator.ListenAddr = getEnv("SIM_LISTEN", cfg.Simulator.ListenAddr)
	if origins := os.Getenv("SIM_ALLOWED_ORIGINS"); origins != "" {
		cfg.Simulator.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// assetsFile is the YAML layout of an asset universe:
//
//	universe:
//	  - name: BTC
//	    szDecimals: 5
type assetsFile struct {
	Universe []exchange.AssetMeta `yaml:"universe"`
}

// LoadAssets reads an asset universe from a YAML file. Order matters:
// the first entry is asset 0.
func LoadAssets(path string) (*exchange.Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets file: %w", err)
	}

	var f assetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse assets file %s: %w", path, err)
	}
	if len(f.Universe) == 0 {
		return nil, fmt.Errorf("assets file %s has an empty universe", path)
	}

	seen := make(map[string]bool, len(f.Universe))
	for _, a := range f.Universe {
		if a.Name == "" {
			return nil, fmt.Errorf("assets file %s: asset without a name", path)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("assets file %s: duplicate asset %s", path, a.Name)
		}
		seen[a.Name] = true
	}

	return exchange.NewUniverse(f.Universe), nil
}

// DefaultAssets is the universe used when no assets file is configured.
func DefaultAssets() *exchange.Universe {
	return exchange.NewUniverse([]exchange.AssetMeta{
		{Name: "BTC", SzDecimals: 5},
		{Name: "ETH", SzDecimals: 4},
		{Name: "SOL", SzDecimals: 2},
	})
}
