package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. Secrets can be
// overridden through environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			BaseURL         string   `yaml:"base_url"`
			APIKey          string   `yaml:"api_key"`
			CoinIDs         []string `yaml:"coin_ids"`
			PollIntervalSec int      `yaml:"poll_interval_sec"`
		} `yaml:"coingecko"`
	} `yaml:"api"`

	Auth struct {
		Firebase struct {
			APIKey       string `yaml:"api_key"`
			ProjectID    string `yaml:"project_id"`
			IdentityURL  string `yaml:"identity_url"`
			TokenURL     string `yaml:"token_url"`
			FirestoreURL string `yaml:"firestore_url"`
		} `yaml:"firebase"`
		Google struct {
			WebClientID  string `yaml:"web_client_id"`
			RedirectPort int    `yaml:"redirect_port"`
		} `yaml:"google"`
	} `yaml:"auth"`

	UI struct {
		MessageTTLMS int `yaml:"message_ttl_ms"`
	} `yaml:"ui"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.CoinGecko.BaseURL, "http://") && !strings.HasPrefix(c.API.CoinGecko.BaseURL, "https://") {
		return fmt.Errorf("invalid CoinGecko base URL: %s", c.API.CoinGecko.BaseURL)
	}
	if len(c.API.CoinGecko.CoinIDs) == 0 {
		return fmt.Errorf("at least one coin id is required")
	}
	if c.API.CoinGecko.PollIntervalSec <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Auth.Firebase.APIKey == "" {
		return fmt.Errorf("firebase api key is required")
	}
	// The clients append the API version themselves; a configured /v1
	// suffix would double the segment on every request.
	for _, u := range []string{c.Auth.Firebase.IdentityURL, c.Auth.Firebase.TokenURL, c.Auth.Firebase.FirestoreURL} {
		if strings.HasSuffix(strings.TrimRight(u, "/"), "/v1") {
			return fmt.Errorf("endpoint URL must not include the version segment: %s", u)
		}
	}
	if c.Auth.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase project id is required")
	}
	if c.UI.MessageTTLMS <= 0 {
		return fmt.Errorf("message ttl must be positive")
	}
	return nil
}

// overrideWithEnv overrides secret values from the environment when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("CRYPTOFOLIO_COINGECKO_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
	if key := os.Getenv("CRYPTOFOLIO_FIREBASE_KEY"); key != "" {
		cfg.Auth.Firebase.APIKey = key
	}
	if id := os.Getenv("CRYPTOFOLIO_GOOGLE_CLIENT_ID"); id != "" {
		cfg.Auth.Google.WebClientID = id
	}
}
