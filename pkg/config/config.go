package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	APIKeyEnv  = "GROQ_API_KEY"
	BaseURLEnv = "NEWTON_BASE_URL"
)

const defaultTemperature = 0.7

var ErrMissingCredential = errors.New("missing " + APIKeyEnv)

// SetupInstruction is shown when no credential could be found.
const SetupInstruction = "⚠️ Developer Setup Required: Add '" + APIKeyEnv + "' to your environment, .env or secrets.toml."

type Config struct {
	LLM struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		TextModel   string        `yaml:"text_model"`
		VisionModel string        `yaml:"vision_model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature *float64      `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Search struct {
		Enabled    *bool         `yaml:"enabled"`
		Endpoint   string        `yaml:"endpoint"`
		MaxResults int           `yaml:"max_results"`
		RateLimit  float64       `yaml:"rate_limit"`
		Timeout    time.Duration `yaml:"timeout"`
		UserAgent  string        `yaml:"user_agent"`
	} `yaml:"search"`

	UI struct {
		Streaming *bool  `yaml:"streaming"`
		Cursor    string `yaml:"cursor"`
	} `yaml:"ui"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func (c *Config) SearchEnabled() bool {
	return c.Search.Enabled == nil || *c.Search.Enabled
}

func (c *Config) Streaming() bool {
	return c.UI.Streaming == nil || *c.UI.Streaming
}

// Temperature is 0.7 unless set; an explicit 0 is kept.
func (c *Config) Temperature() float64 {
	if c.LLM.Temperature == nil {
		return defaultTemperature
	}
	return *c.LLM.Temperature
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/newton/config.yaml"),
			"/etc/newton/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := mergeWithSecrets(&config); err != nil {
		return nil, err
	}
	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	if err := mergeWithSecrets(config); err != nil {
		return nil, err
	}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.LLM.TextModel == "" {
		config.LLM.TextModel = "llama-3.3-70b-versatile"
	}
	if config.LLM.VisionModel == "" {
		config.LLM.VisionModel = "llama-3.2-11b-vision-preview"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4096
	}
	if config.LLM.Temperature == nil {
		temperature := defaultTemperature
		config.LLM.Temperature = &temperature
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 2 * time.Minute
	}

	if config.Search.Endpoint == "" {
		config.Search.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 2
	}
	if config.Search.RateLimit == 0 {
		config.Search.RateLimit = 1.0
	}
	if config.Search.Timeout == 0 {
		config.Search.Timeout = 10 * time.Second
	}

	if config.UI.Cursor == "" {
		config.UI.Cursor = "▌"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

// mergeWithSecrets reads the credential from secrets.toml, then from a .env
// file. Environment variables applied afterwards take precedence over both.
func mergeWithSecrets(config *Config) error {
	for _, loc := range secretsLocations() {
		key, err := readSecret(loc, APIKeyEnv)
		if err != nil {
			return err
		}
		if key != "" {
			config.LLM.APIKey = key
			break
		}
	}

	env, err := godotenv.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	if key := env[APIKeyEnv]; key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := env[BaseURLEnv]; baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	return nil
}

func secretsLocations() []string {
	return []string{
		"secrets.toml",
		filepath.Join(".streamlit", "secrets.toml"),
		filepath.Join(os.Getenv("HOME"), ".config/newton/secrets.toml"),
	}
}

func readSecret(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading secrets file: %w", err)
	}

	secrets := map[string]any{}
	if err := toml.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("error parsing secrets file %s: %w", path, err)
	}
	value, _ := secrets[key].(string)
	return value, nil
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv(APIKeyEnv); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv(BaseURLEnv); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
}
