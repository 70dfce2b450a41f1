package config

import (
	"cmp"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the process-wide configuration, loaded once at startup and
// passed by reference into the components that need it.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Index    IndexConfig    `yaml:"index,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Data     DataConfig     `yaml:"data,omitempty"`
	Approval ApprovalConfig `yaml:"approval,omitempty"`
}

// ModelConfig describes the completion service backing the decision engine.
type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
}

// StoreConfig locates the run store. An empty path selects the in-memory
// store.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// IndexConfig locates the email history search index. An empty path selects
// an in-memory index.
type IndexConfig struct {
	Path string `yaml:"path,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// DataConfig locates the local email/calendar data files used by the
// builtin tool services.
type DataConfig struct {
	MailboxPath  string `yaml:"mailbox_path,omitempty"`
	OutboxPath   string `yaml:"outbox_path,omitempty"`
	CalendarPath string `yaml:"calendar_path,omitempty"`
}

// ApprovalConfig overrides which tools are approval-gated. The builtin
// defaults gate send-mail, create-calendar-event and manage_email.
type ApprovalConfig struct {
	Require []string `yaml:"require,omitempty"`
	Exempt  []string `yaml:"exempt,omitempty"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file\n%s", yaml.FormatError(err, true, true))
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a usable configuration without a config file: in-memory
// stores and an OpenAI-compatible model endpoint taken from the
// environment.
func Default() *Config {
	cfg := &Config{
		Model: ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	c.Model.Provider = cmp.Or(c.Model.Provider, "openai")
	c.Model.APIKeyEnv = cmp.Or(c.Model.APIKeyEnv, "OPENAI_API_KEY")
	c.Server.Addr = cmp.Or(c.Server.Addr, ":8080")
}

func (c *Config) validate() error {
	if c.Model.Provider != "openai" {
		return fmt.Errorf("unsupported model provider %q", c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	return nil
}
