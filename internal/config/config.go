package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"invoice-reconciler/internal/domain"
)

// Config is the full runtime configuration, loaded from YAML. Credential
// fields may also come from the environment, which wins over the file.
type Config struct {
	Szamlazz    SzamlazzConfig    `yaml:"szamlazz"`
	Wise        WiseConfig        `yaml:"wise"`
	MyPOS       MyPOSConfig       `yaml:"mypos"`
	WooCommerce WooCommerceConfig `yaml:"woocommerce"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Store       StoreConfig       `yaml:"store"`
	Alert       AlertConfig       `yaml:"alert"`
	Matching    MatchingConfig    `yaml:"matching"`
}

type SzamlazzConfig struct {
	AgentKey string `yaml:"agent_key"`
	BaseURL  string `yaml:"base_url"`
}

type WiseConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

type MyPOSConfig struct {
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`
	BaseURL  string `yaml:"base_url"`
}

type WooCommerceConfig struct {
	BaseURL        string `yaml:"base_url"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type AlertConfig struct {
	SMTPAddr string `yaml:"smtp_addr"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type MatchingConfig struct {
	ConfidenceThreshold int `yaml:"confidence_threshold"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates credentials. A credential missing from both file
// and environment is fatal before any fetch.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SZAMLAZZ_AGENT_KEY", &c.Szamlazz.AgentKey},
		{"WISE_TOKEN", &c.Wise.Token},
		{"MYPOS_CLIENT_ID", &c.MyPOS.ClientID},
		{"MYPOS_SECRET", &c.MyPOS.Secret},
		{"WOOCOMMERCE_KEY", &c.WooCommerce.ConsumerKey},
		{"WOOCOMMERCE_SECRET", &c.WooCommerce.ConsumerSecret},
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Path == "" {
		c.Store.Path = "reconciler.db"
	}
	if c.Matching.ConfidenceThreshold == 0 {
		c.Matching.ConfidenceThreshold = 70
	}
}

func (c *Config) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s", domain.ErrMissingCredentials, name)
	}
	if c.Szamlazz.AgentKey == "" {
		return missing("szamlazz agent key")
	}
	if c.OpenAI.APIKey == "" {
		return missing("openai api key")
	}
	if c.WooCommerce.BaseURL != "" && (c.WooCommerce.ConsumerKey == "" || c.WooCommerce.ConsumerSecret == "") {
		return missing("woocommerce key/secret")
	}
	return nil
}
