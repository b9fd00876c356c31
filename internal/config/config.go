package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	OrderByCreated = "created"
	OrderByUpdated = "updated"
)

type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	JWTSecret string `yaml:"jwt_secret"`

	// Site identity sent to peers when following them.
	SiteName   string `yaml:"site_name"`
	SiteAvatar string `yaml:"site_avatar"`
	SiteURL    string `yaml:"site_url"`

	UploadDir string `yaml:"upload_dir"`

	// OrderBy selects the timestamp column used as the secondary note sort,
	// "created" or "updated". Pinned notes always come first.
	OrderBy string `yaml:"order_by"`

	// Optional collaborators; empty disables them.
	WebhookURL string `yaml:"webhook_url"`
	AIEndpoint string `yaml:"ai_endpoint"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:      "5690",
		DBPath:    "notefed.db",
		UploadDir: "uploads",
		OrderBy:   OrderByCreated,
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.OrderBy != OrderByCreated && cfg.OrderBy != OrderByUpdated {
		return nil, fmt.Errorf("invalid order_by %q", cfg.OrderBy)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (config or JWT_SECRET)")
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Port, "PORT")
	setFromEnv(&c.DBPath, "DB_PATH")
	setFromEnv(&c.JWTSecret, "JWT_SECRET")
	setFromEnv(&c.SiteName, "SITE_NAME")
	setFromEnv(&c.SiteAvatar, "SITE_AVATAR")
	setFromEnv(&c.SiteURL, "SITE_URL")
	setFromEnv(&c.UploadDir, "UPLOAD_DIR")
	setFromEnv(&c.OrderBy, "ORDER_BY")
	setFromEnv(&c.WebhookURL, "WEBHOOK_URL")
	setFromEnv(&c.AIEndpoint, "AI_ENDPOINT")
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
