package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Kind choisit l'adaptateur de scraping (seul "diziwatch" existe pour l'instant).
	Kind string `yaml:"kind"`
}

type Scraper struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// CloudflareBypass est un pointeur pour qu'un "false" du .local l'emporte ; nil vaut true.
	CloudflareBypass *bool `yaml:"cloudflare_bypass"`
}

func (s Scraper) BypassCloudflare() bool {
	return s.CloudflareBypass == nil || *s.CloudflareBypass
}

type Webhook struct {
	URL       string `yaml:"url"`
	HealthURL string `yaml:"health_url"`
	Token     string `yaml:"token"`
	// Recipient est un numéro de téléphone au format international, sans "+".
	Recipient string        `yaml:"recipient"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Email struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"`
}

type Notify struct {
	// Channel: "log", "webhook" ou "email".
	Channel      string        `yaml:"channel"`
	Locale       string        `yaml:"locale"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	Webhook      Webhook       `yaml:"webhook"`
	Email        Email         `yaml:"email"`
}

type Config struct {
	Addr     string        `yaml:"addr"`
	DBPath   string        `yaml:"db_path"`
	LogLevel string        `yaml:"log_level"`
	Interval time.Duration `yaml:"interval"`
	Sources  []Source      `yaml:"sources"`
	Scraper  Scraper       `yaml:"scraper"`
	Notify   Notify        `yaml:"notify"`
}

func Default() Config {
	return Config{
		Addr:     envOr("AWN_ADDR", "127.0.0.1:3000"),
		DBPath:   envOr("AWN_DB_PATH", "awn.db"),
		LogLevel: envOr("AWN_LOG_LEVEL", "info"),
		Interval: time.Hour,
		Sources: []Source{
			{Name: "DiziWatch", URL: "https://yeniwatch.net", Kind: "diziwatch"},
		},
		Scraper: Scraper{
			Timeout:   20 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		},
		Notify: Notify{
			Channel:      "log",
			Locale:       "tr",
			ReadyTimeout: 30 * time.Second,
			Webhook:      Webhook{Timeout: 15 * time.Second},
			Email:        Email{SMTPPort: 587, Subject: "Yeni Anime Bölümleri"},
		},
	}
}

// DefaultPath renvoie le fichier de config par défaut (AWN_CONFIG ou awn.yaml).
func DefaultPath() string {
	return envOr("AWN_CONFIG", "awn.yaml")
}

// Load part des valeurs par défaut puis applique, dans l'ordre :
//  1. path (YAML), s'il existe ;
//  2. <nom>.local.<ext> à côté, fusionné par-dessus.
//
// Un fichier absent n'est pas une erreur.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}

	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}

	local := localPath(path)
	var override Config
	if err := decodeFile(local, &override); err != nil {
		return Config{}, err
	}
	// WithoutDereference : un pointeur non nil (même vers false) remplace la valeur.
	if err := mergo.Merge(&cfg, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return Config{}, fmt.Errorf("merge %s: %w", local, err)
	}

	return cfg, cfg.Validate()
}

func decodeFile(path string, into *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, into); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "addr is required")
	}
	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if c.Interval <= 0 {
		problems = append(problems, "interval must be positive")
	}
	if len(c.Sources) == 0 {
		problems = append(problems, "at least one source is required")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("source %d: name is required", i))
		}
		if s.URL == "" {
			problems = append(problems, fmt.Sprintf("source %d (%s): url is required", i, s.Name))
		}
		if seen[s.Name] {
			problems = append(problems, fmt.Sprintf("source %d: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
	}
	if c.Scraper.Timeout <= 0 {
		problems = append(problems, "scraper.timeout must be positive")
	}

	switch c.Notify.Channel {
	case "log":
	case "webhook":
		if c.Notify.Webhook.URL == "" {
			problems = append(problems, "notify.webhook.url is required for the webhook channel")
		}
		if c.Notify.Webhook.Recipient == "" {
			problems = append(problems, "notify.webhook.recipient is required for the webhook channel")
		}
		if c.Notify.Webhook.Timeout <= 0 {
			problems = append(problems, "notify.webhook.timeout must be positive")
		}
	case "email":
		if c.Notify.Email.SMTPHost == "" {
			problems = append(problems, "notify.email.smtp_host is required for the email channel")
		}
		if len(c.Notify.Email.To) == 0 {
			problems = append(problems, "notify.email.to is required for the email channel")
		}
	default:
		problems = append(problems, fmt.Sprintf("notify.channel %q is not supported", c.Notify.Channel))
	}
	if !domain.SupportedLocale(c.Notify.Locale) {
		problems = append(problems, fmt.Sprintf("notify.locale %q is not supported", c.Notify.Locale))
	}
	if c.Notify.ReadyTimeout <= 0 {
		problems = append(problems, "notify.ready_timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
