package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "EXIT_INTERVIEW_"

// Config captures configuration values for the exit interview service.
type Config struct {
	HTTPPort   int
	SQLitePath string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheMaxEntries int

	SessionTTL   time.Duration
	ExpiryWindow time.Duration
	WindowTurns  int
	MaxQuestions int

	GenerationURL     string
	GenerationTimeout time.Duration
	NotificationURL   string
	HREmail           string
	FrontendBaseURL   string

	LogLevel  string
	LogFormat string
}

// fileConfig is the YAML layer. Keys mirror the environment variable names
// without the prefix, in lower case.
type fileConfig struct {
	HTTPPort          string `yaml:"http_port"`
	SQLitePath        string `yaml:"sqlite_path"`
	RedisAddr         string `yaml:"redis_addr"`
	RedisPassword     string `yaml:"redis_password"`
	RedisDB           string `yaml:"redis_db"`
	CacheMaxEntries   string `yaml:"cache_max_entries"`
	SessionTTL        string `yaml:"session_ttl"`
	ExpiryWindow      string `yaml:"expiry_window"`
	WindowTurns       string `yaml:"window_turns"`
	MaxQuestions      string `yaml:"max_questions"`
	GenerationURL     string `yaml:"generation_url"`
	GenerationTimeout string `yaml:"generation_timeout"`
	NotificationURL   string `yaml:"notification_url"`
	HREmail           string `yaml:"hr_email"`
	FrontendBaseURL   string `yaml:"frontend_base_url"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		"HTTP_PORT":          f.HTTPPort,
		"SQLITE_PATH":        f.SQLitePath,
		"REDIS_ADDR":         f.RedisAddr,
		"REDIS_PASSWORD":     f.RedisPassword,
		"REDIS_DB":           f.RedisDB,
		"CACHE_MAX_ENTRIES":  f.CacheMaxEntries,
		"SESSION_TTL":        f.SessionTTL,
		"EXPIRY_WINDOW":      f.ExpiryWindow,
		"WINDOW_TURNS":       f.WindowTurns,
		"MAX_QUESTIONS":      f.MaxQuestions,
		"GENERATION_URL":     f.GenerationURL,
		"GENERATION_TIMEOUT": f.GenerationTimeout,
		"NOTIFICATION_URL":   f.NotificationURL,
		"HR_EMAIL":           f.HREmail,
		"FRONTEND_BASE_URL":  f.FrontendBaseURL,
		"LOG_LEVEL":          f.LogLevel,
		"LOG_FORMAT":         f.LogFormat,
	}
}

// Load parses configuration values from an optional YAML file named by
// EXIT_INTERVIEW_CONFIG_FILE and the current process environment. Environment
// values override the file.
//
// Missing required values and invalid values are collected and reported
// together with localized error messages.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLitePath:        "exit_interview.db",
		CacheMaxEntries:   10000,
		SessionTTL:        24 * time.Hour,
		ExpiryWindow:      72 * time.Hour,
		WindowTurns:       6,
		MaxQuestions:      18,
		GenerationTimeout: 30 * time.Second,
		LogLevel:          "info",
		LogFormat:         "json",
	}

	values := map[string]string{}
	if path := strings.TrimSpace(os.Getenv(envPrefix + "CONFIG_FILE")); path != "" {
		fileValues, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		values = fileValues
	}
	for key := range (fileConfig{}).values() {
		if value := os.Getenv(envPrefix + key); strings.TrimSpace(value) != "" {
			values[key] = value
		}
	}

	p := parser{values: values}
	p.integer("HTTP_PORT", &cfg.HTTPPort, 1)
	p.text("SQLITE_PATH", &cfg.SQLitePath)
	p.text("REDIS_ADDR", &cfg.RedisAddr)
	p.text("REDIS_PASSWORD", &cfg.RedisPassword)
	p.integer("REDIS_DB", &cfg.RedisDB, 0)
	p.integer("CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries, 1)
	p.duration("SESSION_TTL", &cfg.SessionTTL)
	p.duration("EXPIRY_WINDOW", &cfg.ExpiryWindow)
	p.integer("WINDOW_TURNS", &cfg.WindowTurns, 1)
	p.integer("MAX_QUESTIONS", &cfg.MaxQuestions, 1)
	p.text("GENERATION_URL", &cfg.GenerationURL)
	p.duration("GENERATION_TIMEOUT", &cfg.GenerationTimeout)
	p.text("NOTIFICATION_URL", &cfg.NotificationURL)
	p.text("HR_EMAIL", &cfg.HREmail)
	p.required("FRONTEND_BASE_URL", &cfg.FrontendBaseURL)
	p.oneOf("LOG_LEVEL", &cfg.LogLevel, "debug", "info", "warn", "error")
	p.oneOf("LOG_FORMAT", &cfg.LogFormat, "json", "text")

	if len(p.missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
	}
	values := make(map[string]string)
	for key, value := range file.values() {
		if value != "" {
			values[key] = value
		}
	}
	return values, nil
}

type parser struct {
	values  map[string]string
	missing []string
	invalid []string
}

func (p *parser) lookup(key string) (string, bool) {
	value := strings.TrimSpace(p.values[key])
	return value, value != ""
}

func (p *parser) text(key string, dst *string) {
	if value, ok := p.lookup(key); ok {
		*dst = value
	}
}

func (p *parser) required(key string, dst *string) {
	value, ok := p.lookup(key)
	if !ok {
		p.missing = append(p.missing, envPrefix+key)
		return
	}
	*dst = value
}

func (p *parser) integer(key string, dst *int, min int) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < min {
		p.invalid = append(p.invalid, envPrefix+key)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, envPrefix+key)
		return
	}
	*dst = d
}

func (p *parser) oneOf(key string, dst *string, allowed ...string) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	value = strings.ToLower(value)
	for _, candidate := range allowed {
		if value == candidate {
			*dst = value
			return
		}
	}
	p.invalid = append(p.invalid, envPrefix+key)
}
