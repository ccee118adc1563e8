package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName   = "bookmark-is-learned"
	envPrefix = "BTL"
)

// Settings is one read of the user's configuration. A new snapshot is taken
// for every request so edits apply to the next bookmark.
type Settings struct {
	Provider            string   `mapstructure:"provider"`
	Model               string   `mapstructure:"model"`
	Language            string   `mapstructure:"language"`
	BaseURL             string   `mapstructure:"base_url"`
	SaveMode            string   `mapstructure:"save_mode"`
	AIEnabled           bool     `mapstructure:"ai_enabled"`
	SaveDir             string   `mapstructure:"save_dir"`
	GrantedOrigins      []string `mapstructure:"granted_origins"`
	HistoryLimit        int      `mapstructure:"history_limit"`
	QuoteFetchThreshold int      `mapstructure:"quote_fetch_threshold"`
	FrontMatter         bool     `mapstructure:"front_matter"`

	DBPath            string `mapstructure:"db_path"`
	KeyPath           string `mapstructure:"key_path"`
	HelperPath        string `mapstructure:"helper_path"`
	DownloadsDir      string `mapstructure:"downloads_dir"`
	DownloadSubfolder string `mapstructure:"download_subfolder"`

	Browser      string `mapstructure:"browser"`
	ChromePath   string `mapstructure:"chrome_path"`
	FetchRetries int    `mapstructure:"fetch_retries"`

	LocalModelURL   string `mapstructure:"local_model_url"`
	LocalModelName  string `mapstructure:"local_model_name"`
	LocalModelToken string `mapstructure:"local_model_token"`
}

// Dir is the directory holding the config file, database and key.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func defaults() map[string]any {
	home, _ := os.UserHomeDir()
	dir := Dir()
	return map[string]any{
		"provider":              "openai",
		"model":                 "",
		"language":              "en",
		"base_url":              "",
		"save_mode":             "summary",
		"ai_enabled":            true,
		"save_dir":              "",
		"granted_origins":       []string{},
		"history_limit":         200,
		"quote_fetch_threshold": 500,
		"front_matter":          false,
		"db_path":               filepath.Join(dir, "state.db"),
		"key_path":              filepath.Join(dir, "credential.key"),
		"helper_path":           "",
		"downloads_dir":         filepath.Join(home, "Downloads"),
		"download_subfolder":    appName,
		"browser":               "http",
		"chrome_path":           "",
		"fetch_retries":         0,
		"local_model_url":       "",
		"local_model_name":      "",
		"local_model_token":     "",
	}
}

// Source reads settings from an optional TOML file and BTL_* environment
// variables. Values passed to Set (command line flags) take precedence.
type Source struct {
	path      string
	overrides map[string]any
}

// NewSource reads configPath, or config.toml in Dir() when empty.
func NewSource(configPath string) *Source {
	return &Source{path: configPath, overrides: map[string]any{}}
}

// Set overrides a key for every later snapshot.
func (s *Source) Set(key string, value any) {
	s.overrides[key] = value
}

// Snapshot reads the current settings.
func (s *Source) Snapshot() (*Settings, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	if s.path != "" {
		v.SetConfigFile(s.path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(s.path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	for k, val := range s.overrides {
		v.Set(k, val)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	settings.normalize()
	return &settings, nil
}

func (s *Settings) normalize() {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	s.DBPath = expandPath(s.DBPath)
	s.KeyPath = expandPath(s.KeyPath)
	s.HelperPath = expandPath(s.HelperPath)
	s.DownloadsDir = expandPath(s.DownloadsDir)
	s.ChromePath = expandPath(s.ChromePath)
	if s.QuoteFetchThreshold <= 0 {
		s.QuoteFetchThreshold = 500
	}
	if s.FetchRetries < 0 {
		s.FetchRetries = 0
	}
}

// expandPath expands ~ to home directory and converts to absolute path.
// save_dir is left alone; the native helper expands it on its side.
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// GenerateDefault writes a config file holding the default settings.
func GenerateDefault(path string) error {
	v := viper.New()
	for k, val := range defaults() {
		v.Set(k, val)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return v.WriteConfigAs(path)
}
