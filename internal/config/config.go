package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/MEKXH/mason/internal/risk"
)

// Config root configuration
type Config struct {
	Agents    AgentsConfig    `mapstructure:"agents"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Risk      risk.Ruleset    `mapstructure:"risk"`
	Backups   BackupsConfig   `mapstructure:"backups"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Log       LogConfig       `mapstructure:"log"`
	Tools     ToolsConfig     `mapstructure:"tools"`
}

// AgentsConfig agent settings
type AgentsConfig struct {
	Defaults AgentDefaults `mapstructure:"defaults"`
}

// AgentDefaults default agent parameters
type AgentDefaults struct {
	Workspace         string  `mapstructure:"workspace"`
	WorkspaceMode     string  `mapstructure:"workspace_mode"`
	Model             string  `mapstructure:"model"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxToolIterations int     `mapstructure:"max_tool_iterations"`
}

// ProvidersConfig LLM provider settings
type ProvidersConfig struct {
	OpenRouter ProviderConfig `mapstructure:"openrouter"`
	Claude     ProviderConfig `mapstructure:"claude"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
	DeepSeek   ProviderConfig `mapstructure:"deepseek"`
	Ollama     ProviderConfig `mapstructure:"ollama"`
}

// ProviderConfig single provider settings
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// SafetyConfig permission gate settings
type SafetyConfig struct {
	// Mode is one of strict, moderate, relaxed.
	Mode string `mapstructure:"mode"`
}

// BackupsConfig backup retention settings
type BackupsConfig struct {
	// MaxAgeDays bounds PruneOlderThan; 0 keeps backups forever.
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// PromptConfig approval prompt settings
type PromptConfig struct {
	// Channel is terminal or telegram.
	Channel  string               `mapstructure:"channel"`
	Telegram TelegramPromptConfig `mapstructure:"telegram"`
}

// TelegramPromptConfig remote approval settings
type TelegramPromptConfig struct {
	Token          string   `mapstructure:"token"`
	ChatID         int64    `mapstructure:"chat_id"`
	AllowFrom      []string `mapstructure:"allow_from"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ToolsConfig tool settings
type ToolsConfig struct {
	Exec ExecToolConfig `mapstructure:"exec"`
}

// ExecToolConfig shell exec settings
type ExecToolConfig struct {
	Timeout             int  `mapstructure:"timeout"`
	RestrictToWorkspace bool `mapstructure:"restrict_to_workspace"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:         filepath.Join(homeDir, ".mason", "workspace"),
				WorkspaceMode:     "cwd",
				Model:             "anthropic/claude-sonnet-4-5",
				MaxTokens:         8192,
				Temperature:       0.7,
				MaxToolIterations: 20,
			},
		},
		Providers: ProvidersConfig{},
		Safety: SafetyConfig{
			Mode: "strict",
		},
		Risk: risk.DefaultRuleset(),
		Backups: BackupsConfig{
			MaxAgeDays: 30,
		},
		Prompt: PromptConfig{
			Channel: "terminal",
			Telegram: TelegramPromptConfig{
				AllowFrom:      []string{},
				TimeoutSeconds: 300,
			},
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Tools: ToolsConfig{
			Exec: ExecToolConfig{
				Timeout:             60,
				RestrictToWorkspace: true,
			},
		},
	}
}

// ConfigDir returns the mason config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".mason")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("MASON")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	d := &c.Agents.Defaults

	if d.MaxToolIterations < 0 {
		return fmt.Errorf("agents.defaults.max_tool_iterations must not be negative, got %d", d.MaxToolIterations)
	}
	if d.MaxToolIterations == 0 {
		d.MaxToolIterations = 20
	}

	if d.Temperature < 0 || d.Temperature > 2.0 {
		return fmt.Errorf("agents.defaults.temperature must be between 0 and 2.0, got %f", d.Temperature)
	}

	if d.MaxTokens <= 0 {
		return fmt.Errorf("agents.defaults.max_tokens must be > 0, got %d", d.MaxTokens)
	}

	mode := strings.TrimSpace(d.WorkspaceMode)
	if mode != "" {
		validModes := map[string]bool{"default": true, "cwd": true, "path": true}
		if !validModes[strings.ToLower(mode)] {
			return fmt.Errorf("agents.defaults.workspace_mode must be one of: default, cwd, path; got %q", mode)
		}
		if strings.EqualFold(mode, "path") && strings.TrimSpace(d.Workspace) == "" {
			return fmt.Errorf("agents.defaults.workspace must be non-empty when workspace_mode is \"path\"")
		}
	}

	safety := strings.ToLower(strings.TrimSpace(c.Safety.Mode))
	if safety == "" {
		c.Safety.Mode = "strict"
	} else {
		validModes := map[string]bool{"strict": true, "moderate": true, "relaxed": true}
		if !validModes[safety] {
			return fmt.Errorf("safety.mode must be one of strict, moderate, relaxed; got %q", c.Safety.Mode)
		}
		c.Safety.Mode = safety
	}

	if c.Backups.MaxAgeDays < 0 {
		return fmt.Errorf("backups.max_age_days must not be negative, got %d", c.Backups.MaxAgeDays)
	}

	channel := strings.ToLower(strings.TrimSpace(c.Prompt.Channel))
	if channel == "" {
		c.Prompt.Channel = "terminal"
	} else {
		validChannels := map[string]bool{"terminal": true, "telegram": true}
		if !validChannels[channel] {
			return fmt.Errorf("prompt.channel must be terminal or telegram; got %q", c.Prompt.Channel)
		}
		if channel == "telegram" && strings.TrimSpace(c.Prompt.Telegram.Token) == "" {
			return fmt.Errorf("prompt.telegram.token is required when prompt.channel is \"telegram\"")
		}
		c.Prompt.Channel = channel
	}
	if c.Prompt.Telegram.TimeoutSeconds < 0 {
		return fmt.Errorf("prompt.telegram.timeout_seconds must not be negative, got %d", c.Prompt.Telegram.TimeoutSeconds)
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// WorkspacePath returns the expanded workspace path
func (c *Config) WorkspacePath() string {
	path, err := c.WorkspacePathChecked()
	if err != nil {
		return filepath.Join(ConfigDir(), "workspace")
	}
	return path
}

// WorkspacePathChecked returns the expanded workspace path or an error if invalid.
func (c *Config) WorkspacePathChecked() (string, error) {
	mode := strings.TrimSpace(c.Agents.Defaults.WorkspaceMode)
	if mode == "" || strings.EqualFold(mode, "default") {
		return filepath.Join(ConfigDir(), "workspace"), nil
	}
	if strings.EqualFold(mode, "cwd") {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve cwd: %w", err)
		}
		return wd, nil
	}
	if !strings.EqualFold(mode, "path") {
		return "", fmt.Errorf("unknown workspace_mode: %s", mode)
	}
	if c.Agents.Defaults.Workspace == "" {
		return "", fmt.Errorf("workspace is required when workspace_mode=path")
	}
	if len(c.Agents.Defaults.Workspace) > 0 && c.Agents.Defaults.Workspace[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory for workspace path: %w", err)
		}
		rest := c.Agents.Defaults.Workspace[1:]
		rest = strings.TrimPrefix(rest, string(filepath.Separator))
		rest = strings.TrimPrefix(rest, "/")
		return filepath.Join(homeDir, rest), nil
	}
	return c.Agents.Defaults.Workspace, nil
}

// StatePath returns the directory holding permission, override, audit and
// backup state for the given workspace.
func (c *Config) StatePath() string {
	return filepath.Join(ConfigDir(), "data")
}
