package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "term-chat"

// Provider names accepted in the provider key.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderDebug      = "debug"
)

// KnownProviders lists every supported provider in display order.
func KnownProviders() []string {
	return []string{ProviderOpenAI, ProviderOpenRouter, ProviderAnthropic, ProviderGemini, ProviderDebug}
}

type Config struct {
	Provider     string           `mapstructure:"provider" yaml:"provider"`
	SystemPrompt string           `mapstructure:"system_prompt" yaml:"system_prompt"`
	OpenAI       OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	OpenRouter   OpenRouterConfig `mapstructure:"openrouter" yaml:"openrouter"`
	Anthropic    AnthropicConfig  `mapstructure:"anthropic" yaml:"anthropic"`
	Gemini       GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
	Debug        DebugConfig      `mapstructure:"debug" yaml:"debug"`
	Chat         ChatConfig       `mapstructure:"chat" yaml:"chat"`
	Theme        ThemeConfig      `mapstructure:"theme" yaml:"theme"`
	Log          LogConfig        `mapstructure:"log" yaml:"log"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type OpenRouterConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

// DebugConfig selects the local debug stream; Model is a preset name.
type DebugConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
}

type ChatConfig struct {
	CancelTimeout       time.Duration `mapstructure:"cancel_timeout" yaml:"cancel_timeout"`
	InputHeight         int           `mapstructure:"input_height" yaml:"input_height"`
	ExpandedInputHeight int           `mapstructure:"expanded_input_height" yaml:"expanded_input_height"`
	MaxOutputTokens     int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens,omitempty"`
	Temperature         float32       `mapstructure:"temperature" yaml:"temperature,omitempty"`
}

type ThemeConfig struct {
	Primary string `mapstructure:"primary" yaml:"primary,omitempty"`
	Muted   string `mapstructure:"muted" yaml:"muted,omitempty"`
	Error   string `mapstructure:"error" yaml:"error,omitempty"`
	Success string `mapstructure:"success" yaml:"success,omitempty"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("system_prompt", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openrouter.model", "x-ai/grok-code-fast-1")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("debug.model", "normal")
	v.SetDefault("chat.cancel_timeout", "2s")
	v.SetDefault("chat.input_height", 3)
	v.SetDefault("chat.expanded_input_height", 12)
	v.SetDefault("log.level", "info")
}

// Load reads the config file from the user config dir (or the working
// directory). A missing file is not an error; defaults and env apply.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads config from an explicit path, or searches the default
// locations when path is empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TERM_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(configDir, appName))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveSecrets expands magic values and falls back to the conventional
// environment variables for keys left unset.
func (c *Config) resolveSecrets() error {
	fields := []struct {
		key    string
		value  *string
		envVar []string
	}{
		{"openai.api_key", &c.OpenAI.APIKey, []string{"OPENAI_API_KEY"}},
		{"openai.base_url", &c.OpenAI.BaseURL, []string{"OPENAI_BASE_URL"}},
		{"openrouter.api_key", &c.OpenRouter.APIKey, []string{"OPENROUTER_API_KEY"}},
		{"anthropic.api_key", &c.Anthropic.APIKey, []string{"ANTHROPIC_API_KEY"}},
		{"gemini.api_key", &c.Gemini.APIKey, []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	}
	for _, f := range fields {
		resolved, err := ResolveValue(*f.value)
		if err != nil {
			return &ConfigError{Key: f.key, Reason: err.Error()}
		}
		for _, name := range f.envVar {
			if resolved != "" {
				break
			}
			resolved = os.Getenv(name)
		}
		*f.value = resolved
	}
	return nil
}

// ActiveModel returns the model configured for the selected provider.
func (c *Config) ActiveModel() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderOpenRouter:
		return c.OpenRouter.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderGemini:
		return c.Gemini.Model
	case ProviderDebug:
		return c.Debug.Model
	default:
		return ""
	}
}

// ApplyOverrides switches provider and/or model. Empty values keep the
// current setting; the model applies to the (possibly new) provider.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider = strings.TrimSpace(provider); provider != "" {
		c.Provider = provider
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	switch c.Provider {
	case ProviderOpenAI:
		c.OpenAI.Model = model
	case ProviderOpenRouter:
		c.OpenRouter.Model = model
	case ProviderAnthropic:
		c.Anthropic.Model = model
	case ProviderGemini:
		c.Gemini.Model = model
	case ProviderDebug:
		c.Debug.Model = model
	}
}

// Validate reports the first problem that would stop a chat from starting.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		// Self-hosted compatible endpoints often run without a key.
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
			return &ConfigError{Key: "openai.api_key", Reason: "not set (or set OPENAI_API_KEY, or openai.base_url for a keyless endpoint)"}
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return &ConfigError{Key: "openrouter.api_key", Reason: "not set (or set OPENROUTER_API_KEY)"}
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return &ConfigError{Key: "anthropic.api_key", Reason: "not set (or set ANTHROPIC_API_KEY)"}
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return &ConfigError{Key: "gemini.api_key", Reason: "not set (or set GEMINI_API_KEY)"}
		}
	case ProviderDebug:
		return nil
	case "":
		return &ConfigError{Key: "provider", Reason: "not set"}
	default:
		return &ConfigError{Key: "provider", Reason: fmt.Sprintf("unknown provider %q (known: %s)", c.Provider, strings.Join(KnownProviders(), ", "))}
	}
	if strings.TrimSpace(c.ActiveModel()) == "" {
		return &ConfigError{Key: c.Provider + ".model", Reason: "not set"}
	}
	if c.Chat.CancelTimeout < 0 {
		return &ConfigError{Key: "chat.cancel_timeout", Reason: "must not be negative"}
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.OpenAI.APIKey = redact(c.OpenAI.APIKey)
	c.OpenRouter.APIKey = redact(c.OpenRouter.APIKey)
	c.Anthropic.APIKey = redact(c.Anthropic.APIKey)
	c.Gemini.APIKey = redact(c.Gemini.APIKey)
	return c
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// NeedsSetup returns true if config file doesn't exist
func NeedsSetup() bool {
	return !Exists()
}

// Save writes the config to the default path.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, path)
}

// SaveFile writes cfg as YAML. Secrets are written as given, so callers
// should store env references (e.g. ${OPENAI_API_KEY}) rather than raw keys.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# term-chat configuration\n")
	buf.WriteString("# api_key values accept ${VAR}, $(command) and op:// references\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
