// Package config loads the configuration of lagos.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/jmuk/lagos/pkg/agent"
	"github.com/jmuk/lagos/pkg/ai"
	"github.com/jmuk/lagos/pkg/ai/gemini"
	"github.com/jmuk/lagos/pkg/ai/openai"
	"github.com/jmuk/lagos/pkg/tools"
	"github.com/joho/godotenv"
)

type ModelType string

const (
	ModelTypeGemini ModelType = "gemini"
	ModelTypeOpenAI ModelType = "openai"
)

const (
	DefaultModelName       = "gemini-2.5-flash"
	DefaultMaxOutputTokens = 2048
	DefaultTemperature     = 0.95
)

// ModelConfig is a named way to create a model.
type ModelConfig interface {
	Name() string
	NewModel(ctx context.Context, opts ai.Options) (ai.Model, error)
}

type Config struct {
	ModelName        string            `toml:"model_name"`
	LogLevel         slog.Level        `toml:"loglevel"`
	MaxToolRounds    int               `toml:"max_tool_rounds"`
	MaxOutputTokens  int32             `toml:"max_output_tokens"`
	Temperature      float32           `toml:"temperature"`
	InstructionsFile string            `toml:"instructions_file,omitempty"`
	ModelConfigs     []map[string]any  `toml:"model_configs"`
	MCP              []tools.MCPConfig `toml:"mcp,omitempty"`
}

func defaultModelConfigs() []map[string]any {
	return []map[string]any{{
		"type":       string(ModelTypeGemini),
		"name":       "gemini",
		"model_name": DefaultModelName,
	}}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ModelName:       "gemini",
		LogLevel:        slog.LevelInfo,
		MaxToolRounds:   agent.DefaultMaxToolRounds,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Temperature:     DefaultTemperature,
		ModelConfigs:    defaultModelConfigs(),
	}
}

func modelConfigFrom(m map[string]any) (ModelConfig, error) {
	mtData, ok := m["type"]
	if !ok {
		return nil, fmt.Errorf("missing field type for model config")
	}
	mtStr, ok := mtData.(string)
	if !ok {
		return nil, fmt.Errorf("type mismatch for type field: want string got %T", mtData)
	}
	marshaled, err := toml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var mc ModelConfig
	switch ModelType(mtStr) {
	case ModelTypeGemini:
		mc = &gemini.Config{}
	case ModelTypeOpenAI:
		mc = &openai.Config{}
	default:
		return nil, fmt.Errorf("unknown model type %s", mtStr)
	}
	if err := toml.Unmarshal(marshaled, mc); err != nil {
		return nil, err
	}
	return mc, nil
}

// ModelConfig returns the model config selected by ModelName.
func (c *Config) ModelConfig() (ModelConfig, error) {
	var errs []error
	for i, m := range c.ModelConfigs {
		mc, err := modelConfigFrom(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("%d-th model config: %w", i, err))
			continue
		}
		if mc.Name() == c.ModelName {
			return mc, nil
		}
	}
	errs = append(errs, fmt.Errorf("model config %q not found", c.ModelName))
	return nil, errors.Join(errs...)
}

// ModelOptions returns the options for the model, except the system
// prompt and the tools.
func (c *Config) ModelOptions() ai.Options {
	return ai.Options{
		MaxOutputTokens: c.MaxOutputTokens,
		Temperature:     c.Temperature,
	}
}

func (c *Config) validate() error {
	if c.ModelName == "" {
		return errors.New("model_name is required")
	}
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("max_tool_rounds must not be negative: %d", c.MaxToolRounds)
	}
	return nil
}

// DefaultPath returns the path of the user's config file.
func DefaultPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "lagos", "config.toml"), nil
}

// Save writes c into path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads the config file at path. An empty path stands for the
// default path, where the default config is written if it does not exist
// yet.
func Load(path string) (*Config, error) {
	create := false
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
		create = true
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && create {
		config := Default()
		if err := config.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write the default config: %w", err)
		}
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	config := Default()
	config.ModelConfigs = nil
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(config.ModelConfigs) == 0 {
		config.ModelConfigs = defaultModelConfigs()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// LoadEnv loads the .env files in the directories into the environment.
// Variables already set are kept.
func LoadEnv(dirs ...string) error {
	seen := map[string]bool{}
	for _, dir := range dirs {
		p, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil {
			return err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
