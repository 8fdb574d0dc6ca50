package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/jmuk/lagos/pkg/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type Config struct {
	ConfigName    string `toml:"name"`
	BaseURL       string `toml:"base_url,omitempty"`
	APIKey        string `toml:"api_key,omitempty"`
	APIKeyFromEnv string `toml:"api_key_env,omitempty"`
	ModelName     string `toml:"model_name"`
}

func (c *Config) Name() string {
	return c.ConfigName
}

func (c *Config) requestOptions() ([]option.RequestOption, error) {
	var opts []option.RequestOption
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	if c.APIKeyFromEnv != "" {
		apikey := os.Getenv(c.APIKeyFromEnv)
		if apikey == "" {
			return nil, fmt.Errorf("environment variable %s not found", c.APIKeyFromEnv)
		}
		opts = append(opts, option.WithAPIKey(apikey))
	} else if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	return opts, nil
}

func (c *Config) NewModel(ctx context.Context, opts ai.Options) (ai.Model, error) {
	reqOpts, err := c.requestOptions()
	if err != nil {
		return nil, err
	}
	client := openai.NewChatCompletionService(reqOpts...)
	return newModel(ctx, &client, c.ModelName, opts)
}
