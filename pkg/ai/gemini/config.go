package gemini

import (
	"context"
	"fmt"
	"os"

	"github.com/jmuk/lagos/pkg/ai"
	"google.golang.org/genai"
)

// DefaultAPIKeyEnv is the environment variable holding the API key.
const DefaultAPIKeyEnv = "GOOGLE_API_KEY"

type Config struct {
	ConfigName string `toml:"name"`
	ModelName  string `toml:"model_name"`
	APIKey     string `toml:"api_key,omitempty"`
	APIKeyEnv  string `toml:"api_key_env,omitempty"`
	Backend    string `toml:"backend,omitempty"`
	Project    string `toml:"project,omitempty"`
	Location   string `toml:"location,omitempty"`
}

func (gc *Config) Name() string {
	return gc.ConfigName
}

func (gc *Config) backend() genai.Backend {
	switch gc.Backend {
	case genai.BackendGeminiAPI.String():
		return genai.BackendGeminiAPI
	case genai.BackendVertexAI.String():
		return genai.BackendVertexAI
	}
	return genai.BackendUnspecified
}

// ResolveAPIKey returns the API key from the config or the environment.
// Vertex AI does not need one.
func (gc *Config) ResolveAPIKey() (string, error) {
	if gc.APIKey != "" {
		return gc.APIKey, nil
	}
	env := gc.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	if gc.backend() == genai.BackendVertexAI {
		return "", nil
	}
	return "", fmt.Errorf("missing %s in the environment", env)
}

func (gc *Config) NewModel(ctx context.Context, opts ai.Options) (ai.Model, error) {
	apiKey, err := gc.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	return New(ctx, gc.ModelName, &genai.ClientConfig{
		APIKey:   apiKey,
		Backend:  gc.backend(),
		Project:  gc.Project,
		Location: gc.Location,
	}, opts)
}
