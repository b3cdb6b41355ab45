package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/config"
)

// NewClient creates the chat completion client for cfg.Provider. "azure" treats
// BaseURL as the Azure resource endpoint; anything else is an
// OpenAI-compatible API at BaseURL.
func NewClient(cfg config.LLMConfig) *openai.Client {
	var c openai.ClientConfig
	switch cfg.Provider {
	case "azure":
		c = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	default:
		c = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
	}
	return openai.NewClientWithConfig(c)
}
