// Package registry holds the static catalog of LLM providers and turns a
// provider id plus model name into a concrete streaming client. Providers
// differ in authentication shape, base URLs and proxy needs; everything
// behind CreateClient is uniform.
package registry

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/mystudio/chat-relay/config"
	"github.com/mystudio/chat-relay/domain"
)

// Model is one selectable model of a provider.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderInfo is the catalog view of one provider. Available reflects
// whether its credential is configured.
type ProviderInfo struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Available    bool    `json:"available"`
	NeedsProxy   bool    `json:"needsProxy"`
	Models       []Model `json:"models"`
	DefaultModel string  `json:"defaultModel"`
}

type definition struct {
	id           string
	name         string
	models       []Model
	defaultModel string
	needsProxy   bool
	credential   func(config.Config) string
	create       func(r *Registry, apiKey, model string) domain.StreamingClient
}

// Registry is a pure function of the configuration it was constructed with;
// it never consults the environment and owns no mutable state.
type Registry struct {
	cfg  config.Config
	defs []definition
}

var _ domain.ClientFactory = (*Registry)(nil)

func New(cfg config.Config) *Registry {
	return &Registry{cfg: cfg, defs: catalog}
}

var catalog = []definition{
	{
		id:   "deepseek",
		name: "DeepSeek",
		models: []Model{
			{ID: "deepseek-chat", Name: "DeepSeek Chat"},
			{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner"},
		},
		defaultModel: "deepseek-chat",
		needsProxy:   false,
		credential:   func(c config.Config) string { return c.DeepSeek.APIKey },
		create: func(r *Registry, apiKey, model string) domain.StreamingClient {
			baseURL := r.cfg.DeepSeek.BaseURL
			if baseURL == "" {
				baseURL = "https://api.deepseek.com/v1"
			}
			return &openAICompatClient{
				provider:   "deepseek",
				baseURL:    baseURL,
				apiKey:     apiKey,
				model:      model,
				httpClient: r.httpClient(false),
			}
		},
	},
	{
		id:   "openai",
		name: "OpenAI",
		models: []Model{
			{ID: "gpt-4o", Name: "GPT-4o"},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini"},
			{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
		},
		defaultModel: "gpt-4o",
		needsProxy:   true,
		credential:   func(c config.Config) string { return c.OpenAI.APIKey },
		create: func(r *Registry, apiKey, model string) domain.StreamingClient {
			baseURL := r.cfg.OpenAI.BaseURL
			if baseURL == "" {
				baseURL = "https://api.openai.com/v1"
			}
			return &openAICompatClient{
				provider:   "openai",
				baseURL:    baseURL,
				apiKey:     apiKey,
				model:      model,
				httpClient: r.httpClient(true),
			}
		},
	},
	{
		id:   "gemini",
		name: "Google Gemini",
		models: []Model{
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
		},
		defaultModel: "gemini-2.5-flash",
		needsProxy:   true,
		credential:   func(c config.Config) string { return c.Gemini.APIKey },
		create: func(r *Registry, apiKey, model string) domain.StreamingClient {
			return &geminiClient{
				apiKey:     apiKey,
				model:      model,
				httpClient: r.httpClient(true),
			}
		},
	},
	{
		id:   "claude",
		name: "Anthropic Claude",
		models: []Model{
			{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"},
			{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5"},
		},
		defaultModel: "claude-sonnet-4-20250514",
		needsProxy:   true,
		credential:   func(c config.Config) string { return c.Claude.APIKey },
		create: func(r *Registry, apiKey, model string) domain.StreamingClient {
			return &anthropicClient{
				apiKey:     apiKey,
				model:      model,
				httpClient: r.httpClient(true),
			}
		},
	},
	{
		id:   "qwen",
		name: "Alibaba Qwen",
		models: []Model{
			{ID: "qwen-plus", Name: "Qwen Plus"},
			{ID: "qwen-turbo", Name: "Qwen Turbo"},
			{ID: "qwen-max", Name: "Qwen Max"},
		},
		defaultModel: "qwen-plus",
		needsProxy:   false,
		credential:   func(c config.Config) string { return c.Qwen.APIKey },
		create: func(r *Registry, apiKey, model string) domain.StreamingClient {
			return &openAICompatClient{
				provider:   "qwen",
				baseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
				apiKey:     apiKey,
				model:      model,
				httpClient: r.httpClient(false),
			}
		},
	},
}

// List returns the full catalog with availability computed from the
// registry's configuration.
func (r *Registry) List() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, ProviderInfo{
			ID:           d.id,
			Name:         d.name,
			Available:    d.credential(r.cfg) != "",
			NeedsProxy:   d.needsProxy,
			Models:       d.models,
			DefaultModel: d.defaultModel,
		})
	}
	return out
}

// ListAvailable filters the catalog to providers whose credential is
// configured.
func (r *Registry) ListAvailable() []ProviderInfo {
	all := r.List()
	out := make([]ProviderInfo, 0, len(all))
	for _, p := range all {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

// CreateClient builds a streaming client for one chat call. No network I/O
// happens here; the backend is contacted when the client streams.
func (r *Registry) CreateClient(providerID, modelName string) (domain.StreamingClient, error) {
	for _, d := range r.defs {
		if d.id != providerID {
			continue
		}
		apiKey := d.credential(r.cfg)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredential, d.name)
		}
		model := modelName
		if model == "" {
			model = d.defaultModel
		}
		return d.create(r, apiKey, model), nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, providerID)
}

// httpClient returns the outbound client for a provider, routed through the
// configured proxy when the provider needs one.
func (r *Registry) httpClient(needsProxy bool) *http.Client {
	if !needsProxy || r.cfg.ProxyURL == "" {
		return &http.Client{}
	}
	proxyURL, err := url.Parse(r.cfg.ProxyURL)
	if err != nil {
		return &http.Client{}
	}
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
}
