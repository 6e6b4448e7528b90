package providers

// Capabilities defines what a model can do
type Capabilities struct {
	Image     bool `json:"image"`
	Audio     bool `json:"audio"`
	Tools     bool `json:"tools"`
	WebSearch bool `json:"webSearch"`
}

// ModelDescriptor describes a model in the catalog
type ModelDescriptor struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Provider            string       `json:"provider"`
	Capabilities        Capabilities `json:"capabilities"`
	ContextWindowTokens int          `json:"context_window_tokens"`
}

// CustomModelConfig describes a user-defined OpenAI-compatible model
type CustomModelConfig struct {
	BaseURL string `json:"base_url"`
	ModelID string `json:"model_id"`
	Name    string `json:"name,omitempty"`
}

// DefaultContextWindow is assumed for models outside the static catalog
const DefaultContextWindow = 128000

// Models is the static model catalog
var Models = []ModelDescriptor{
	// OpenAI
	{ID: "gpt-5.3", Name: "GPT-5.3", Provider: "openai", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 400000},
	{ID: "gpt-5.2", Name: "GPT-5.2", Provider: "openai", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 400000},
	{ID: "gpt-5-mini", Name: "GPT-5 Mini", Provider: "openai", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 400000},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai", Capabilities: Capabilities{Image: true, Audio: true, Tools: true}, ContextWindowTokens: 128000},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: "openai", Capabilities: Capabilities{Image: true, Audio: true, Tools: true}, ContextWindowTokens: 128000},

	// Anthropic
	{ID: "claude-opus-4-6", Name: "Claude Opus 4.6", Provider: "anthropic", Capabilities: Capabilities{Image: true, Tools: true, WebSearch: true}, ContextWindowTokens: 200000},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Provider: "anthropic", Capabilities: Capabilities{Image: true, Tools: true, WebSearch: true}, ContextWindowTokens: 200000},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Provider: "anthropic", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 200000},
	{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", Provider: "anthropic", Capabilities: Capabilities{Image: true, Tools: true}, ContextWindowTokens: 200000},

	// Google
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: "google", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 1048576},
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: "google", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 1048576},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: "google", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 1048576},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: "google", Capabilities: Capabilities{Image: true, Audio: true, Tools: true, WebSearch: true}, ContextWindowTokens: 1048576},

	// Groq
	{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 131072},
	{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 131072},
	{ID: "qwen/qwen3-32b", Name: "Qwen 3 32B", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 131072},
	{ID: "moonshotai/kimi-k2-instruct-0905", Name: "Kimi K2 Instruct", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 262144},
	{ID: "openai/gpt-oss-120b", Name: "GPT OSS 120B", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 131072},
	{ID: "openai/gpt-oss-20b", Name: "GPT OSS 20B", Provider: "groq", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 131072},

	// Mistral
	{ID: "mistral-large-latest", Name: "Mistral Large 3", Provider: "mistral", Capabilities: Capabilities{Image: true, Tools: true}, ContextWindowTokens: 128000},
	{ID: "mistral-medium-latest", Name: "Mistral Medium 3.1", Provider: "mistral", Capabilities: Capabilities{Image: true, Tools: true}, ContextWindowTokens: 128000},
	{ID: "mistral-small-latest", Name: "Mistral Small 3.2", Provider: "mistral", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 128000},
	{ID: "ministral-3-latest", Name: "Ministral 3", Provider: "mistral", Capabilities: Capabilities{Image: true, Tools: true}, ContextWindowTokens: 128000},
	{ID: "codestral-latest", Name: "Codestral 25.01", Provider: "mistral", Capabilities: Capabilities{Tools: true}, ContextWindowTokens: 256000},
	{ID: "pixtral-large-latest", Name: "Pixtral Large", Provider: "mistral", Capabilities: Capabilities{Image: true, Tools: true}, ContextWindowTokens: 128000},
}

// GetModel looks up a model in the static catalog
func GetModel(id string) *ModelDescriptor {
	for i := range Models {
		if Models[i].ID == id {
			return &Models[i]
		}
	}
	return nil
}

// ResolveModel resolves a model id against the catalog. A model outside the
// catalog is only valid with a custom override, in which case a descriptor is
// synthesized with conservative capabilities and the default context window.
func ResolveModel(id string, custom *CustomModelConfig) *ModelDescriptor {
	if m := GetModel(id); m != nil {
		return m
	}
	if custom == nil {
		return nil
	}
	name := custom.Name
	if name == "" {
		name = id
	}
	return &ModelDescriptor{
		ID:                  id,
		Name:                name,
		Provider:            "custom",
		Capabilities:        Capabilities{},
		ContextWindowTokens: DefaultContextWindow,
	}
}
