package providers

// toolInjector appends provider-specific tool configuration to a request.
// Keyed by provider id so adding a provider doesn't touch the chat service.
type toolInjector func(req *CompletionRequest)

var webSearchInjectors = map[string]toolInjector{
	"openai": func(req *CompletionRequest) {
		req.Tools = append(req.Tools, Tool{Type: "web_search"})
	},
	"anthropic": func(req *CompletionRequest) {
		req.Tools = append(req.Tools, Tool{Type: "web_search_20250305", Name: "web_search", MaxUses: 5})
	},
	"google": func(req *CompletionRequest) {
		req.Tools = append(req.Tools, Tool{Type: "google_search"})
	},
}

// ApplyWebSearch requests the provider's web-search tool for this turn.
// Providers without one are left alone; a turn never fails because a
// provider lacks a tool.
func ApplyWebSearch(providerID string, req *CompletionRequest) {
	if inject, ok := webSearchInjectors[providerID]; ok {
		inject(req)
	}
}
