package models

// Kind tags the wire shape a provider speaks.
type Kind string

const (
	// KindChatCompletions is the OpenAI-style /chat/completions schema.
	KindChatCompletions Kind = "chat-completions"
	// KindRawGeneration is Google's generateContent schema.
	KindRawGeneration Kind = "raw-generation"
	// KindMessageAPI is Anthropic's /messages schema.
	KindMessageAPI Kind = "message-api"
)

// Canonical provider names, also used as config keys.
const (
	ProviderGroq       = "groq"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderTogether   = "together"
	ProviderMistral    = "mistral"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
)

// ModelSpec is one selectable model and the lowest tier allowed to use it.
type ModelSpec struct {
	ID      string
	MinTier Tier
}

// Descriptor is the static identity of a provider: everything known before
// any credential is read or client built. Runtime state lives elsewhere.
type Descriptor struct {
	Name    string
	Kind    Kind
	BaseURL string
	// EnvKey names the environment variable holding the API key.
	EnvKey string
	// Models is ordered; the first entry is the provider's default model.
	Models []ModelSpec
	// TokenBudget caps cumulative estimated token spend for the process
	// lifetime. Zero means unmetered.
	TokenBudget int64
	// SendReferer marks providers that want HTTP-Referer / X-Title headers.
	SendReferer bool
}

// DefaultModel returns the model used when a request names none.
func (d Descriptor) DefaultModel() string {
	if len(d.Models) == 0 {
		return ""
	}
	return d.Models[0].ID
}

// DefaultProviders returns the built-in provider table in fallback priority
// order: cheap and fast first, premium last.
func DefaultProviders() []Descriptor {
	return []Descriptor{
		{
			Name:    ProviderGroq,
			Kind:    KindChatCompletions,
			BaseURL: "https://api.groq.com/openai/v1",
			EnvKey:  "GROQ_API_KEY",
			Models: []ModelSpec{
				{ID: "llama-3.1-8b-instant", MinTier: TierFree},
				{ID: "llama-3.3-70b-versatile", MinTier: TierBasic},
			},
			TokenBudget: 500_000,
		},
		{
			Name:   ProviderGemini,
			Kind:   KindRawGeneration,
			EnvKey: "GEMINI_API_KEY",
			Models: []ModelSpec{
				{ID: "gemini-2.0-flash", MinTier: TierFree},
				{ID: "gemini-2.5-pro", MinTier: TierPro},
			},
		},
		{
			Name:    ProviderOpenRouter,
			Kind:    KindChatCompletions,
			BaseURL: "https://openrouter.ai/api/v1",
			EnvKey:  "OPENROUTER_API_KEY",
			Models: []ModelSpec{
				{ID: "meta-llama/llama-3.3-70b-instruct:free", MinTier: TierFree},
				{ID: "deepseek/deepseek-chat-v3-0324", MinTier: TierBasic},
			},
			SendReferer: true,
		},
		{
			Name:    ProviderTogether,
			Kind:    KindChatCompletions,
			BaseURL: "https://api.together.xyz/v1",
			EnvKey:  "TOGETHER_API_KEY",
			Models: []ModelSpec{
				{ID: "meta-llama/Llama-3.3-70B-Instruct-Turbo", MinTier: TierBasic},
			},
		},
		{
			Name:    ProviderMistral,
			Kind:    KindChatCompletions,
			BaseURL: "https://api.mistral.ai/v1",
			EnvKey:  "MISTRAL_API_KEY",
			Models: []ModelSpec{
				{ID: "mistral-small-latest", MinTier: TierBasic},
				{ID: "mistral-large-latest", MinTier: TierPro},
			},
		},
		{
			Name:   ProviderOpenAI,
			Kind:   KindChatCompletions,
			EnvKey: "OPENAI_API_KEY",
			Models: []ModelSpec{
				{ID: "gpt-4o-mini", MinTier: TierBasic},
				{ID: "gpt-4o", MinTier: TierPro},
			},
		},
		{
			Name:    ProviderAnthropic,
			Kind:    KindMessageAPI,
			BaseURL: "https://api.anthropic.com/v1",
			EnvKey:  "ANTHROPIC_API_KEY",
			Models: []ModelSpec{
				{ID: "claude-3-5-haiku-latest", MinTier: TierPro},
				{ID: "claude-sonnet-4-20250514", MinTier: TierPower},
			},
		},
	}
}
