package engine

import "time"

// Generation parameter defaults. Defaults are resolved before cache-key
// derivation so a request spelling out a default value and one omitting
// the field are cache-equivalent.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 512
)

// Params are resolved generation parameters. Every field carries its
// effective value; optional fields have already been defaulted.
type Params struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// ResolveParams turns optional client parameters into effective ones.
func ResolveParams(temperature, topP *float64, maxTokens *int) Params {
	p := Params{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
	}
	if temperature != nil {
		p.Temperature = *temperature
	}
	if topP != nil {
		p.TopP = *topP
	}
	if maxTokens != nil {
		p.MaxTokens = *maxTokens
	}
	return p
}

// Request is a single prompt-completion request against the engine.
type Request struct {
	// Prompt is the effective prompt: system text, when present, is
	// prepended with the separator below.
	Prompt string

	// Params are the resolved generation parameters.
	Params Params
}

// SystemSeparator joins system text and user prompt into the effective
// prompt sent to the engine.
const SystemSeparator = "\n\n"

// EffectivePrompt combines system text and prompt.
func EffectivePrompt(system, prompt string) string {
	if system == "" {
		return prompt
	}
	return system + SystemSeparator + prompt
}

// Event is one element of the engine's token stream. Exactly one of the
// terminal conditions holds for the final event: Done is true (successful
// completion) or Err is non-nil (stream error). Already-delivered tokens
// are never retracted.
type Event struct {
	Token string
	Done  bool
	Err   error
}

// generateRequest is the wire request to the engine's generation endpoint.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions carries numeric generation options on the wire.
type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

// generateFragment is one newline-delimited JSON object of the engine's
// streaming response. Fields are optional; a fragment may carry a text
// delta, a done flag, or both.
type generateFragment struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// healthResponse is the engine's version/health reply.
type healthResponse struct {
	Version string `json:"version"`
}

// Config contains the engine client settings.
type Config struct {
	// BaseURL is the engine API base URL.
	BaseURL string

	// Model is the model identifier sent with every request.
	Model string

	// ConnectTimeout bounds dialing. Zero means no dial timeout.
	// Generation requests themselves are never timed out.
	ConnectTimeout time.Duration
}
