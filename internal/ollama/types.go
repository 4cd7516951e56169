package ollama

//
// ────────────────────────────────────────────────
//   OLLAMA WIRE  : /api/generate
// ────────────────────────────────────────────────
//

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions tunes sampling. Low temperature keeps analysis output
// consistent across runs.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// GenerateResponse is the non-streaming response from /api/generate.
type GenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}

//
// ────────────────────────────────────────────────
//   OLLAMA WIRE  : /api/tags
// ────────────────────────────────────────────────
//

// ModelInfo describes an installed model.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// TagsResponse is the response from /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

//
// ────────────────────────────────────────────────
//   OLLAMA WIRE  : Error response
// ────────────────────────────────────────────────
//

// ErrorResponse is Ollama's JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
