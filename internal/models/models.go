package models

import "github.com/google/uuid"

// MaxCompletionTokens caps the length of a single model response. It is sent
// as the max token parameter to providers that require one and is folded into
// pre-flight token estimates.
const MaxCompletionTokens = 4096

// Prompt is the canonical representation of one model invocation: a fixed
// system instruction plus the user-supplied request text.
type Prompt struct {
	System string
	User   string
}

// Completion captures a provider response in the unified schema.
type Completion struct {
	Text  string
	Usage Usage
}

// Usage records token accounting information as reported by a provider.
// A zero TotalTokens means the provider did not report usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Options carries the caller-tunable knobs of a generation request.
type Options struct {
	// SplitTables asks for wide tables to be broken into column groups.
	SplitTables bool
	// MathMode asks for math content to be set in display math environments.
	MathMode bool
	// Model forces a specific model; the provider owning it is tried first.
	Model string
}

// GenerateRequest describes one "produce a LaTeX document" call.
type GenerateRequest struct {
	ID           string
	Content      string
	DocumentType string
	Options      Options
}

// NewGenerateRequest builds a GenerateRequest with a fresh request ID.
func NewGenerateRequest(content, documentType string, opts Options) GenerateRequest {
	return GenerateRequest{
		ID:           uuid.NewString(),
		Content:      content,
		DocumentType: documentType,
		Options:      opts,
	}
}

// ModifyRequest describes one "edit this LaTeX document" call. Omit marks the
// notes as content to delete rather than changes to apply.
type ModifyRequest struct {
	ID      string
	Latex   string
	Notes   string
	Omit    bool
	Options Options
}

// NewModifyRequest builds a ModifyRequest with a fresh request ID.
func NewModifyRequest(latex, notes string, omit bool, opts Options) ModifyRequest {
	return ModifyRequest{
		ID:      uuid.NewString(),
		Latex:   latex,
		Notes:   notes,
		Omit:    omit,
		Options: opts,
	}
}

// LatexResult is the terminal outcome of a generate or modify call. Failure is
// a value, not an error: Success false with a user-facing Error message means
// every provider in the chain was tried and none produced a document.
type LatexResult struct {
	Success  bool
	Latex    string
	Error    string
	Provider string
	Model    string
}

// ModelInfo identifies a selectable model with provider metadata.
type ModelInfo struct {
	ID       string
	Provider string
	MinTier  Tier
}
