// Package llm defines the provider-agnostic LLM contract the core depends
// on, plus the concrete provider adapters. The core never depends on a
// specific provider type; adapters that cannot honor a tool request fall
// back to plain JSON mode.
package llm

import (
	"context"
	"errors"
)

// Response formats a request may ask for.
const (
	FormatText       = "text"
	FormatJSONObject = "json_object"
)

// ToolSpec names a function-call style tool the provider may use to return
// structured output. Parameters is a JSON Schema document.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is a single completion request.
type Request struct {
	System         string
	Prompt         string
	ResponseFormat string
	Tool           *ToolSpec
	Temperature    float64
	MaxTokens      int
}

// FunctionCall is a structured tool invocation returned by the provider.
type FunctionCall struct {
	Name      string
	Arguments string // raw JSON
}

// Result holds either a text payload or a structured tool-call payload.
type Result struct {
	Content      string
	FunctionCall *FunctionCall
}

// ErrUnavailable marks a transient provider failure; callers recover via
// their rule-based fallbacks.
var ErrUnavailable = errors.New("llm provider unavailable")

// Client is the single contract every provider implements.
type Client interface {
	Complete(ctx context.Context, req Request) (*Result, error)
	Name() string
}
