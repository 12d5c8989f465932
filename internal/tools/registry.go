// Package tools keeps the named functions the agent may call and renders
// them as OpenAI function tools, MCP input schemas and LangChain-style tool
// schemas.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Param is a string argument of a tool.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Handler runs a tool. It reports failures in the returned text.
type Handler func(ctx context.Context, args map[string]string) string

// Tool is a callable function exposed to the model.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// ToolSchema is the LangChain-compatible description of a tool.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// InputSchema renders the tool's arguments as a JSON schema object.
func (t Tool) InputSchema() map[string]any {
	props := make(map[string]any, len(t.Params))
	required := make([]any, 0, len(t.Params))
	for _, p := range t.Params {
		props[p.Name] = map[string]any{"type": "string", "description": p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definition renders the tool for the chat completions API.
func (t Tool) Definition() openai.Tool {
	props := make(map[string]jsonschema.Definition, len(t.Params))
	var required []string
	for _, p := range t.Params {
		props[p.Name] = jsonschema.Definition{Type: jsonschema.String, Description: p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   required,
			},
		},
	}
}

// Registry maps tool names to tools, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions renders every tool for the chat completions API.
func (r *Registry) Definitions() []openai.Tool {
	list := r.List()
	defs := make([]openai.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Schemas renders every tool in LangChain tool schema format.
func (r *Registry) Schemas() []ToolSchema {
	list := r.List()
	out := make([]ToolSchema, 0, len(list))
	for _, t := range list {
		out = append(out, ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.InputSchema()})
	}
	return out
}

// Call runs a tool with JSON-encoded arguments. Unknown tools, malformed
// arguments and missing fields are reported as text so the model can
// correct itself.
func (r *Registry) Call(ctx context.Context, name, rawArgs string) string {
	t, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", name, strings.Join(r.Names(), ", "))
	}

	args, err := parseArgs(t, rawArgs)
	if err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %s", name, err)
	}
	return t.Handler(ctx, args)
}

func parseArgs(t Tool, raw string) (map[string]string, error) {
	decoded := map[string]any{}
	if s := strings.TrimSpace(raw); s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
		}
	}

	args := make(map[string]string, len(t.Params))
	for _, p := range t.Params {
		v, present := decoded[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, fmt.Errorf("missing required field: %s", p.Name)
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s must be a string", p.Name)
		}
		if p.Required && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("field %s must not be empty", p.Name)
		}
		args[p.Name] = s
	}
	return args, nil
}

// IsErrorText reports whether a tool's output describes a failure.
func IsErrorText(out string) bool {
	return strings.HasPrefix(out, "Error ") || strings.HasPrefix(out, "Error:")
}
