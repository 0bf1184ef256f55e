// Package orchestrator drives one voice exchange: transcript in, final
// answer out, with a bounded tool-calling loop between the model and the
// tool registry in the middle.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"willow/internal/tool"
)

// Message roles mirror the chat wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// DefaultMaxIterations bounds the tool-calling loop so a model that never
// stops requesting tools cannot spin forever.
const DefaultMaxIterations = 10

// ToolCall is one invocation request emitted by the model. Arguments is the
// raw JSON payload; it is parsed once, executed once.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of the conversation history.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant messages only
	ToolCallID string     // tool messages only
}

// Response is one assistant turn from the model.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Client is the LLM collaborator. Implementations must round-trip tool call
// ids through the tool-result messages.
type Client interface {
	Complete(ctx context.Context, messages []Message, catalog []tool.CatalogEntry) (*Response, error)
}

// Dispatcher is the slice of the tool registry the loop needs.
type Dispatcher interface {
	Catalog() []tool.CatalogEntry
	Dispatch(name string, args map[string]any) tool.Result
}

// Config controls one orchestrator instance.
type Config struct {
	SystemPrompt  string
	MaxIterations int  // 0 means DefaultMaxIterations
	RetainHistory bool // keep conversation across turns
}

func (c Config) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return DefaultMaxIterations
}

// Orchestrator owns the conversation state for the duration of a call. Not
// safe for concurrent Run calls; the daemon invokes it once per finished
// recording.
type Orchestrator struct {
	client  Client
	tools   Dispatcher
	cfg     Config
	log     *slog.Logger
	history []Message
}

func New(client Client, tools Dispatcher, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		client: client,
		tools:  tools,
		cfg:    cfg,
		log:    log.With("component", "orchestrator"),
	}
}

// Reset drops any retained conversation history.
func (o *Orchestrator) Reset() {
	o.history = nil
}

// Run executes one user turn. It loops between the model and the tool
// registry until the model stops requesting tools or the iteration cap is
// hit; hitting the cap is a guarded degradation that returns whatever text
// accompanied the last response.
func (o *Orchestrator) Run(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", nil
	}

	messages := o.startMessages()
	messages = append(messages, Message{Role: RoleUser, Content: transcript})

	catalog := o.tools.Catalog()
	lastContent := ""

	for i := 0; i < o.cfg.maxIterations(); i++ {
		resp, err := o.client.Complete(ctx, messages, catalog)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}
		lastContent = resp.Content

		if len(resp.ToolCalls) == 0 {
			messages = append(messages, Message{Role: RoleAssistant, Content: resp.Content})
			o.finish(messages)
			return resp.Content, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Execute in emission order; results must line up with call ids
		// for the model's context to stay coherent.
		for _, call := range resp.ToolCalls {
			result := o.execute(call)
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    result.JSON(),
				ToolCallID: call.ID,
			})
		}
	}

	o.log.Warn("iteration limit reached, forcing termination")
	o.finish(messages)
	return lastContent, nil
}

// execute parses one call's arguments and dispatches it. A malformed
// payload is a tool error, not a crash.
func (o *Orchestrator) execute(call ToolCall) tool.Result {
	var args map[string]any
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			o.log.Warn("malformed tool arguments", "tool", call.Name, "err", err)
			return tool.Errorf("invalid arguments JSON for %s: %v", call.Name, err)
		}
	}

	o.log.Info("executing tool", "tool", call.Name, "call_id", call.ID)
	result := o.tools.Dispatch(call.Name, args)
	if !result.OK {
		o.log.Warn("tool failed", "tool", call.Name, "error", result.Error)
	}
	return result
}

// startMessages returns the message list a turn begins from, keeping the
// system message first and never duplicated.
func (o *Orchestrator) startMessages() []Message {
	if o.cfg.RetainHistory && len(o.history) > 0 {
		return append([]Message(nil), o.history...)
	}

	var messages []Message
	if o.cfg.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: o.cfg.SystemPrompt})
	}
	return messages
}

func (o *Orchestrator) finish(messages []Message) {
	if o.cfg.RetainHistory {
		o.history = messages
	}
}
