// Package llm adapts the orchestrator's model interface onto the OpenAI
// chat completions API.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"

	"willow/internal/orchestrator"
	"willow/internal/tool"
)

const DefaultModel = openai.ChatModelGPT4_1

// Client calls the chat completions endpoint with the tool catalog attached.
type Client struct {
	api   openai.Client
	model string
	log   *slog.Logger
}

func New(api openai.Client, model string, log *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{api: api, model: model, log: log.With("component", "llm")}
}

func (c *Client) Complete(ctx context.Context, messages []orchestrator.Message, catalog []tool.CatalogEntry) (*orchestrator.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: toMessageParams(messages),
		Tools:    toToolParams(catalog),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	out := &orchestrator.Response{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, orchestrator.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	c.log.Debug("model responded", "tool_calls", len(out.ToolCalls), "content_len", len(out.Content))
	return out, nil
}

func toMessageParams(messages []orchestrator.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case orchestrator.RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case orchestrator.RoleUser:
			params = append(params, openai.UserMessage(m.Content))
		case orchestrator.RoleAssistant:
			params = append(params, assistantParam(m))
		case orchestrator.RoleTool:
			params = append(params, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return params
}

func assistantParam(m orchestrator.Message) openai.ChatCompletionMessageParamUnion {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		asst.Content.OfString = openai.String(m.Content)
	}
	for _, call := range m.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func toToolParams(catalog []tool.CatalogEntry) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(catalog))
	for _, e := range catalog {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        e.Function.Name,
			Description: openai.String(e.Function.Description),
			Parameters:  openai.FunctionParameters(e.Function.Parameters),
		}))
	}
	return tools
}
