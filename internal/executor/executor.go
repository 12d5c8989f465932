// Package executor runs the catalog assistant's tool-calling loop.
//
//	conversation → call serving endpoint with tool definitions →
//	if tool_calls, run each through the tool registry →
//	feed results back → repeat until a text answer or the iteration cap.
//
// Failures never escape Run: they become the error envelope.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agentoven/catalog-assistant/internal/config"
	"github.com/agentoven/catalog-assistant/internal/llm"
	"github.com/agentoven/catalog-assistant/internal/telemetry"
	"github.com/agentoven/catalog-assistant/internal/tools"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

// DefaultMaxIterations bounds the LLM ↔ tool loop.
const DefaultMaxIterations = 5

const (
	// IterationLimitAnswer is the answer once the loop runs out of turns.
	IterationLimitAnswer = "Agent stopped due to iteration limit or time limit."

	// NoResponseAnswer replaces an empty final answer.
	NoResponseAnswer = "I could not generate a response."
)

// SystemPrompt describes the assistant's capabilities to the model.
const SystemPrompt = `You are a helpful Databricks assistant that can explore Unity Catalog.

You have access to tools that let you:
- List all catalogs in the workspace
- List schemas within a specific catalog
- List tables within a specific schema
- List volumes within a specific schema

Use these tools to help users understand their data structure and find the information they need.
When listing items, present them in a clear, organized format.

Always be helpful and provide context about what you find. If a user asks about data,
start by exploring the catalog structure to understand what's available.`

// Executor runs the agent loop.
type Executor struct {
	clients llm.Factory
	tools   *tools.Registry
	tracing *telemetry.Tracing
	cfg     config.AgentConfig
}

// NewExecutor creates a new agent executor.
func NewExecutor(clients llm.Factory, reg *tools.Registry, tr *telemetry.Tracing, cfg config.AgentConfig) *Executor {
	if tr == nil {
		tr = telemetry.Nop()
	}
	return &Executor{
		clients: clients,
		tools:   reg,
		tracing: tr,
		cfg:     cfg,
	}
}

// Run answers the conversation and returns the envelope plus the trace id
// of the agent span.
func (e *Executor) Run(ctx context.Context, msgs []models.Message) (models.Envelope, string) {
	ctx, span := e.tracing.Start(ctx, "databricks_agent", telemetry.SpanAgent)
	defer span.End()
	traceID := telemetry.TraceID(ctx)

	query, ok := models.LastUserContent(msgs)
	if !ok {
		return models.PromptForInputEnvelope(e.cfg.Endpoint), traceID
	}

	start := time.Now()
	answer, turns, err := e.safeLoop(ctx, e.conversation(msgs))

	var env models.Envelope
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("trace_id", traceID).Msg("Error in agent execution")
		env = models.ErrorEnvelope(e.cfg.Endpoint, models.ErrorMessage(err))
	} else {
		log.Info().
			Str("trace_id", traceID).
			Int("turns", turns).
			Int64("total_ms", time.Since(start).Milliseconds()).
			Msg("Agent execution complete")
		env = models.AnswerEnvelope(e.cfg.Endpoint, answer)
	}

	if err := telemetry.UpdatePreviews(ctx, query, env.Content()); err != nil {
		log.Warn().Err(err).Msg("Failed to update trace previews")
	}
	return env, traceID
}

// conversation is the system prompt followed by the client's non-system
// messages up to and including the last user turn.
func (e *Executor) conversation(msgs []models.Message) []openai.ChatCompletionMessage {
	last := models.LastUserIndex(msgs)
	out := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt}}
	for _, m := range msgs[:last+1] {
		if m.Role == models.RoleSystem {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (e *Executor) maxIterations() int {
	if e.cfg.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return e.cfg.MaxIterations
}

// safeLoop runs the loop and turns a panic into an error.
func (e *Executor) safeLoop(ctx context.Context, messages []openai.ChatCompletionMessage) (answer string, turns int, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in agent execution")
			err = fmt.Errorf("%v", r)
		}
	}()
	return e.loop(ctx, messages)
}

func (e *Executor) loop(ctx context.Context, messages []openai.ChatCompletionMessage) (string, int, error) {
	client, err := e.clients(ctx)
	if err != nil {
		return "", 0, err
	}
	defs := e.tools.Definitions()

	maxTurns := e.maxIterations()
	for turn := 1; turn <= maxTurns; turn++ {
		msg, err := e.callModel(ctx, client, messages, defs, turn)
		if err != nil {
			return "", turn, fmt.Errorf("model call failed (turn %d): %w", turn, err)
		}

		if len(msg.ToolCalls) == 0 {
			answer := strings.TrimSpace(msg.Content)
			if answer == "" {
				answer = NoResponseAnswer
			}
			return answer, turn, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    e.callTool(ctx, tc),
				ToolCallID: tc.ID,
			})
		}
	}

	log.Warn().Int("max_iterations", maxTurns).Msg("Agent hit iteration limit")
	return IterationLimitAnswer, maxTurns, nil
}

func (e *Executor) callModel(ctx context.Context, client llm.ChatClient, messages []openai.ChatCompletionMessage, defs []openai.Tool, turn int) (openai.ChatCompletionMessage, error) {
	ctx, span := e.tracing.StartAuto(ctx, "ChatDatabricks", telemetry.SpanChatModel,
		attribute.String("llm.endpoint", e.cfg.Endpoint),
		attribute.Int("agent.turn", turn),
	)
	defer span.End()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.Endpoint,
		Messages:    messages,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: float32(e.cfg.Temperature),
		Tools:       defs,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return openai.ChatCompletionMessage{}, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("endpoint %s returned no choices", e.cfg.Endpoint)
		span.SetStatus(codes.Error, err.Error())
		return openai.ChatCompletionMessage{}, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
		attribute.Int("llm.tool_calls", len(resp.Choices[0].Message.ToolCalls)),
	)
	return resp.Choices[0].Message, nil
}

// callTool runs one tool call. Bad arguments and unknown tools come back as
// text so the model can correct itself.
func (e *Executor) callTool(ctx context.Context, tc openai.ToolCall) string {
	ctx, span := e.tracing.StartAuto(ctx, tc.Function.Name, telemetry.SpanTool,
		attribute.String("tool.arguments", models.Preview(tc.Function.Arguments, telemetry.PreviewLimit)),
	)
	defer span.End()

	start := time.Now()
	out := e.tools.Call(ctx, tc.Function.Name, tc.Function.Arguments)
	span.SetAttributes(attribute.String("tool.output", models.Preview(out, telemetry.PreviewLimit)))

	log.Debug().
		Str("tool", tc.Function.Name).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("Tool executed")
	return out
}
