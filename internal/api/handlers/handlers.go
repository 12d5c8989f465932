// Package handlers implements the catalog assistant's /api endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/catalog-assistant/internal/integrations/mlflow"
	"github.com/agentoven/catalog-assistant/internal/tools"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

// AgentRunner answers a conversation with the tool-calling agent.
type AgentRunner interface {
	Run(ctx context.Context, msgs []models.Message) (models.Envelope, string)
}

// EndpointInvoker forwards a conversation to a serving endpoint.
type EndpointInvoker interface {
	Invoke(ctx context.Context, endpoint string, msgs []models.Message) (models.Envelope, error)
}

// FeedbackLogger attaches assessments to traces.
type FeedbackLogger interface {
	LogFeedback(ctx context.Context, a mlflow.Assessment) error
}

// TracingStatus reports the process-wide tracing configuration.
type TracingStatus interface {
	ExperimentID() string
	Status() (string, error)
}

// ToolCatalog lists the tools available to the agent.
type ToolCatalog interface {
	Schemas() []tools.ToolSchema
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Runner    AgentRunner
	Endpoints EndpointInvoker
	Feedback  FeedbackLogger
	Tracing   TracingStatus
	Tools     ToolCatalog
	// WorkspaceHost resolves the host used for experiment links.
	WorkspaceHost func(ctx context.Context) string
	Environment   string
	Now           func() time.Time
}

func (h *Handlers) nowMillis() int64 {
	if h.Now != nil {
		return h.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// ── Tracing & Health ─────────────────────────────────────────

// ExperimentInfo links the UI to the experiment receiving traces.
type ExperimentInfo struct {
	ExperimentID *string `json:"experiment_id"`
	Link         *string `json:"link"`
}

// TracingExperiment handles GET /api/tracing_experiment.
func (h *Handlers) TracingExperiment(w http.ResponseWriter, r *http.Request) {
	id := h.Tracing.ExperimentID()

	var host string
	if h.WorkspaceHost != nil {
		host = h.WorkspaceHost(r.Context())
	}

	respondJSON(w, http.StatusOK, ExperimentInfo{
		ExperimentID: optional(id),
		Link:         optional(mlflow.ExperimentLink(host, id)),
	})
}

// Health handles GET /api/health. An unhealthy status is still a 200.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	id, err := h.Tracing.Status()
	if err != nil {
		log.Error().Err(err).Msg("Health check failed")
		respondJSON(w, http.StatusOK, map[string]any{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": h.nowMillis(),
		})
		return
	}

	log.Debug().Msg("Health check passed")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"timestamp":            h.nowMillis(),
		"mlflow_experiment_id": optional(id),
		"environment":          h.Environment,
	})
}

// ── Agent ────────────────────────────────────────────────────

// AgentRequest is the body of POST /api/agent.
type AgentRequest struct {
	Inputs struct {
		Messages []models.Message `json:"messages"`
	} `json:"inputs"`
}

// AgentResponse carries the envelope and the trace to attach feedback to.
type AgentResponse struct {
	Response models.Envelope `json:"response"`
	TraceID  *string         `json:"trace_id"`
}

// Agent handles POST /api/agent.
func (h *Handlers) Agent(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msgs := req.Inputs.Messages
	if err := models.ValidateMessages(msgs); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var preview string
	if len(msgs) > 0 {
		preview = models.Preview(msgs[len(msgs)-1].Content, 100)
	}
	log.Info().Str("message", preview).Msg("Agent request received")

	env, traceID := h.Runner.Run(r.Context(), msgs)

	log.Info().Str("trace_id", traceID).Msg("Agent response generated")
	respondJSON(w, http.StatusOK, AgentResponse{Response: env, TraceID: optional(traceID)})
}

// ── Feedback ─────────────────────────────────────────────────

// AssessmentRequest is the body of POST /api/log_assessment.
type AssessmentRequest struct {
	TraceID         string `json:"trace_id"`
	AssessmentName  string `json:"assessment_name"`
	AssessmentValue any    `json:"assessment_value"`
}

// LogAssessment handles POST /api/log_assessment.
func (h *Handlers) LogAssessment(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	switch {
	case req.TraceID == "":
		respondError(w, http.StatusUnprocessableEntity, "trace_id is required")
		return
	case req.AssessmentName == "":
		respondError(w, http.StatusUnprocessableEntity, "assessment_name is required")
		return
	case !mlflow.ValidValue(req.AssessmentValue):
		respondError(w, http.StatusUnprocessableEntity, "assessment_value must be a string, number or boolean")
		return
	}

	log.Info().
		Str("trace_id", req.TraceID).
		Str("assessment", fmt.Sprintf("%s=%v", req.AssessmentName, req.AssessmentValue)).
		Msg("User feedback")

	err := h.Feedback.LogFeedback(r.Context(), mlflow.Assessment{
		TraceID: req.TraceID,
		Name:    req.AssessmentName,
		Value:   req.AssessmentValue,
	})
	if err != nil {
		log.Error().Err(err).Str("trace_id", req.TraceID).Msg("Failed to log feedback")
		internalError(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ── Model Serving ────────────────────────────────────────────

// EndpointRequest is the body of POST /api/invoke_endpoint.
type EndpointRequest struct {
	EndpointName string           `json:"endpoint_name"`
	Messages     []models.Message `json:"messages"`
}

// InvokeEndpoint handles POST /api/invoke_endpoint.
func (h *Handlers) InvokeEndpoint(w http.ResponseWriter, r *http.Request) {
	var req EndpointRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.EndpointName == "" {
		respondError(w, http.StatusUnprocessableEntity, "endpoint_name is required")
		return
	}
	if err := models.ValidateMessages(req.Messages); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	env, err := h.Endpoints.Invoke(r.Context(), req.EndpointName, req.Messages)
	if err != nil {
		log.Error().Err(err).Str("endpoint", req.EndpointName).Msg("Endpoint invocation failed")
		internalError(w)
		return
	}
	respondJSON(w, http.StatusOK, env)
}

// ── Tools ────────────────────────────────────────────────────

// ListTools handles GET /api/tools.
func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Tools.Schemas())
}

// ── Helpers ──────────────────────────────────────────────────

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func internalError(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
