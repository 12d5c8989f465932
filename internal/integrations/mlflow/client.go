// Package mlflow talks to the workspace's MLflow tracking server over REST.
// Only the feedback path is needed here: span export goes through OTLP.
package mlflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/databricks/databricks-sdk-go/client"
	sdkconfig "github.com/databricks/databricks-sdk-go/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/catalog-assistant/internal/auth"
)

// ── Assessment Format ────────────────────────────────────────

// Source identifies who produced an assessment.
type Source struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
}

// UserFeedbackSource is attached to every assessment logged from the UI.
var UserFeedbackSource = Source{SourceType: "LLM_JUDGE", SourceID: "user_feedback"}

// Assessment is one feedback value attached to a trace.
type Assessment struct {
	TraceID string
	Name    string
	// Value is a string, float64 or bool.
	Value any
}

type feedbackValue struct {
	Value any `json:"value"`
}

type assessmentBody struct {
	TraceID        string        `json:"trace_id"`
	AssessmentName string        `json:"assessment_name"`
	Source         Source        `json:"source"`
	Feedback       feedbackValue `json:"feedback"`
	CreateTime     string        `json:"create_time"`
}

type createAssessmentRequest struct {
	Assessment assessmentBody `json:"assessment"`
}

// ValidValue reports whether v can be logged as feedback.
func ValidValue(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, json.Number:
		return true
	default:
		return false
	}
}

// ── Client ───────────────────────────────────────────────────

// Doer sends one authenticated REST call to a workspace.
// *client.DatabricksClient satisfies it.
type Doer interface {
	Do(ctx context.Context, method, path string,
		headers map[string]string, queryParams map[string]any, request, response any,
		visitors ...func(*http.Request) error) error
}

// Connector yields a REST client per call.
type Connector func(ctx context.Context) (Doer, error)

// ResolverConnector builds an SDK REST client from freshly resolved
// workspace credentials.
func ResolverConnector(r *auth.Resolver) Connector {
	return func(ctx context.Context) (Doer, error) {
		ws, err := r.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		wc := ws.Client()
		if wc == nil {
			return nil, fmt.Errorf("workspace client is not initialized")
		}
		return ConfigConnector(wc.Config)(ctx)
	}
}

// ConfigConnector builds an SDK REST client from an explicit config.
func ConfigConnector(cfg *sdkconfig.Config) Connector {
	return func(context.Context) (Doer, error) {
		if cfg == nil {
			return nil, fmt.Errorf("workspace config is not initialized")
		}
		c, err := client.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("mlflow client: %w", err)
		}
		return c, nil
	}
}

// Client logs assessments through the SDK's REST client. The application
// makes one call per assessment; transport-level retries on 429/503 and
// connection resets are the SDK's.
type Client struct {
	connect Connector
}

// NewClient creates an MLflow REST client.
func NewClient(connect Connector) *Client {
	return &Client{connect: connect}
}

// LogFeedback attaches a feedback assessment to a trace.
func (c *Client) LogFeedback(ctx context.Context, a Assessment) error {
	if a.TraceID == "" {
		return fmt.Errorf("trace id is required")
	}
	if !ValidValue(a.Value) {
		return fmt.Errorf("unsupported assessment value type %T", a.Value)
	}

	api, err := c.connect(ctx)
	if err != nil {
		return err
	}

	req := createAssessmentRequest{Assessment: assessmentBody{
		TraceID:        a.TraceID,
		AssessmentName: a.Name,
		Source:         UserFeedbackSource,
		Feedback:       feedbackValue{Value: a.Value},
		CreateTime:     time.Now().UTC().Format(time.RFC3339Nano),
	}}
	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Request-Id": uuid.NewString(),
	}
	path := fmt.Sprintf("/api/3.0/mlflow/traces/%s/assessments", url.PathEscape(a.TraceID))

	var resp map[string]any
	if err := api.Do(ctx, http.MethodPost, path, headers, nil, req, &resp); err != nil {
		return fmt.Errorf("log feedback: %w", err)
	}

	log.Info().Str("trace_id", a.TraceID).Msg("Feedback logged to MLflow")
	return nil
}

// BaseURL normalises a workspace host to an https URL without trailing slash.
func BaseURL(host string) string {
	host = strings.TrimSuffix(host, "/")
	if host == "" || strings.HasPrefix(host, "https://") || strings.HasPrefix(host, "http://") {
		return host
	}
	return "https://" + host
}

// TracesURL is the OTLP/HTTP traces endpoint on a workspace, or "" when the
// host is unknown.
func TracesURL(host, path string) string {
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return BaseURL(host) + path
}

// ExperimentLink is the workspace URL of an experiment's trace view, or ""
// when the host is unknown.
func ExperimentLink(host, experimentID string) string {
	if host == "" {
		return ""
	}
	return fmt.Sprintf("%s/ml/experiments/%s?compareRunsMode=TRACES", BaseURL(host), experimentID)
}
