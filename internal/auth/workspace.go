package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/databricks/databricks-sdk-go"
)

// Workspace is an authenticated handle on one Databricks workspace.
type Workspace struct {
	client   *databricks.WorkspaceClient
	strategy Strategy
}

// Client exposes the underlying SDK client.
func (w *Workspace) Client() *databricks.WorkspaceClient {
	return w.client
}

// Strategy is the credential flow the handle was built with.
func (w *Workspace) Strategy() Strategy {
	return w.strategy
}

// Host is the workspace URL as resolved by the SDK.
func (w *Workspace) Host() string {
	if w.client == nil || w.client.Config == nil {
		return ""
	}
	return w.client.Config.Host
}

// Authenticate sets the credentials headers the SDK would send on r.
func (w *Workspace) Authenticate(r *http.Request) error {
	if w.client == nil || w.client.Config == nil {
		return fmt.Errorf("workspace client not configured")
	}
	return w.client.Config.Authenticate(r)
}

// check authenticates a throwaway request.
func (w *Workspace) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	return w.Authenticate(req)
}

// BearerToken returns a token usable against serving endpoints. Static
// tokens are returned directly; for OAuth flows the SDK mints one.
func (w *Workspace) BearerToken(ctx context.Context) (string, error) {
	if w.client != nil && w.client.Config != nil && w.client.Config.Token != "" {
		return w.client.Config.Token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.Host(), nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	if err := w.Authenticate(req); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}

	header := req.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("credentials did not yield a bearer token")
	}
	return token, nil
}
