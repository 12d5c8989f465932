// Package auth resolves Databricks workspace credentials.
//
// Strategies are tried in order:
//   - oauth-m2m: DATABRICKS_CLIENT_ID + DATABRICKS_CLIENT_SECRET, handed to
//     the SDK's own OAuth flow
//   - pat: DATABRICKS_HOST + DATABRICKS_TOKEN, host passed without scheme
//   - default: the SDK default credential chain (ambient identity)
//
// Resolve caches nothing: every call builds and authenticates a fresh
// workspace client. Both the catalog tools and the OpenAI-compatible serving
// client go through here. Only the trace exporter's token source keeps a
// handle.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/databricks/databricks-sdk-go"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/catalog-assistant/internal/config"
)

// Strategy names the credential flow selected for a resolution.
type Strategy string

const (
	StrategyOAuth   Strategy = "oauth-m2m"
	StrategyToken   Strategy = "pat"
	StrategyDefault Strategy = "default"
)

// Credentials are the raw values read from configuration.
type Credentials struct {
	Host         string
	Token        string
	ClientID     string
	ClientSecret string
}

// FromConfig copies workspace credentials out of the app configuration.
func FromConfig(cfg config.DatabricksConfig) Credentials {
	return Credentials{
		Host:         cfg.Host,
		Token:        cfg.Token,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
}

// strategy returns an SDK config when it applies to the credentials.
type strategy struct {
	name  Strategy
	build func(c Credentials) (*databricks.Config, bool)
}

var chain = []strategy{
	{
		name: StrategyOAuth,
		build: func(c Credentials) (*databricks.Config, bool) {
			if c.ClientID == "" || c.ClientSecret == "" {
				return nil, false
			}
			// The SDK picks the client id/secret up from its environment.
			return &databricks.Config{}, true
		},
	},
	{
		name: StrategyToken,
		build: func(c Credentials) (*databricks.Config, bool) {
			if c.Host == "" || c.Token == "" {
				return nil, false
			}
			return &databricks.Config{Host: StripScheme(c.Host), Token: c.Token}, true
		},
	},
	{
		name: StrategyDefault,
		build: func(Credentials) (*databricks.Config, bool) {
			return &databricks.Config{}, true
		},
	},
}

// Select walks the strategy chain and returns the first match.
func Select(c Credentials) (Strategy, *databricks.Config) {
	for _, s := range chain {
		if cfg, ok := s.build(c); ok {
			return s.name, cfg
		}
	}
	// unreachable: the default strategy always matches
	return StrategyDefault, &databricks.Config{}
}

// StripScheme removes a leading https:// from a workspace host.
func StripScheme(host string) string {
	return strings.TrimPrefix(host, "https://")
}

// ClientFactory builds a workspace client from an SDK config.
type ClientFactory func(cfg *databricks.Config) (*databricks.WorkspaceClient, error)

// Resolver hands out freshly authenticated workspace handles.
type Resolver struct {
	creds     Credentials
	newClient ClientFactory
}

// NewResolver creates a resolver backed by the Databricks SDK.
func NewResolver(creds Credentials) *Resolver {
	return &Resolver{
		creds: creds,
		newClient: func(cfg *databricks.Config) (*databricks.WorkspaceClient, error) {
			return databricks.NewWorkspaceClient(cfg)
		},
	}
}

// WithClientFactory swaps the SDK constructor. Used by tests.
func (r *Resolver) WithClientFactory(f ClientFactory) *Resolver {
	r.newClient = f
	return r
}

// Strategy reports which credential flow the current configuration selects.
func (r *Resolver) Strategy() Strategy {
	s, _ := Select(r.creds)
	return s
}

// Resolve selects a strategy, constructs a workspace handle and
// authenticates it once. It fails when no credentials are available.
func (r *Resolver) Resolve(ctx context.Context) (*Workspace, error) {
	name, cfg := Select(r.creds)
	client, err := r.newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve %s credentials: %w", name, err)
	}
	ws := &Workspace{client: client, strategy: name}
	if err := ws.check(ctx); err != nil {
		return nil, fmt.Errorf("resolve %s credentials: %w", name, err)
	}
	log.Debug().Str("strategy", string(name)).Msg("Workspace credentials resolved")
	return ws, nil
}

// BearerTokens returns a token source bound to one workspace handle. The
// handle is resolved on first use and kept so the SDK can refresh OAuth
// tokens on it; a failed resolution is retried on the next call.
func (r *Resolver) BearerTokens() func(ctx context.Context) (string, error) {
	var (
		mu sync.Mutex
		ws *Workspace
	)
	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if ws == nil {
			w, err := r.Resolve(ctx)
			if err != nil {
				return "", err
			}
			ws = w
		}
		return ws.BearerToken(ctx)
	}
}

// WorkspaceHost returns the configured host, falling back to the host the
// SDK resolves. Errors yield "".
func (r *Resolver) WorkspaceHost(ctx context.Context) string {
	if r.creds.Host != "" {
		return r.creds.Host
	}
	ws, err := r.Resolve(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Could not resolve workspace host")
		return ""
	}
	return ws.Host()
}
