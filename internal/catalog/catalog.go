// Package catalog implements the Unity Catalog exploration tools: list
// catalogs, schemas, tables and volumes, rendered as one sentence each.
//
// Lookups never return Go errors to the caller. Failures come back as a
// Result carrying a ToolError so the agent can read them like any other
// tool output.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultTableType is reported when the table type is unknown.
const DefaultTableType = "TABLE"

// Entry is one named object returned by a list API.
type Entry struct {
	Name string
	Type string
}

// Lister is the slice of the workspace API the tools depend on.
type Lister interface {
	Catalogs(ctx context.Context) ([]Entry, error)
	Schemas(ctx context.Context, catalog string) ([]Entry, error)
	Tables(ctx context.Context, catalog, schema string) ([]Entry, error)
	Volumes(ctx context.Context, catalog, schema string) ([]Entry, error)
}

// Connector returns a Lister bound to freshly resolved credentials.
type Connector func(ctx context.Context) (Lister, error)

// Explorer runs the four catalog tools.
type Explorer struct {
	connect Connector
}

// NewExplorer creates an explorer that resolves credentials on every call.
func NewExplorer(connect Connector) *Explorer {
	return &Explorer{connect: connect}
}

// ListCatalogs lists every catalog in the workspace.
func (e *Explorer) ListCatalogs(ctx context.Context) Result {
	action := "listing catalogs"
	entries, terr := e.list(ctx, action, func(l Lister) ([]Entry, error) {
		return l.Catalogs(ctx)
	})
	if terr != nil {
		return Result{Err: terr}
	}

	found := names(entries)
	if len(found) == 0 {
		return Result{Text: "No catalogs found in the workspace."}
	}
	return Result{Text: "Available catalogs: " + strings.Join(found, ", ")}
}

// ListSchemas lists the schemas of one catalog.
func (e *Explorer) ListSchemas(ctx context.Context, catalog string) Result {
	action := fmt.Sprintf("listing schemas in catalog %q", catalog)
	entries, terr := e.list(ctx, action, func(l Lister) ([]Entry, error) {
		return l.Schemas(ctx, catalog)
	})
	if terr != nil {
		return Result{Err: terr}
	}

	found := names(entries)
	if len(found) == 0 {
		return Result{Text: fmt.Sprintf("No schemas found in catalog %q.", catalog)}
	}
	return Result{Text: fmt.Sprintf("Schemas in catalog %q: %s", catalog, strings.Join(found, ", "))}
}

// ListTables lists the tables of one schema, each annotated with its type.
func (e *Explorer) ListTables(ctx context.Context, catalog, schema string) Result {
	scope := catalog + "." + schema
	entries, terr := e.list(ctx, "listing tables in "+scope, func(l Lister) ([]Entry, error) {
		return l.Tables(ctx, catalog, schema)
	})
	if terr != nil {
		return Result{Err: terr}
	}

	var infos []string
	for _, t := range entries {
		if t.Name == "" {
			continue
		}
		typ := t.Type
		if typ == "" {
			typ = DefaultTableType
		}
		infos = append(infos, fmt.Sprintf("%s (%s)", t.Name, typ))
	}
	if len(infos) == 0 {
		return Result{Text: fmt.Sprintf("No tables found in %s.", scope)}
	}
	return Result{Text: fmt.Sprintf("Tables in %s: %s", scope, strings.Join(infos, ", "))}
}

// ListVolumes lists the volumes of one schema.
func (e *Explorer) ListVolumes(ctx context.Context, catalog, schema string) Result {
	scope := catalog + "." + schema
	entries, terr := e.list(ctx, "listing volumes in "+scope, func(l Lister) ([]Entry, error) {
		return l.Volumes(ctx, catalog, schema)
	})
	if terr != nil {
		return Result{Err: terr}
	}

	found := names(entries)
	if len(found) == 0 {
		return Result{Text: fmt.Sprintf("No volumes found in %s.", scope)}
	}
	return Result{Text: fmt.Sprintf("Volumes in %s: %s", scope, strings.Join(found, ", "))}
}

func (e *Explorer) list(ctx context.Context, action string, call func(Lister) ([]Entry, error)) ([]Entry, *ToolError) {
	lister, err := e.connect(ctx)
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Catalog tool could not resolve credentials")
		return nil, &ToolError{Kind: ErrCredentials, Action: action, Cause: err}
	}

	entries, err := call(lister)
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Catalog list call failed")
		return nil, &ToolError{Kind: ErrRemote, Action: action, Cause: err}
	}
	return entries, nil
}

// names drops entries without a name.
func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			out = append(out, e.Name)
		}
	}
	return out
}
