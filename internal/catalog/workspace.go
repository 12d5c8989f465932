package catalog

import (
	"context"

	"github.com/databricks/databricks-sdk-go"
	uc "github.com/databricks/databricks-sdk-go/service/catalog"

	"github.com/agentoven/catalog-assistant/internal/auth"
)

// WorkspaceLister reads Unity Catalog through the Databricks SDK.
type WorkspaceLister struct {
	w *databricks.WorkspaceClient
}

// NewWorkspaceLister wraps an SDK workspace client.
func NewWorkspaceLister(w *databricks.WorkspaceClient) *WorkspaceLister {
	return &WorkspaceLister{w: w}
}

// WorkspaceConnector resolves credentials through r on every call.
func WorkspaceConnector(r *auth.Resolver) Connector {
	return func(ctx context.Context) (Lister, error) {
		ws, err := r.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		return NewWorkspaceLister(ws.Client()), nil
	}
}

func (l *WorkspaceLister) Catalogs(ctx context.Context) ([]Entry, error) {
	infos, err := l.w.Catalogs.ListAll(ctx, uc.ListCatalogsRequest{})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, c := range infos {
		out = append(out, Entry{Name: c.Name})
	}
	return out, nil
}

func (l *WorkspaceLister) Schemas(ctx context.Context, catalog string) ([]Entry, error) {
	infos, err := l.w.Schemas.ListAll(ctx, uc.ListSchemasRequest{CatalogName: catalog})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, s := range infos {
		out = append(out, Entry{Name: s.Name})
	}
	return out, nil
}

func (l *WorkspaceLister) Tables(ctx context.Context, catalog, schema string) ([]Entry, error) {
	infos, err := l.w.Tables.ListAll(ctx, uc.ListTablesRequest{CatalogName: catalog, SchemaName: schema})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, t := range infos {
		out = append(out, Entry{Name: t.Name, Type: string(t.TableType)})
	}
	return out, nil
}

func (l *WorkspaceLister) Volumes(ctx context.Context, catalog, schema string) ([]Entry, error) {
	infos, err := l.w.Volumes.ListAll(ctx, uc.ListVolumesRequest{CatalogName: catalog, SchemaName: schema})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, v := range infos {
		out = append(out, Entry{Name: v.Name, Type: string(v.VolumeType)})
	}
	return out, nil
}
