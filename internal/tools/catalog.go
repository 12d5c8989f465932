package tools

import (
	"context"

	"github.com/agentoven/catalog-assistant/internal/catalog"
)

// Tool names of the Unity Catalog tools.
const (
	ListCatalogs = "list_catalogs"
	ListSchemas  = "list_schemas"
	ListTables   = "list_tables"
	ListVolumes  = "list_volumes"
)

var (
	catalogParam = Param{Name: "catalog_name", Description: "Name of the catalog", Required: true}
	schemaParam  = Param{Name: "schema_name", Description: "Name of the schema", Required: true}
)

// CatalogTools builds the four catalog exploration tools.
func CatalogTools(e *catalog.Explorer) []Tool {
	return []Tool{
		{
			Name:        ListCatalogs,
			Description: "List all available catalogs in the Databricks workspace.",
			Params: []Param{
				{Name: "query", Description: "Unused; catalogs are always listed in full"},
			},
			Handler: func(ctx context.Context, _ map[string]string) string {
				return e.ListCatalogs(ctx).String()
			},
		},
		{
			Name:        ListSchemas,
			Description: "List all schemas in a specific catalog. Requires the catalog name as input.",
			Params: []Param{
				{Name: "catalog_name", Description: "Name of the catalog to list schemas from", Required: true},
			},
			Handler: func(ctx context.Context, args map[string]string) string {
				return e.ListSchemas(ctx, args["catalog_name"]).String()
			},
		},
		{
			Name:        ListTables,
			Description: "List all tables in a specific schema. Requires catalog and schema names.",
			Params:      []Param{catalogParam, schemaParam},
			Handler: func(ctx context.Context, args map[string]string) string {
				return e.ListTables(ctx, args["catalog_name"], args["schema_name"]).String()
			},
		},
		{
			Name:        ListVolumes,
			Description: "List all volumes in a specific schema. Requires catalog and schema names.",
			Params:      []Param{catalogParam, schemaParam},
			Handler: func(ctx context.Context, args map[string]string) string {
				return e.ListVolumes(ctx, args["catalog_name"], args["schema_name"]).String()
			},
		},
	}
}

// NewCatalogRegistry returns a registry holding the catalog tools.
func NewCatalogRegistry(e *catalog.Explorer) *Registry {
	r := NewRegistry()
	for _, t := range CatalogTools(e) {
		if err := r.Register(t); err != nil {
			// names are constants; a clash is a programming error
			panic(err)
		}
	}
	return r
}
