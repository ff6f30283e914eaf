package taskapi

import (
	_ "embed"

	schema "github.com/hanpama/taskgraph/internal/schema"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema document source.
func SDL() string { return schemaSDL }

// Schema builds the executable schema from the embedded SDL document.
func Schema() (*schema.Schema, error) {
	return schema.BuildFromSDL(schemaSDL)
}
