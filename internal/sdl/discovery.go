package sdl

import (
	"context"
)

type SourceMetadata struct {
	ID       SourceID
	Name     string
	FilePath string
}

// SourceID is a unique identifier for a schema source file.
type SourceID string

type Discovery interface {
	ListSources(ctx context.Context) ([]*SourceMetadata, error)
	ReadSource(ctx context.Context, id SourceID) (string, error)
}
