package sdl

import (
	"context"
	"fmt"
)

type InMemorySource struct {
	Name    string
	Content string
}

// InMemoryDiscovery is a test implementation of Discovery that stores data in memory
type InMemoryDiscovery struct {
	sources  map[SourceID]*SourceMetadata
	contents map[SourceID]string
}

// NewInMemoryDiscovery creates a new InMemoryDiscovery instance
func NewInMemoryDiscovery(srcs []InMemorySource) *InMemoryDiscovery {
	discovery := &InMemoryDiscovery{
		sources:  make(map[SourceID]*SourceMetadata),
		contents: make(map[SourceID]string),
	}

	for _, src := range srcs {
		filePath := src.Name + ".graphql"
		discovery.sources[SourceID(src.Name)] = &SourceMetadata{
			ID:       SourceID(src.Name),
			Name:     src.Name,
			FilePath: filePath,
		}
		discovery.contents[SourceID(src.Name)] = src.Content
	}
	return discovery
}

// ListSources implements Discovery interface
func (d *InMemoryDiscovery) ListSources(ctx context.Context) ([]*SourceMetadata, error) {
	srcs := make([]*SourceMetadata, 0, len(d.sources))
	for _, src := range d.sources {
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// ReadSource implements Discovery interface
func (d *InMemoryDiscovery) ReadSource(ctx context.Context, sourceID SourceID) (string, error) {
	content, exists := d.contents[sourceID]
	if !exists {
		return "", fmt.Errorf("source %q not found", sourceID)
	}
	return content, nil
}
