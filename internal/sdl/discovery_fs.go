package sdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemDiscovery implements Discovery for filesystem-based GraphQL schemas
type FileSystemDiscovery struct {
	srcFilePaths map[SourceID]string
	srcMetas     map[SourceID]*SourceMetadata
}

// NewFileSystemDiscovery creates a new FileSystemDiscovery for the given root directory
func NewFileSystemDiscovery(ctx context.Context, rootDir string) (*FileSystemDiscovery, error) {
	discovery := &FileSystemDiscovery{
		srcFilePaths: make(map[SourceID]string),
		srcMetas:     make(map[SourceID]*SourceMetadata),
	}

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(d.Name()) != ".graphql" {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}

		srcName := strings.TrimSuffix(d.Name(), ".graphql")
		srcID := SourceID(relPath)

		discovery.srcFilePaths[srcID] = path
		discovery.srcMetas[srcID] = &SourceMetadata{
			ID:       srcID,
			Name:     srcName,
			FilePath: relPath,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	return discovery, nil
}

// ListSources returns the schema sources discovered in the filesystem
func (d *FileSystemDiscovery) ListSources(ctx context.Context) ([]*SourceMetadata, error) {
	srcs := make([]*SourceMetadata, 0, len(d.srcMetas))
	for _, src := range d.srcMetas {
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// ReadSource reads the GraphQL SDL content for a given source
func (d *FileSystemDiscovery) ReadSource(ctx context.Context, sourceID SourceID) (string, error) {
	fp, ok := d.srcFilePaths[sourceID]
	if !ok {
		return "", fmt.Errorf("source %q not found", sourceID)
	}
	content, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("failed to read source SDL for %q: %w", sourceID, err)
	}
	return string(content), nil
}

// Load is a convenience function that creates a FileSystemDiscovery and builds the project
func Load(rootDir string) (*Project, error) {
	discovery, err := NewFileSystemDiscovery(context.Background(), rootDir)
	if err != nil {
		return nil, err
	}
	return Build(context.Background(), discovery)
}
