package sdl

import (
	"context"

	language "github.com/hanpama/taskgraph/internal/language"
)

type builder struct {
	Schema      *Schema
	Definitions map[string]*Definition
	Directives  map[string]*DirectiveDefinition

	violations []*Violation
	discovery  Discovery
	sourceDocs map[SourceID]*language.SchemaDocument
}

func Build(ctx context.Context, disc Discovery) (*Project, error) {
	b := &builder{
		Schema:      nil,
		Definitions: make(map[string]*Definition),
		Directives:  make(map[string]*DirectiveDefinition),
		violations:  nil,
		discovery:   disc,
		sourceDocs:  make(map[SourceID]*language.SchemaDocument),
	}

	if err := b.build(ctx); err != nil {
		return nil, err
	}

	return &Project{
		Schema:      b.Schema,
		Definitions: b.Definitions,
		Directives:  b.Directives,
	}, nil
}

func (b *builder) build(ctx context.Context) (err error) {
	srcs, err := b.discovery.ListSources(ctx)
	if err != nil {
		return err
	}

	// Parse schema SDL sources
	for _, srcMeta := range srcs {
		content, err := b.discovery.ReadSource(ctx, srcMeta.ID)
		if err != nil {
			return err
		}
		document, err := language.ParseSchema(srcMeta.FilePath, content)
		if err != nil {
			return err
		}
		b.sourceDocs[srcMeta.ID] = document
	}

	// Load built-in scalars
	b.Definitions["String"] = &Definition{Scalar: StringType}
	b.Definitions["Int"] = &Definition{Scalar: IntType}
	b.Definitions["Float"] = &Definition{Scalar: FloatType}
	b.Definitions["Boolean"] = &Definition{Scalar: BooleanType}
	b.Definitions["ID"] = &Definition{Scalar: IDType}
	b.Definitions["Upload"] = &Definition{Scalar: UploadType}

	// Populate definitions
	if err = b.populateDefinitions(); err != nil {
		return err
	}

	// Process schema definitions
	if err = b.processSchemaDefinitions(); err != nil {
		return err
	}

	// Populate references including fields, input values and union types
	if err = b.populateReferences(); err != nil {
		return err
	}
	// Populate interface implementations and union members
	if err = b.populateImplementations(); err != nil {
		return err
	}

	// Populate directives
	if err = b.populateDirectiveDefinitions(); err != nil {
		return err
	}

	// Populate directive uses (deprecations, specifiedBy, oneOf)
	if err = b.populateDirectiveUses(); err != nil {
		return err
	}

	return nil
}

func (b *builder) addViolation(v ...*Violation) {
	b.violations = append(b.violations, v...)
}
