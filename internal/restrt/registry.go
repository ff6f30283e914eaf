package restrt

import (
	"context"
	"sort"
)

// ResolverFunc resolves one occurrence of an async field. source is the parent
// object value as decoded JSON (nil for root fields) and args are the coerced
// GraphQL argument values.
//
// Implementations perform whatever backend I/O the field needs; restrt calls
// them only from BatchResolveAsync, never from ResolveSync.
type ResolverFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// Registry holds resolver functions keyed by "Type.field". Registration is
// not concurrency-safe; register everything before handing the registry to
// NewRuntime.
type Registry struct {
	resolvers map[string]ResolverFunc
}

func NewRegistry() *Registry {
	return &Registry{resolvers: map[string]ResolverFunc{}}
}

// Register binds fn to objectType.field, replacing any previous binding.
func (r *Registry) Register(objectType, field string, fn ResolverFunc) *Registry {
	r.resolvers[entryKey(objectType, field)] = fn
	return r
}

// Resolver returns the resolver bound to objectType.field, or nil when the
// field has no binding.
func (r *Registry) Resolver(objectType, field string) ResolverFunc {
	return r.resolvers[entryKey(objectType, field)]
}

// Entries returns every bound "Type.field" key in sorted order.
func (r *Registry) Entries() []string {
	keys := make([]string, 0, len(r.resolvers))
	for k := range r.resolvers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func entryKey(objectType, field string) string {
	return objectType + "." + field
}
