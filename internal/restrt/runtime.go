package restrt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/taskgraph/internal/executor"
	"github.com/hanpama/taskgraph/internal/schema"
)

// defaultGroupConcurrency caps how many (objectType, field) groups resolve in
// parallel within a single BatchResolveAsync call.
const defaultGroupConcurrency = 4

// Runtime implements executor.Runtime on top of resolver functions that call
// REST backends.
// Invariants and boundaries:
//   - Registry trust: NewRuntime rejects resolver entries naming a type or
//     field the schema does not define. A lookup miss after construction
//     indicates the schema was mutated and causes panic.
//   - Source/value shape: object values are map[string]any decoded from JSON
//     bodies. Violations cause panic rather than being hidden behind
//     recoverable errors.
//   - Concurrency: BatchResolveAsync groups tasks by (objectType, field) and
//     executes groups in parallel, capped by WithGroupConcurrency. Resolver
//     functions must be concurrency-safe.
//   - Determinism: Results preserve input ordering; partial success is supported.
type Runtime struct {
	sch        *schema.Schema
	reg        *Registry
	groupLimit int
	// dispatch maps concrete "Type.field" keys to resolver functions. Entries
	// registered on an interface type are fanned out here to every possible
	// type, so BatchResolveAsync only ever looks up concrete object types.
	dispatch map[string]ResolverFunc
}

var _ executor.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithGroupConcurrency sets how many resolver groups may run in parallel per
// batch. Values below 1 are ignored.
func WithGroupConcurrency(n int) Option {
	return func(r *Runtime) {
		if n >= 1 {
			r.groupLimit = n
		}
	}
}

// NewRuntime binds the registry's resolvers to sch and returns the runtime.
//
// Every registry entry must name an object or interface type and a field
// defined on it; otherwise NewRuntime returns an error listing the offending
// entries. Bound fields are marked async on sch so the executor routes them
// through BatchResolveAsync; everything else keeps resolving synchronously
// from the parent source.
//
// An entry on an interface type binds the resolver to the same-named field of
// every possible type. An entry on the object itself takes precedence over one
// inherited from an interface.
func NewRuntime(sch *schema.Schema, reg *Registry, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		sch:        sch,
		reg:        reg,
		groupLimit: defaultGroupConcurrency,
		dispatch:   map[string]ResolverFunc{},
	}
	for _, opt := range opts {
		opt(r)
	}
	entries := reg.Entries()
	var unknown []string
	for _, key := range entries {
		typeName, field := splitEntry(key)
		t := sch.Types[typeName]
		if t == nil || (t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface) || t.GetField(field) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("resolvers defined for fields not in schema: %s", strings.Join(unknown, ", "))
	}
	// Object entries bind first so they win over interface fan-out.
	for _, key := range entries {
		typeName, field := splitEntry(key)
		t := sch.Types[typeName]
		if t.Kind != schema.TypeKindObject {
			continue
		}
		t.GetField(field).SetAsync(true)
		r.dispatch[key] = reg.Resolver(typeName, field)
	}
	for _, key := range entries {
		typeName, field := splitEntry(key)
		t := sch.Types[typeName]
		if t.Kind != schema.TypeKindInterface {
			continue
		}
		fn := reg.Resolver(typeName, field)
		for _, possible := range t.PossibleTypes {
			obj := sch.Types[possible]
			if obj == nil {
				continue
			}
			f := obj.GetField(field)
			if f == nil {
				continue
			}
			concrete := entryKey(possible, field)
			if _, bound := r.dispatch[concrete]; bound {
				continue
			}
			f.SetAsync(true)
			r.dispatch[concrete] = fn
		}
	}
	return r, nil
}

// ResolveSync resolves only projection fields from the parent source.
// It NEVER performs network I/O. All registered resolvers (I/O) run in
// BatchResolveAsync. If the field is not present on the source, return
// (nil, nil) to produce a GraphQL null for nullable fields.
//
// Source contract: the executor feeds back whatever value the runtime returned
// for a parent object. Here we expect source to be a map[string]any decoded
// from a JSON body, and we read the field directly from that map. Task service
// payloads use snake_case keys, so a field missing under its GraphQL name is
// retried under its snake_case spelling.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	// No I/O and no resolver lookup in ResolveSync.
	_ = ctx
	_ = args

	obj, ok := source.(map[string]any)
	if !ok {
		panic(fmt.Sprintf("ResolveSync: source for %s.%s must be map[string]any, got %T", objectType, field, source))
	}
	if v, ok := obj[field]; ok {
		return v, nil
	}
	if v, ok := obj[snakeCase(field)]; ok {
		return v, nil
	}
	return nil, nil
}

// BatchResolveAsync executes registered resolvers. All I/O happens here.
// The executor guarantees only async fields reach this method in a single
// batch per depth.
//
// Concurrency and determinism:
//   - Tasks are grouped by (objectType, field); groups execute in parallel up
//     to the configured group concurrency, tasks within a group in order.
//   - Results are written into pre-determined slots to preserve input ordering
//     per task.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	// Group by objectType and field
	type groupKey struct {
		objectType string
		field      string
	}
	type group struct {
		objectType string
		field      string
		idxs       []int
	}
	groups := []group{}
	idxByKey := map[groupKey]int{}
	for i, t := range tasks {
		k := groupKey{objectType: t.ObjectType, field: t.Field}
		if gi, ok := idxByKey[k]; ok {
			groups[gi].idxs = append(groups[gi].idxs, i)
		} else {
			idxByKey[k] = len(groups)
			groups = append(groups, group{objectType: t.ObjectType, field: t.Field, idxs: []int{i}})
		}
	}
	run := func(g group) {
		fn := r.dispatch[entryKey(g.objectType, g.field)]
		if fn == nil {
			panic(fmt.Sprintf("BatchResolveAsync: no resolver registered for %s.%s", g.objectType, g.field))
		}
		for _, i := range g.idxs {
			value, err := fn(ctx, tasks[i].Source, tasks[i].Args)
			if err != nil {
				results[i] = executor.AsyncResolveResult{Error: err}
				continue
			}
			results[i] = executor.AsyncResolveResult{Value: value}
		}
	}

	if len(groups) > 1 {
		var eg errgroup.Group
		eg.SetLimit(r.groupLimit)
		for _, g := range groups {
			eg.Go(func() error {
				run(g)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		run(groups[0])
	}
	return results
}

// ResolveType resolves the concrete type of an abstract GraphQL type based on
// the value. REST payloads carry no type information of their own, so
// polymorphic objects must include a "__typename" key.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	obj, ok := value.(map[string]any)
	if !ok || obj == nil {
		return "", fmt.Errorf("ResolveType expects map[string]any, got %T", value)
	}
	name, ok := obj["__typename"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("cannot infer concrete type for %s: value has no __typename", abstractType)
	}
	return name, nil
}

// ResolveUnionConcreteValue returns the value unchanged. JSON payloads carry
// the concrete representation inline next to their __typename tag.
func (r *Runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return value, nil
}

// ResolveInterfaceConcreteValue returns the value unchanged, like
// ResolveUnionConcreteValue.
func (r *Runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return value, nil
}

// SerializeLeafValue serializes a scalar or enum value for the response.
// Response bodies are decoded with json.Number so 64-bit ids survive intact;
// numbers are normalized here against the schema type name. Byte slices are
// base64-encoded.
func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return normalizeNumber(scalarOrEnumTypeName, v)
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	default:
		return v, nil
	}
}

// ----------------- helpers -----------------

func normalizeNumber(typeName string, n json.Number) (any, error) {
	switch typeName {
	case "Int":
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid Int", n.String())
		}
		return i, nil
	case "Float":
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid Float", n.String())
		}
		return f, nil
	case "ID", "String":
		return n.String(), nil
	default:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", n.String())
		}
		return f, nil
	}
}

func splitEntry(key string) (objectType, field string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return key, ""
}

// snakeCase converts a GraphQL field name like "iconAsset" to the
// "icon_asset" spelling task service payloads use.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
