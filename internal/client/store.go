package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// storeMaxItems bounds how many cached results and harvested entities the
// store keeps before admission starts evicting.
const storeMaxItems = 4096

// Store caches operation results and the entities found inside them.
//
// Query results are keyed by operation name plus the canonical JSON of the
// variables. Entities are keyed by their identifier alone: every object in a
// response that carries an "id" is indexed under it. The store is never
// patched in place; re-running a query is the only way an entry changes.
type Store struct {
	cache *ristretto.Cache[string, any]
}

func NewStore() (*Store, error) {
	cache, err := ristretto.NewCache[string, any](&ristretto.Config[string, any]{
		NumCounters: storeMaxItems * 10,
		MaxCost:     storeMaxItems,
		BufferItems: 64,
		Metrics:     true,
		Cost: func(val any) int64 {
			return 1
		},
	})
	if err != nil {
		return nil, fmt.Errorf("client: build store: %w", err)
	}
	return &Store{cache: cache}, nil
}

// PutQuery records a query result and indexes every entity it contains. The
// write is flushed before returning, so a Get that follows sees it.
func (s *Store) PutQuery(name string, variables map[string]any, data any) {
	_ = s.cache.Set(queryKey(name, variables), data, 1)
	s.harvest(data)
	s.cache.Wait()
}

// Query returns the cached result for the operation, if any.
func (s *Store) Query(name string, variables map[string]any) (any, bool) {
	return s.cache.Get(queryKey(name, variables))
}

// Entity returns the last harvested object stored under id.
func (s *Store) Entity(id string) (map[string]any, bool) {
	v, ok := s.cache.Get(entityKey(id))
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Metrics exposes the underlying cache counters.
func (s *Store) Metrics() *ristretto.Metrics {
	return s.cache.Metrics
}

func (s *Store) Close() {
	s.cache.Close()
}

// harvest walks a decoded response and indexes every object that carries an
// identifier.
func (s *Store) harvest(v any) {
	switch node := v.(type) {
	case map[string]any:
		if id, ok := identity(node); ok {
			_ = s.cache.Set(entityKey(id), node, 1)
		}
		for _, child := range node {
			s.harvest(child)
		}
	case []any:
		for _, child := range node {
			s.harvest(child)
		}
	}
}

// identity extracts the entity identifier of a decoded object. Responses are
// decoded with json.Number, but harvested objects may also come from caller
// supplied fixtures, so the plain number types are accepted too.
func identity(obj map[string]any) (string, bool) {
	switch id := obj["id"].(type) {
	case json.Number:
		return id.String(), true
	case string:
		return id, id != ""
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}

// queryKey is the cache key of one operation with one set of variables.
// json.Marshal writes map keys in sorted order, which makes the encoding
// canonical.
func queryKey(name string, variables map[string]any) string {
	if len(variables) == 0 {
		return "query:" + name
	}
	vars, err := json.Marshal(variables)
	if err != nil {
		return "query:" + name + ":" + fmt.Sprintf("%v", variables)
	}
	return "query:" + name + ":" + string(vars)
}

func entityKey(id string) string {
	return "entity:" + id
}
