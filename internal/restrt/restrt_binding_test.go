package restrt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/taskgraph/internal/schema"
)

// taskSchema builds a small schema shaped like the task service surface.
func taskSchema() *schema.Schema {
	sch := schema.NewSchema("")
	sch.SetQueryType("Query")
	sch.SetMutationType("Mutation")
	sch.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("tasks", "", schema.ListType(schema.NamedType("Task")))))
	sch.AddType(schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(schema.NewField("updateTask", "", schema.NamedType("Question"))))
	sch.AddType(schema.NewType("Project", schema.TypeKindObject, "").
		AddField(schema.NewField("name", "", schema.NamedType("String"))))
	sch.AddType(schema.NewType("Task", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("Int")))).
		AddField(schema.NewField("title", "", schema.NamedType("String"))).
		AddField(schema.NewField("iconAsset", "", schema.NamedType("String"))).
		AddField(schema.NewField("questions", "", schema.ListType(schema.NamedType("Question")))))
	sch.AddType(schema.NewType("Question", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("Int")))))
	sch.AddType(schema.NewType("Status", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("OPEN", "")))
	sch.AddType(schema.NewType("Int", schema.TypeKindScalar, ""))
	sch.AddType(schema.NewType("String", schema.TypeKindScalar, ""))
	return sch
}

func nopResolver(ctx context.Context, source any, args map[string]any) (any, error) {
	return nil, nil
}

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := NewRuntime(taskSchema(), NewRegistry(), opts...)
	require.NoError(t, err)
	return rt
}

func TestNewRuntime_UnknownField_FailsNamingEntry(t *testing.T) {
	reg := NewRegistry().
		Register("Query", "tasks", nopResolver).
		Register("Project", "turds", nopResolver)

	_, err := NewRuntime(taskSchema(), reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Project.turds")
	require.NotContains(t, err.Error(), "Query.tasks")
}

func TestNewRuntime_UnknownType_FailsNamingEntry(t *testing.T) {
	reg := NewRegistry().Register("Ghost", "tasks", nopResolver)

	_, err := NewRuntime(taskSchema(), reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Ghost.tasks")
}

func TestNewRuntime_NonObjectType_FailsNamingEntry(t *testing.T) {
	reg := NewRegistry().Register("Status", "open", nopResolver)

	_, err := NewRuntime(taskSchema(), reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Status.open")
}

func TestNewRuntime_ListsAllUnknownEntriesSorted(t *testing.T) {
	reg := NewRegistry().
		Register("Task", "bogus", nopResolver).
		Register("Project", "turds", nopResolver)

	_, err := NewRuntime(taskSchema(), reg)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "Project.turds")
	require.Contains(t, msg, "Task.bogus")
	require.Less(t, strings.Index(msg, "Project.turds"), strings.Index(msg, "Task.bogus"))
}

func TestNewRuntime_MarksBoundFieldsAsync(t *testing.T) {
	sch := taskSchema()
	reg := NewRegistry().
		Register("Query", "tasks", nopResolver).
		Register("Task", "questions", nopResolver)

	_, err := NewRuntime(sch, reg)
	require.NoError(t, err)

	require.True(t, sch.Types["Query"].GetField("tasks").Async)
	require.True(t, sch.Types["Task"].GetField("questions").Async)
	require.False(t, sch.Types["Task"].GetField("id").Async)
	require.False(t, sch.Types["Mutation"].GetField("updateTask").Async)
}

func TestNewRuntime_GroupConcurrencyOption(t *testing.T) {
	rt := newTestRuntime(t, WithGroupConcurrency(2))
	require.Equal(t, 2, rt.groupLimit)

	// Values below 1 keep the default.
	rt = newTestRuntime(t, WithGroupConcurrency(0))
	require.Equal(t, defaultGroupConcurrency, rt.groupLimit)
}

// assetSchema adds an interface with two implementations on top of scalars.
func assetSchema() *schema.Schema {
	sch := schema.NewSchema("")
	sch.SetQueryType("Query")
	sch.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("assets", "", schema.ListType(schema.NamedType("Asset")))))
	sch.AddType(schema.NewType("Asset", schema.TypeKindInterface, "").
		AddPossibleType("ImageAsset").
		AddPossibleType("FileAsset").
		AddField(schema.NewField("url", "", schema.NamedType("String"))))
	sch.AddType(schema.NewType("ImageAsset", schema.TypeKindObject, "").
		AddInterface("Asset").
		AddField(schema.NewField("url", "", schema.NamedType("String"))))
	sch.AddType(schema.NewType("FileAsset", schema.TypeKindObject, "").
		AddInterface("Asset").
		AddField(schema.NewField("url", "", schema.NamedType("String"))))
	sch.AddType(schema.NewType("String", schema.TypeKindScalar, ""))
	return sch
}

func TestNewRuntime_InterfaceEntry_BindsPossibleTypes(t *testing.T) {
	sch := assetSchema()
	reg := NewRegistry().Register("Asset", "url", nopResolver)

	rt, err := NewRuntime(sch, reg)
	require.NoError(t, err)

	require.True(t, sch.Types["ImageAsset"].GetField("url").Async)
	require.True(t, sch.Types["FileAsset"].GetField("url").Async)
	require.NotNil(t, rt.dispatch["ImageAsset.url"])
	require.NotNil(t, rt.dispatch["FileAsset.url"])
}

func TestNewRuntime_ObjectEntry_WinsOverInterfaceFanOut(t *testing.T) {
	sch := assetSchema()
	fromInterface := func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "interface", nil
	}
	fromObject := func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "object", nil
	}
	reg := NewRegistry().
		Register("Asset", "url", fromInterface).
		Register("ImageAsset", "url", fromObject)

	rt, err := NewRuntime(sch, reg)
	require.NoError(t, err)

	v, err := rt.dispatch["ImageAsset.url"](context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "object", v)

	v, err = rt.dispatch["FileAsset.url"](context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "interface", v)
}
