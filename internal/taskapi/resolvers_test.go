package taskapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	restrt "github.com/hanpama/taskgraph/internal/restrt"
	resttp "github.com/hanpama/taskgraph/internal/resttp"
	server "github.com/hanpama/taskgraph/internal/server"
	taskapi "github.com/hanpama/taskgraph/internal/taskapi"
)

// Every registered resolver must name a schema field; building the runtime
// against the embedded schema enforces the pairing.
func TestResolvers_CoverEmbeddedSchema(t *testing.T) {
	sch, err := taskapi.Schema()
	require.NoError(t, err)

	c := taskapi.New(resttp.New(resttp.WithBaseURL("http://backend.invalid")), nil)
	_, err = restrt.NewRuntime(sch, taskapi.Resolvers(c))
	require.NoError(t, err)

	require.True(t, sch.Types["Query"].GetField("tasks").Async)
	require.True(t, sch.Types["Query"].GetField("task").Async)
	require.True(t, sch.Types["Task"].GetField("questions").Async)
	require.True(t, sch.Types["Mutation"].GetField("updateTask").Async)
	require.True(t, sch.Types["Mutation"].GetField("attachTaskIcon").Async)
	require.False(t, sch.Types["Task"].GetField("iconAsset").Async)
}

func TestTasksResolver_RequiresProjectID(t *testing.T) {
	c := taskapi.New(resttp.New(resttp.WithBaseURL("http://backend.invalid")), nil)
	fn := taskapi.Resolvers(c).Resolver("Query", "tasks")
	require.NotNil(t, fn)

	_, err := fn(t.Context(), nil, map[string]any{})
	require.ErrorContains(t, err, "projectId")

	_, err = fn(t.Context(), nil, map[string]any{"projectId": nil})
	require.ErrorContains(t, err, "projectId")
}

func TestUpdateTaskResolver_ResolvesNull(t *testing.T) {
	var gotBody []byte
	c := newConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"data":{"task":{"id":5,"title":"IGNORED"}}}`)
	}), nil)

	fn := taskapi.Resolvers(c).Resolver("Mutation", "updateTask")
	v, err := fn(t.Context(), nil, map[string]any{
		"id":   5,
		"task": map[string]any{"title": "Renamed"},
	})
	require.NoError(t, err)
	require.Nil(t, v)
	require.JSONEq(t, `{"task":{"title":"Renamed"}}`, string(gotBody))
}

func TestAttachTaskIconResolver(t *testing.T) {
	c := newConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		require.Equal(t, "icon.png", header.Filename)
		_, _ = io.WriteString(w, `{"data":{"task":{"id":5,"icon_asset":{"key":"icons/5.png"}}}}`)
	}), signer())

	fn := taskapi.Resolvers(c).Resolver("Mutation", "attachTaskIcon")
	v, err := fn(t.Context(), nil, map[string]any{
		"taskId": 5,
		"file":   &server.Upload{File: strings.NewReader("png-bytes"), Filename: "icon.png", ContentType: "image/png"},
	})
	require.NoError(t, err)
	task := v.(map[string]any)
	require.Equal(t, "https://signed.example/icons/5.png", task["icon_asset"].(map[string]any)["url"])

	_, err = fn(t.Context(), nil, map[string]any{"taskId": 5, "file": "not-a-file"})
	require.ErrorContains(t, err, "upload")
}

func TestQuestionsResolver_UsesTaskID(t *testing.T) {
	c := newConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tasks/5/questions", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"questions":[{"id":31,"task_id":5}]}}`)
	}), nil)

	fn := taskapi.Resolvers(c).Resolver("Task", "questions")
	v, err := fn(t.Context(), map[string]any{"id": json.Number("5")}, nil)
	require.NoError(t, err)
	require.Len(t, v, 1)

	_, err = fn(t.Context(), map[string]any{"title": "no id"}, nil)
	require.ErrorContains(t, err, `"id"`)
}
