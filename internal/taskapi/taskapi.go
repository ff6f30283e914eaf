// Package taskapi connects the GraphQL schema to the task service REST API.
//
// The Connector speaks the service's envelope convention ({"data": {...}})
// and post-processes task icon assets with signed download URLs. Resolvers
// binds the connector to the schema's async fields; everything else resolves
// synchronously from the decoded JSON maps.
package taskapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	assets "github.com/hanpama/taskgraph/internal/assets"
	resttp "github.com/hanpama/taskgraph/internal/resttp"
)

// Connector performs the task service calls behind the GraphQL operations.
type Connector struct {
	client *resttp.Client
	signer assets.Signer
}

// New returns a connector backed by client. A nil signer disables icon URL
// signing; icon assets then pass through with whatever url the service sent.
func New(client *resttp.Client, signer assets.Signer) *Connector {
	return &Connector{client: client, signer: signer}
}

// ListProjectTasks fetches the tasks of a project with their icon assets
// embedded, and signs each icon's download URL.
func (c *Connector) ListProjectTasks(ctx context.Context, projectID int64) ([]any, error) {
	var payload map[string]any
	query := url.Values{"include": []string{"icon_asset"}}
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/projects/%d/tasks", projectID), query, &payload); err != nil {
		return nil, err
	}
	v, err := resttp.ExtractData(payload, "tasks")
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("taskapi: tasks is %T, want a list", v)
	}
	for _, item := range items {
		task, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if err := c.signTaskIcon(ctx, task); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// GetTask fetches a single task. A JSON null task comes back as nil.
func (c *Connector) GetTask(ctx context.Context, id int64) (map[string]any, error) {
	var payload map[string]any
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/tasks/%d", id), nil, &payload); err != nil {
		return nil, err
	}
	return c.extractTask(ctx, payload)
}

// ListTaskQuestions fetches the questions attached to a task.
func (c *Connector) ListTaskQuestions(ctx context.Context, taskID int64) ([]any, error) {
	var payload map[string]any
	if err := c.client.GetJSON(ctx, fmt.Sprintf("/tasks/%d/questions", taskID), nil, &payload); err != nil {
		return nil, err
	}
	v, err := resttp.ExtractData(payload, "questions")
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("taskapi: questions is %T, want a list", v)
	}
	return items, nil
}

// UpdateTask applies a partial update. Only the keys present in patch are
// sent, and the service's response body is discarded.
func (c *Connector) UpdateTask(ctx context.Context, id int64, patch map[string]any) error {
	return c.client.PatchJSON(ctx, fmt.Sprintf("/tasks/%d", id), map[string]any{"task": patch}, nil)
}

// AttachIcon uploads an icon file for the task and returns the updated task.
func (c *Connector) AttachIcon(ctx context.Context, taskID int64, filename, contentType string, file io.Reader) (map[string]any, error) {
	var payload map[string]any
	if err := c.client.PostFile(ctx, fmt.Sprintf("/tasks/%d/icon", taskID), "file", filename, contentType, file, &payload); err != nil {
		return nil, err
	}
	return c.extractTask(ctx, payload)
}

func (c *Connector) extractTask(ctx context.Context, payload map[string]any) (map[string]any, error) {
	v, err := resttp.ExtractData(payload, "task")
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	task, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("taskapi: task is %T, want an object", v)
	}
	if err := c.signTaskIcon(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// signTaskIcon replaces the icon asset's url with a signed one. Tasks without
// an embedded icon asset, and connectors without a signer, pass through.
func (c *Connector) signTaskIcon(ctx context.Context, task map[string]any) error {
	if c.signer == nil {
		return nil
	}
	icon, ok := task["icon_asset"].(map[string]any)
	if !ok {
		return nil
	}
	key, _ := icon["key"].(string)
	if key == "" {
		return nil
	}
	signed, err := c.signer.SignURL(ctx, key)
	if err != nil {
		return err
	}
	icon["url"] = signed
	return nil
}

// intArg reads a required integer argument.
func intArg(args map[string]any, name string) (int64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("taskapi: argument %q is required", name)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("taskapi: argument %q: %w", name, err)
	}
	return n, nil
}

// intField reads a required integer field from a decoded JSON object.
func intField(obj map[string]any, name string) (int64, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("taskapi: object has no %q", name)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("taskapi: field %q: %w", name, err)
	}
	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%v (%T) is not an integer", v, v)
	}
}
