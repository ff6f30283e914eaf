package taskapi

import (
	"context"
	"fmt"

	restrt "github.com/hanpama/taskgraph/internal/restrt"
	server "github.com/hanpama/taskgraph/internal/server"
)

// Resolvers binds the connector to every field that needs a backend call.
// Fields not listed here resolve synchronously from the parent object.
func Resolvers(c *Connector) *restrt.Registry {
	reg := restrt.NewRegistry()

	reg.Register("Query", "tasks", func(ctx context.Context, source any, args map[string]any) (any, error) {
		projectID, err := intArg(args, "projectId")
		if err != nil {
			return nil, err
		}
		return c.ListProjectTasks(ctx, projectID)
	})

	reg.Register("Query", "task", func(ctx context.Context, source any, args map[string]any) (any, error) {
		id, err := intArg(args, "id")
		if err != nil {
			return nil, err
		}
		task, err := c.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, nil
		}
		return task, nil
	})

	reg.Register("Task", "questions", func(ctx context.Context, source any, args map[string]any) (any, error) {
		task, ok := source.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("taskapi: task source is %T, want an object", source)
		}
		taskID, err := intField(task, "id")
		if err != nil {
			return nil, err
		}
		return c.ListTaskQuestions(ctx, taskID)
	})

	// The service responds to the PATCH with nothing useful, so the field
	// always resolves to null.
	reg.Register("Mutation", "updateTask", func(ctx context.Context, source any, args map[string]any) (any, error) {
		id, err := intArg(args, "id")
		if err != nil {
			return nil, err
		}
		patch, ok := args["task"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("taskapi: argument \"task\" is required")
		}
		if err := c.UpdateTask(ctx, id, patch); err != nil {
			return nil, err
		}
		return nil, nil
	})

	reg.Register("Mutation", "attachTaskIcon", func(ctx context.Context, source any, args map[string]any) (any, error) {
		taskID, err := intArg(args, "taskId")
		if err != nil {
			return nil, err
		}
		up, ok := args["file"].(*server.Upload)
		if !ok {
			return nil, fmt.Errorf("taskapi: argument \"file\" must be an upload, got %T", args["file"])
		}
		return c.AttachIcon(ctx, taskID, up.Filename, up.ContentType, up.File)
	})

	return reg
}
