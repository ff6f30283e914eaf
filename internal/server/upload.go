package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	language "github.com/hanpama/taskgraph/internal/language"
)

// Upload is the value an Upload-typed argument carries into resolvers. File
// reads the part content; Size and ContentType come from the part headers.
type Upload struct {
	File        io.ReadSeeker
	Filename    string
	Size        int64
	ContentType string
}

// uploadMaxMemory caps how much of the multipart body is held in memory;
// larger parts spill to temp files.
const uploadMaxMemory = 32 << 20

// Uploads wraps a GraphQL handler with support for the GraphQL multipart
// request convention: a multipart/form-data POST carrying an "operations"
// field (the request JSON), a "map" field (file key to dotted variable
// paths) and one file part per key.
//
// The request is rewritten to application/json for the wrapped handler and
// the decoded files travel in the request context; the handler injects them
// into the mapped variable paths before execution. Non-multipart requests
// pass through untouched. Batched operations with uploads are rejected.
func Uploads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if r.Method != http.MethodPost || !startsWith(ct, "multipart/form-data") {
			next.ServeHTTP(w, r)
			return
		}

		if err := r.ParseMultipartForm(uploadMaxMemory); err != nil {
			writeUploadError(w, "invalid multipart form: "+err.Error())
			return
		}

		operations := r.FormValue("operations")
		if operations == "" {
			writeUploadError(w, "missing 'operations' field")
			return
		}
		if trimmed := strings.TrimSpace(operations); len(trimmed) > 0 && trimmed[0] == '[' {
			writeUploadError(w, "batched operations with uploads are not supported")
			return
		}

		mapField := r.FormValue("map")
		if mapField == "" {
			writeUploadError(w, "missing 'map' field")
			return
		}
		var pathsByKey map[string][]string
		if err := json.Unmarshal([]byte(mapField), &pathsByKey); err != nil {
			writeUploadError(w, "invalid 'map' JSON")
			return
		}

		ups := make(map[string]*Upload, len(pathsByKey))
		var opened []io.Closer
		defer func() {
			for _, c := range opened {
				_ = c.Close()
			}
		}()
		for key, paths := range pathsByKey {
			headers := r.MultipartForm.File[key]
			if len(headers) == 0 {
				writeUploadError(w, fmt.Sprintf("no file part for key %q", key))
				return
			}
			fh := headers[0]
			f, err := fh.Open()
			if err != nil {
				writeUploadError(w, fmt.Sprintf("cannot open file part %q: %v", key, err))
				return
			}
			opened = append(opened, f)
			up := &Upload{
				File:        f,
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
			}
			for _, p := range paths {
				rest, ok := strings.CutPrefix(p, "variables.")
				if !ok || rest == "" {
					writeUploadError(w, fmt.Sprintf("map path %q must address 'variables.'", p))
					return
				}
				ups[rest] = up
			}
		}

		r2 := r.Clone(contextWithUploads(r.Context(), ups))
		r2.Body = io.NopCloser(strings.NewReader(operations))
		r2.ContentLength = int64(len(operations))
		r2.Header = r.Header.Clone()
		r2.Header.Set("Content-Type", "application/json")
		next.ServeHTTP(w, r2)
	})
}

// uploadsKey is the context key for decoded multipart files.
type uploadsKey struct{}

func contextWithUploads(ctx context.Context, ups map[string]*Upload) context.Context {
	return context.WithValue(ctx, uploadsKey{}, ups)
}

func uploadsFromContext(ctx context.Context) map[string]*Upload {
	ups, _ := ctx.Value(uploadsKey{}).(map[string]*Upload)
	return ups
}

// injectUploads sets each decoded file into vars at its dotted path.
// Paths are relative to the variables object; missing intermediate objects
// are created, list elements must already exist.
func injectUploads(vars map[string]any, ups map[string]*Upload) error {
	for path, up := range ups {
		if err := setAtPath(vars, strings.Split(path, "."), up); err != nil {
			return fmt.Errorf("cannot inject file at variables.%s: %w", path, err)
		}
	}
	return nil
}

func setAtPath(root map[string]any, segs []string, v any) error {
	cur := any(root)
	for i, seg := range segs {
		last := i == len(segs)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[seg] = v
				return nil
			}
			child, ok := node[seg]
			if !ok || child == nil {
				m := map[string]any{}
				node[seg] = m
				cur = m
				continue
			}
			cur = child
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("invalid list index %q", seg)
			}
			if last {
				node[idx] = v
				return nil
			}
			if node[idx] == nil {
				m := map[string]any{}
				node[idx] = m
				cur = m
				continue
			}
			cur = node[idx]
		default:
			return fmt.Errorf("segment %q does not address an object or list", seg)
		}
	}
	return nil
}

func writeUploadError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse(nil, &language.Error{Message: msg}), false)
}
