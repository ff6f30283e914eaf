package resttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	eventbus "github.com/hanpama/taskgraph/internal/eventbus"
	events "github.com/hanpama/taskgraph/internal/events"
	reqid "github.com/hanpama/taskgraph/internal/reqid"
)

// statusErrorBodyLimit caps how much of an error response body is carried in
// a StatusError.
const statusErrorBodyLimit = 512

// Client is a JSON client for the task service with base URL discovery,
// bearer credentials, default deadlines and request instrumentation.
//
// Credential order per request: headers forwarded via ContextWithHeaders win,
// then the configured TokenSource, so a caller's own Authorization header is
// never overwritten by the service credential.
type Client struct {
	opts *Options
	http *http.Client
}

func New(opts ...Option) *Client {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	c := &Client{opts: o, http: o.HTTPClient}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// GetJSON issues a GET against path and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, "", nil, out)
}

// PatchJSON issues a PATCH with a JSON-encoded body. When out is nil the
// response body is checked for status and discarded.
func (c *Client) PatchJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("resttp: encode %s body: %w", path, err)
	}
	return c.do(ctx, http.MethodPatch, path, nil, "application/json", bytes.NewReader(buf), out)
}

// PostFile uploads file as a multipart/form-data POST under the given form
// field name.
func (c *Client) PostFile(ctx context.Context, path, field, filename, contentType string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(hdr)
	if err != nil {
		return fmt.Errorf("resttp: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("resttp: copy file into multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("resttp: finish multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, w.FormDataContentType(), &buf, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any) error {
	if c.opts.Provider == nil {
		return fmt.Errorf("resttp: provider not configured")
	}
	// Apply the default deadline only when the caller set none.
	if _, ok := ctx.Deadline(); !ok && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	base, err := c.opts.Provider.BaseURL(ctx)
	if err != nil {
		return err
	}
	u, err := url.JoinPath(base, path)
	if err != nil {
		return fmt.Errorf("resttp: join %q and %q: %w", base, path, err)
	}
	if len(query) > 0 {
		u = u + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	for k, vs := range HeadersFromContext(ctx) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Authorization") == "" && c.opts.TokenSource != nil {
		tok, err := c.opts.TokenSource.Token()
		if err != nil {
			return fmt.Errorf("resttp: fetch token: %w", err)
		}
		tok.SetAuthHeader(req)
	}
	if id, ok := reqid.FromContext(ctx); ok {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.RESTCallStart{Method: method, URL: u})
	resp, err := c.http.Do(req)
	var status int
	var payload []byte
	if err == nil {
		status = resp.StatusCode
		payload, err = readBody(resp.Body, c.opts.MaxBodyBytes)
		_ = resp.Body.Close()
	}
	eventbus.Publish(ctx, events.RESTCallFinish{
		Method:   method,
		URL:      u,
		Status:   status,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &StatusError{Method: method, URL: u, Status: status, Body: truncate(payload, statusErrorBodyLimit)}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("resttp: decode %s %s response: %w", method, u, err)
	}
	return nil
}

func readBody(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("resttp: response body exceeds %d bytes", max)
	}
	return b, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
