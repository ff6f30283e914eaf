// Package client is a small GraphQL client for the task gateway with an
// in-process result cache.
//
// Queries are cache-first: a result stored under the operation name and
// variables returns immediately, and identical concurrent operations collapse
// into a single flight. Mutations skip the cache; instead they name queries
// to re-execute afterwards, which refreshes the store wholesale rather than
// patching it. Every completed query invokes the configured observer, which
// is where a UI re-renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Operation is one declared query or mutation.
type Operation struct {
	Name      string
	Document  string
	Variables map[string]any
}

// Result is the outcome of an operation. The three states are mutually
// exclusive: Pending while the operation is in flight, Err when it failed,
// otherwise Data holds the response's data verbatim. Transport faults and
// GraphQL errors both surface as Err; the cause is not distinguished further.
type Result struct {
	Pending bool
	Data    any
	Err     error
}

// Call is a handle on an in-flight operation.
type Call struct {
	done chan struct{}

	mu  sync.Mutex
	res Result
}

func newCall() *Call {
	return &Call{done: make(chan struct{}), res: Result{Pending: true}}
}

// Result returns a snapshot of the call's state.
func (c *Call) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res
}

// Done is closed when the call completes.
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the call completes or ctx is done.
func (c *Call) Wait(ctx context.Context) Result {
	select {
	case <-c.done:
		return c.Result()
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (c *Call) finish(res Result) {
	c.mu.Lock()
	c.res = res
	c.mu.Unlock()
	close(c.done)
}

// Client issues operations against a gateway and caches query results.
type Client struct {
	opts  *Options
	http  *http.Client
	store *Store
	sf    singleflight.Group

	mu      sync.Mutex
	queries map[string]Operation
}

func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	c := &Client{opts: o, http: o.HTTPClient, store: o.Store, queries: map[string]Operation{}}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.store == nil {
		s, err := NewStore()
		if err != nil {
			return nil, err
		}
		c.store = s
	}
	return c, nil
}

// Store returns the client's result store.
func (c *Client) Store() *Store { return c.store }

// Query runs op and blocks for its result.
func (c *Client) Query(ctx context.Context, op Operation) Result {
	return c.Go(ctx, op).Wait(ctx)
}

// Go starts op and returns a handle on it. A cached result completes the
// call immediately; otherwise the request goes out, with identical concurrent
// operations sharing one flight.
func (c *Client) Go(ctx context.Context, op Operation) *Call {
	call := newCall()
	c.recordQuery(op)
	if data, ok := c.store.Query(op.Name, op.Variables); ok {
		res := Result{Data: data}
		c.observe(op.Name, res)
		call.finish(res)
		return call
	}
	go func() {
		v, err, _ := c.sf.Do(queryKey(op.Name, op.Variables), func() (any, error) {
			return c.execute(ctx, op)
		})
		var res Result
		if err != nil {
			res = Result{Err: err}
		} else {
			res = Result{Data: v}
			c.store.PutQuery(op.Name, op.Variables, v)
		}
		// Observe before releasing waiters so a Wait that returns sees the
		// observer already ran.
		c.observe(op.Name, res)
		call.finish(res)
	}()
	return call
}

// Mutate runs op, never consulting the cache, and on success re-executes
// every query in refetch that has run before, refreshing the store and
// notifying the observer for each.
func (c *Client) Mutate(ctx context.Context, op Operation, refetch ...string) Result {
	v, err := c.execute(ctx, op)
	if err != nil {
		return Result{Err: err}
	}
	for _, name := range refetch {
		prev, ok := c.recordedQuery(name)
		if !ok {
			continue
		}
		c.refetchOne(ctx, prev)
	}
	return Result{Data: v}
}

// refetchOne re-runs a previously recorded query. It must observe the
// mutation's effect, so it never joins an in-flight query.
func (c *Client) refetchOne(ctx context.Context, op Operation) {
	v, err := c.execute(ctx, op)
	var res Result
	if err != nil {
		res = Result{Err: err}
	} else {
		res = Result{Data: v}
		c.store.PutQuery(op.Name, op.Variables, v)
	}
	c.observe(op.Name, res)
}

func (c *Client) recordQuery(op Operation) {
	c.mu.Lock()
	c.queries[op.Name] = op
	c.mu.Unlock()
}

func (c *Client) recordedQuery(name string) (Operation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.queries[name]
	return op, ok
}

func (c *Client) observe(name string, res Result) {
	if c.opts.Observer != nil {
		c.opts.Observer(name, res)
	}
}

type wireRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
}

type wireResponse struct {
	Data   any         `json:"data"`
	Errors []wireError `json:"errors"`
}

// execute performs the sequential chain behind every operation: fetch the
// credential, resolve the gateway address, then issue the request. A failure
// at any step fails the operation.
func (c *Client) execute(ctx context.Context, op Operation) (any, error) {
	// Apply the default deadline only when the caller set none.
	if _, ok := ctx.Deadline(); !ok && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var tok *oauth2.Token
	if c.opts.TokenSource != nil {
		var err error
		tok, err = c.opts.TokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("client: fetch token: %w", err)
		}
	}

	if c.opts.Provider == nil {
		return nil, fmt.Errorf("client: provider not configured")
	}
	base, err := c.opts.Provider.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	u, err := url.JoinPath(base, c.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("client: join %q and %q: %w", base, c.opts.Path, err)
	}

	body, err := json.Marshal(wireRequest{Query: op.Document, OperationName: op.Name, Variables: op.Variables})
	if err != nil {
		return nil, fmt.Errorf("client: encode %q: %w", op.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("client: %s returned status %d", u, resp.StatusCode)
	}

	var out wireResponse
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode %q response: %w", op.Name, err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("client: operation %q failed: %s", op.Name, strings.Join(msgs, "; "))
	}
	return out.Data, nil
}
