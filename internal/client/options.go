package client

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"

	resttp "github.com/hanpama/taskgraph/internal/resttp"
)

// Options configures the gateway client.
//
// Defaults:
// - Path:    "/graphql"
// - Timeout: 3s (used only if incoming context has no deadline)
//
// A BaseURLProvider must be provided (use WithBaseURL, resttp.StaticBase or a
// custom implementation). If Provider is nil, operations will error.

type Options struct {
	Provider    resttp.BaseURLProvider
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Store       *Store
	Observer    func(name string, res Result)

	Path    string
	Timeout time.Duration
}

// Option mutates Options
//
// Use WithX helpers below.

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Path:    "/graphql",
		Timeout: 3 * time.Second,
	}
}

// WithBaseURL points the client at a fixed gateway URL.
func WithBaseURL(raw string) Option {
	return func(o *Options) { o.Provider = resttp.StaticBase(raw) }
}

func WithProvider(p resttp.BaseURLProvider) Option { return func(o *Options) { o.Provider = p } }

// WithTokenSource supplies the credential attached to every operation.
func WithTokenSource(ts oauth2.TokenSource) Option { return func(o *Options) { o.TokenSource = ts } }

func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }

// WithStore shares a result store between clients.
func WithStore(s *Store) Option { return func(o *Options) { o.Store = s } }

// WithObserver registers a callback invoked on every query completion,
// including refetches after mutations.
func WithObserver(fn func(name string, res Result)) Option {
	return func(o *Options) { o.Observer = fn }
}

func WithPath(p string) Option           { return func(o *Options) { o.Path = p } }
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
