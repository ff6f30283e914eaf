package resttp

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Options configures the REST client behavior.
//
// Defaults:
// - Timeout:      3s (used only if incoming context has no deadline)
// - MaxBodyBytes: 4 MiB
// - UserAgent:    "taskgraph"
//
// A BaseURLProvider must be provided (use WithBaseURL, StaticBase or a custom
// implementation). If Provider is nil, the client will error on calls.
//
// All options are safe to leave zero-valued to use defaults.

type Options struct {
	Provider    BaseURLProvider
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client

	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// Option mutates Options
//
// Use WithX helpers below.

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout:      3 * time.Second,
		UserAgent:    "taskgraph",
		MaxBodyBytes: 4 << 20,
	}
}

// WithBaseURL points the client at a fixed base URL.
func WithBaseURL(raw string) Option { return func(o *Options) { o.Provider = StaticBase(raw) } }

func WithProvider(p BaseURLProvider) Option { return func(o *Options) { o.Provider = p } }

// WithTokenSource supplies the service credential used when a request carries
// no Authorization header of its own.
func WithTokenSource(ts oauth2.TokenSource) Option { return func(o *Options) { o.TokenSource = ts } }

func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }
func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithUserAgent(ua string) Option       { return func(o *Options) { o.UserAgent = ua } }
func WithMaxBodyBytes(n int64) Option      { return func(o *Options) { o.MaxBodyBytes = n } }
