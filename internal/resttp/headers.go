package resttp

import (
	"context"
	"net/http"
)

// headersKey is the context key for forwarded headers.
type headersKey struct{}

// ContextWithHeaders returns a context carrying headers to attach to every
// outbound request made with it. Headers already carried by ctx are kept;
// values in h are added on top. The GraphQL server uses this to forward
// caller credentials such as Authorization to the task service.
func ContextWithHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	merged := HeadersFromContext(ctx).Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for k, vs := range h {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	return context.WithValue(ctx, headersKey{}, merged)
}

// HeadersFromContext returns the headers ctx carries for outbound requests,
// or nil when there are none.
func HeadersFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}
