// Command server runs the GraphQL gateway against the in-memory task
// service, for poking at the full stack with real HTTP traffic:
//
//	go run ./tests/tasks/server
//	curl -s localhost:8080/graphql -d '{"query": "{ tasks(projectId: 1) { title iconAsset { url } } }"}'
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hanpama/taskgraph/internal/assets"
	"github.com/hanpama/taskgraph/internal/eventbus"
	"github.com/hanpama/taskgraph/internal/introspection"
	"github.com/hanpama/taskgraph/internal/logging"
	"github.com/hanpama/taskgraph/internal/metrics"
	"github.com/hanpama/taskgraph/internal/restrt"
	"github.com/hanpama/taskgraph/internal/resttp"
	"github.com/hanpama/taskgraph/internal/server"
	"github.com/hanpama/taskgraph/internal/taskapi"
	"github.com/hanpama/taskgraph/tests/tasks/taskservice"
)

func main() {
	addr := flag.String("addr", ":8080", "gateway listen address")
	backendAddr := flag.String("backend.addr", ":8081", "task service listen address")
	flag.Parse()

	svc := taskservice.New()
	svc.Seed()

	backendLis, err := net.Listen("tcp", *backendAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", *backendAddr, err)
	}
	go func() {
		log.Fatal(http.Serve(backendLis, svc.Handler()))
	}()

	eventbus.Use(eventbus.New())
	logging.Setup(slog.Default())
	m := metrics.Setup(nil)

	sign := assets.SignerFunc(func(ctx context.Context, key string) (string, error) {
		return "https://assets.local/" + key + "?sig=demo", nil
	})
	conn := taskapi.New(resttp.New(resttp.WithBaseURL(baseURL(*backendAddr))), sign)

	sch, err := taskapi.Schema()
	if err != nil {
		log.Fatalf("build schema: %v", err)
	}
	rt, err := restrt.NewRuntime(sch, taskapi.Resolvers(conn))
	if err != nil {
		log.Fatalf("bind resolvers: %v", err)
	}
	wrapper := introspection.Wrap(rt, sch)

	h, err := server.New(wrapper.Runtime, wrapper.Schema,
		server.WithPretty(),
		server.WithForwardHeaders("Authorization"),
	)
	if err != nil {
		log.Fatalf("build handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.Uploads(h))
	mux.Handle("/metrics", m.Handler())

	log.Printf("task service listening on %s", *backendAddr)
	log.Printf("gateway listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// baseURL turns a listen address like ":8081" into a dialable URL.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
