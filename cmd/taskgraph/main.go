package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/hanpama/taskgraph/internal/assets"
	"github.com/hanpama/taskgraph/internal/eventbus"
	"github.com/hanpama/taskgraph/internal/executor"
	"github.com/hanpama/taskgraph/internal/introspection"
	"github.com/hanpama/taskgraph/internal/logging"
	"github.com/hanpama/taskgraph/internal/metrics"
	"github.com/hanpama/taskgraph/internal/otel"
	"github.com/hanpama/taskgraph/internal/restrt"
	"github.com/hanpama/taskgraph/internal/resttp"
	"github.com/hanpama/taskgraph/internal/schema"
	"github.com/hanpama/taskgraph/internal/sdl"
	"github.com/hanpama/taskgraph/internal/server"
	"github.com/hanpama/taskgraph/internal/taskapi"
)

const rootUsage = `taskgraph — GraphQL gateway for the task service

USAGE:
  taskgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL gateway backed by the task service
  schema           Print the composed GraphQL SDL
  check            Verify that every resolver matches a schema field
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -graphql.root <dir>              GraphQL schema root (default: embedded task schema)
  -graphql.introspection <bool>    Enable GraphQL introspection (default: true)
  -server.addr <addr>              HTTP listen address (default: :8080)
  -server.pretty                   Pretty-print JSON responses
  -server.timeout <duration>       Per-request timeout, e.g. 10s (default: 10s)
  -server.forward-header <name>    Forward HTTP header to the task service. Repeatable
  -backend.url <url>               Task service base URL (required)
  -backend.timeout <duration>      Task service call timeout (default: 3s)
  -backend.token-file <file>       OAuth2 token JSON used when requests carry no credential
  -sign.endpoint <host:port>       Object store endpoint for signed icon URLs
  -sign.bucket <name>              Object store bucket (required with -sign.endpoint)
  -sign.access-key <key>           Object store access key
  -sign.secret-key <key>           Object store secret key
  -sign.expiry <duration>          Signed URL lifetime (default: 15m)
  -sign.secure                     Use TLS for object store requests
  -otel.endpoint <addr>            OTLP collector endpoint
  -otel.service <name>             OpenTelemetry service name (default: taskgraph)
  -log.level <level>               debug, info, warn or error (default: info)
`

const schemaUsage = `schema FLAGS:
  -graphql.root <dir>  GraphQL schema root (default: embedded task schema)
  -out <file>          Write SDL to file (default: stdout)
`

const checkUsage = `check FLAGS:
  -graphql.root <dir>  GraphQL schema root (default: embedded task schema)
  (Builds the schema and the resolver binding; exits non-zero on violations)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("taskgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "schema":
		return cmdSchema(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "schema":
		fmt.Print(schemaUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	rootDir := ""
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	enableIntrospection := true
	backendURL := ""
	backendTimeout := 3 * time.Second
	tokenFile := ""
	signEndpoint := ""
	signBucket := ""
	signAccessKey := ""
	signSecretKey := ""
	signExpiry := time.Duration(0)
	signSecure := false
	otelEndpoint := ""
	otelService := "taskgraph"
	logLevel := "info"
	var forwardHeaders stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "graphql.root", rootDir, "GraphQL schema root")
	fs.BoolVar(&enableIntrospection, "graphql.introspection", enableIntrospection, "Enable GraphQL introspection")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&forwardHeaders, "server.forward-header", "Forward HTTP header to the task service")
	fs.StringVar(&backendURL, "backend.url", backendURL, "Task service base URL")
	fs.DurationVar(&backendTimeout, "backend.timeout", backendTimeout, "Task service call timeout")
	fs.StringVar(&tokenFile, "backend.token-file", tokenFile, "OAuth2 token JSON file")
	fs.StringVar(&signEndpoint, "sign.endpoint", signEndpoint, "Object store endpoint")
	fs.StringVar(&signBucket, "sign.bucket", signBucket, "Object store bucket")
	fs.StringVar(&signAccessKey, "sign.access-key", signAccessKey, "Object store access key")
	fs.StringVar(&signSecretKey, "sign.secret-key", signSecretKey, "Object store secret key")
	fs.DurationVar(&signExpiry, "sign.expiry", signExpiry, "Signed URL lifetime")
	fs.BoolVar(&signSecure, "sign.secure", signSecure, "Use TLS for object store requests")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if backendURL == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-backend.url is required")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid -log.level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eventbus.Use(eventbus.New())
	logging.Setup(logger)
	m := metrics.Setup(nil)
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	tokens, err := tokenSourceFromFile(tokenFile)
	if err != nil {
		return err
	}
	signer, err := signerFromFlags(signEndpoint, signBucket, signAccessKey, signSecretKey, signExpiry, signSecure)
	if err != nil {
		return err
	}

	restOpts := []resttp.Option{resttp.WithBaseURL(backendURL)}
	if tokens != nil {
		restOpts = append(restOpts, resttp.WithTokenSource(tokens))
	}
	if backendTimeout > 0 {
		restOpts = append(restOpts, resttp.WithTimeout(backendTimeout))
	}
	connector := taskapi.New(resttp.New(restOpts...), signer)

	sch, err := loadSchema(rootDir)
	if err != nil {
		return err
	}
	rt, err := restrt.NewRuntime(sch, taskapi.Resolvers(connector))
	if err != nil {
		return fmt.Errorf("bind resolvers: %w", err)
	}

	var runtime executor.Runtime = rt
	if enableIntrospection {
		wrapper := introspection.Wrap(runtime, sch)
		runtime = wrapper.Runtime
		sch = wrapper.Schema
	}

	var sopts []server.Option
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(forwardHeaders) > 0 {
		sopts = append(sopts, server.WithForwardHeaders(forwardHeaders...))
	}
	h, err := server.New(runtime, sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.Uploads(h))
	mux.Handle("/metrics", m.Handler())

	logger.Info("graphql gateway listening", slog.String("addr", addr), slog.String("backend", backendURL))
	return http.ListenAndServe(addr, mux)
}

func cmdSchema(args []string) error {
	rootDir := ""
	outFile := ""
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "graphql.root", rootDir, "GraphQL schema root")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, schemaUsage)
		return err
	}

	sch, err := loadSchema(rootDir)
	if err != nil {
		return err
	}
	out := schema.Render(sch)
	if outFile == "" {
		fmt.Print(out)
		return nil
	}
	return os.WriteFile(outFile, []byte(out), 0644)
}

func cmdCheck(args []string) error {
	rootDir := ""
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&rootDir, "graphql.root", rootDir, "GraphQL schema root")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}

	sch, err := loadSchema(rootDir)
	if err != nil {
		return err
	}
	reg := taskapi.Resolvers(taskapi.New(resttp.New(), nil))
	if _, err := restrt.NewRuntime(sch, reg); err != nil {
		return err
	}
	fmt.Printf("ok: %d resolvers bound against %d schema types\n", len(reg.Entries()), len(sch.Types))
	return nil
}

// loadSchema builds the schema from an SDL directory, or from the embedded
// task schema when no root is given.
func loadSchema(rootDir string) (*schema.Schema, error) {
	if rootDir == "" {
		return taskapi.Schema()
	}
	proj, err := sdl.Load(rootDir)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	sch, err := schema.BuildFromProject(proj)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

// tokenSourceFromFile reads an oauth2 token JSON file into a static token
// source. An empty path disables the service credential.
func tokenSourceFromFile(path string) (oauth2.TokenSource, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return oauth2.StaticTokenSource(&token), nil
}

// signerFromFlags builds the icon URL signer. An empty endpoint disables
// signing, so icon assets pass through with the URLs the service sent.
func signerFromFlags(endpoint, bucket, accessKey, secretKey string, expiry time.Duration, secure bool) (assets.Signer, error) {
	if endpoint == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("-sign.bucket is required with -sign.endpoint")
	}
	opts := []assets.Option{assets.WithSecure(secure)}
	if expiry > 0 {
		opts = append(opts, assets.WithExpiry(expiry))
	}
	signer, err := assets.NewMinioSigner(endpoint, accessKey, secretKey, bucket, opts...)
	if err != nil {
		return nil, fmt.Errorf("sign setup: %w", err)
	}
	return signer, nil
}
