package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_MissingCommand(t *testing.T) {
	err := run(nil)
	if err == nil || err.Error() != "missing command" {
		t.Fatalf("expected missing command error, got %v", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run([]string{"deploy"})
	if err == nil || !strings.Contains(err.Error(), `unknown command "deploy"`) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestHelp_UnknownTopic(t *testing.T) {
	if err := cmdHelp([]string{"deploy"}); err == nil {
		t.Fatal("expected error for unknown help topic")
	}
}

func TestCheck_EmbeddedBinding(t *testing.T) {
	if err := cmdCheck(nil); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestSchema_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schema.graphql")
	if err := cmdSchema([]string{"-out", out}); err != nil {
		t.Fatalf("schema: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{"type Task", "type Question", "input TaskUpdate", "attachTaskIcon"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("rendered SDL missing %q", want)
		}
	}
}

func TestServe_RequiresBackendURL(t *testing.T) {
	err := cmdServe(nil)
	if err == nil || !strings.Contains(err.Error(), "-backend.url is required") {
		t.Fatalf("expected backend.url error, got %v", err)
	}
}

func TestServe_RejectsBadLogLevel(t *testing.T) {
	err := cmdServe([]string{"-backend.url", "http://tasks.local", "-log.level", "loud"})
	if err == nil || !strings.Contains(err.Error(), "-log.level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}

func TestServe_RequiresBucketWithSignEndpoint(t *testing.T) {
	err := cmdServe([]string{"-backend.url", "http://tasks.local", "-sign.endpoint", "store.local:9000"})
	if err == nil || !strings.Contains(err.Error(), "-sign.bucket") {
		t.Fatalf("expected sign.bucket error, got %v", err)
	}
}

func TestTokenSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{"access_token":"tok123","token_type":"Bearer"}`), 0600); err != nil {
		t.Fatal(err)
	}
	ts, err := tokenSourceFromFile(path)
	if err != nil {
		t.Fatalf("token source: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "tok123" {
		t.Fatalf("access token = %q, want tok123", tok.AccessToken)
	}

	if ts, err := tokenSourceFromFile(""); err != nil || ts != nil {
		t.Fatalf("empty path should disable the credential, got %v, %v", ts, err)
	}
	if _, err := tokenSourceFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := tokenSourceFromFile(bad); err == nil {
		t.Fatal("expected error for a malformed token file")
	}
}

func TestLoadSchema_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	src := `schema { query: Query }

type Query {
  ping: String
}
`
	if err := os.WriteFile(filepath.Join(dir, "schema.graphql"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	sch, err := loadSchema(dir)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	query := sch.Types["Query"]
	if query == nil || query.GetField("ping") == nil {
		t.Fatal("loaded schema is missing Query.ping")
	}
}
