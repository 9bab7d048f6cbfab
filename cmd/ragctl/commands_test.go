package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func localEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOG_MODE", "test")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(dir, "rag.db"))
	t.Setenv("OBJECT_STORAGE_MODE", "afs")
	t.Setenv("AFS_BASE_URL", "file://"+filepath.Join(dir, "objects"))
	t.Setenv("INDEX_BACKEND", "sql")
	t.Setenv("QUOTA_BACKEND", "sql")
	t.Setenv("EMBED_MODEL", "hash:32")
	t.Setenv("EMBED_DIM", "32")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("QDRANT_URL", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(nil)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUploadIngestRetrieve(t *testing.T) {
	dir := localEnv(t)
	path := filepath.Join(dir, "contract.txt")
	if err := os.WriteFile(path, []byte("Termination requires thirty days written notice."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if out, err := run(t, "migrate"); err != nil || !strings.Contains(out, "migrations applied") {
		t.Fatalf("migrate: %v\n%s", err, out)
	}
	out, err := run(t, "--tenant", "acme", "upload", path)
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}
	var uploaded struct {
		Files []struct {
			DocID string `json:"doc_id"`
		} `json:"uploaded_files"`
	}
	if err := json.Unmarshal([]byte(out), &uploaded); err != nil || len(uploaded.Files) != 1 {
		t.Fatalf("upload output: %v\n%s", err, out)
	}

	if out, err := run(t, "-t", "acme", "ingest"); err != nil || !strings.Contains(out, `"status": "success"`) {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	out, err = run(t, "-t", "acme", "retrieve", "--mode", "bm25", "termination")
	if err != nil || !strings.Contains(out, uploaded.Files[0].DocID) {
		t.Fatalf("retrieve: %v\n%s", err, out)
	}
	out, err = run(t, "-t", "globex", "retrieve", "termination")
	if err != nil || strings.Contains(out, uploaded.Files[0].DocID) {
		t.Fatalf("retrieve for another tenant leaked: %v\n%s", err, out)
	}
}

func TestCommandErrors(t *testing.T) {
	localEnv(t)
	_, err := run(t, "ingest")
	if got := describeError(err); !strings.HasPrefix(got, "MISSING_TENANT: ") {
		t.Fatalf("ingest without tenant: want MISSING_TENANT got=%q", got)
	}
	if _, err := run(t, "-t", "acme", "retrieve", "--mode", "fuzzy", "x"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	out, err := run(t, "-t", "acme", "query", "what?")
	if err != nil || !strings.Contains(out, "I don't know") {
		t.Fatalf("query with empty index: %v\n%s", err, out)
	}
}
