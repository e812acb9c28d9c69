//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // MANIFESTGEN_HOME, holds config.yaml
	ProjectDir string // Where the document description is written
}

// setupTestEnv creates isolated temp directories and clears the GitHub
// environment so config resolution is sandboxed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
	}

	t.Setenv("MANIFESTGEN_HOME", env.HomeDir)
	t.Setenv("GITHUB_REPO", "")
	t.Setenv("GITHUB_TOKEN", "")

	return env
}

// fakeGitHub is an httptest server implementing the workflow dispatch and
// run-listing endpoints for one repository and workflow.
type fakeGitHub struct {
	*httptest.Server

	mu         sync.Mutex
	dispatches []map[string]interface{}
	runs       []map[string]interface{}
	rejectWith int
}

func newFakeGitHub(t *testing.T, repo, workflow string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	base := "/repos/" + repo + "/actions/workflows/" + workflow

	mux := http.NewServeMux()
	mux.HandleFunc(base+"/dispatches", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejectWith != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.rejectWith)
			w.Write([]byte(`{"message":"rejected by fake"}`))
			return
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.dispatches = append(f.dispatches, body)
		// A dispatched workflow shows up as the newest run.
		id := 1000 + len(f.dispatches)
		f.runs = append([]map[string]interface{}{{
			"id":       id,
			"html_url": "https://github.com/" + repo + "/actions/runs/" + strconv.Itoa(id),
			"status":   "queued",
		}}, f.runs...)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc(base+"/runs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		runs := f.runs
		if len(runs) > 1 {
			runs = runs[:1]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total_count":   len(f.runs),
			"workflow_runs": runs,
		})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGitHub) reject(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectWith = status
}

func (f *fakeGitHub) dispatched() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.dispatches...)
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
