package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/manifestgen/manifestgen/internal/manifest"
)

const (
	dispatchPath = "/repos/octo/manifests/actions/workflows/test-manifest.yml/dispatches"
	runsPath     = "/repos/octo/manifests/actions/workflows/test-manifest.yml/runs"
)

const testManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest>
  <project path="device/x" name="device_x" remote="aosp" revision="main" />
</manifest>
`

func validRequest() Request {
	return Request{
		ManifestURL:    "https://github.com/LineageOS/android",
		ManifestBranch: "lineage-21.0",
		ManifestText:   testManifest,
	}
}

// fakeGitHub serves the dispatch and run-listing endpoints and counts calls.
type fakeGitHub struct {
	*httptest.Server
	dispatches atomic.Int32
	listings   atomic.Int32
	lastBody   atomic.Value
	lastAuth   atomic.Value
	lastAgent  atomic.Value
}

func newFakeGitHub(t *testing.T, dispatch, runs http.HandlerFunc) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc(dispatchPath, func(w http.ResponseWriter, r *http.Request) {
		f.dispatches.Add(1)
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			f.lastBody.Store(body)
		}
		f.lastAuth.Store(r.Header.Get("Authorization"))
		f.lastAgent.Store(r.Header.Get("User-Agent"))
		dispatch(w, r)
	})
	mux.HandleFunc(runsPath, func(w http.ResponseWriter, r *http.Request) {
		f.listings.Add(1)
		runs(w, r)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func accepted(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func runList(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestDispatcher(t *testing.T, f *fakeGitHub, grace time.Duration) *Dispatcher {
	t.Helper()
	d, err := New(Config{
		Repo:         "octo/manifests",
		Token:        "test-token",
		WorkflowFile: "test-manifest.yml",
		Ref:          "main",
		GracePeriod:  grace,
		APIURL:       f.URL,
		WebURL:       "https://github.example/",
		UserAgent:    "Manifest-Generator",
	}, WithHTTPClient(f.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDispatch_ResolvesLatestRun(t *testing.T) {
	f := newFakeGitHub(t, accepted, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "1" {
			t.Errorf("per_page = %q, want 1", got)
		}
		runList(`{"total_count":1,"workflow_runs":[{"id":42,"html_url":"https://github.example/octo/manifests/actions/runs/42","status":"queued"}]}`)(w, r)
	})
	d := newTestDispatcher(t, f, 0)

	handle, err := d.Dispatch(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	want := &RunHandle{
		RunID:       42,
		RunURL:      "https://github.example/octo/manifests/actions/runs/42",
		Status:      "queued",
		WorkflowURL: "https://github.example/octo/manifests/actions/workflows/test-manifest.yml",
	}
	if diff := cmp.Diff(want, handle); diff != "" {
		t.Errorf("handle mismatch (-want +got):\n%s", diff)
	}
	if !handle.Resolved() {
		t.Error("Resolved() = false for a handle with a run id")
	}
	if handle.URL() != want.RunURL {
		t.Errorf("URL() = %q, want run URL", handle.URL())
	}
}

func TestDispatch_SendsWorkflowInputs(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	d := newTestDispatcher(t, f, 0)

	req := validRequest()
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	body, _ := f.lastBody.Load().(map[string]interface{})
	want := map[string]interface{}{
		"ref": "main",
		"inputs": map[string]interface{}{
			"rom_manifest":     req.ManifestURL,
			"rom_branch":       req.ManifestBranch,
			"manifest_content": req.ManifestText,
		},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("dispatch body mismatch (-want +got):\n%s", diff)
	}
	if got := f.lastAuth.Load(); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got, _ := f.lastAgent.Load().(string); !strings.HasPrefix(got, "Manifest-Generator") {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestDispatch_EmptyRunListFallsBack(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	d := newTestDispatcher(t, f, 0)

	handle, err := d.Dispatch(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if handle.Resolved() {
		t.Errorf("Resolved() = true, want fallback: %+v", handle)
	}
	if handle.RunID != 0 || handle.RunURL != "" || handle.Status != "" {
		t.Errorf("fallback handle carries run fields: %+v", handle)
	}
	if handle.WorkflowURL == "" || handle.URL() != handle.WorkflowURL {
		t.Errorf("fallback handle missing workflow URL: %+v", handle)
	}
	if n := f.listings.Load(); n != 1 {
		t.Errorf("listing calls = %d, want exactly 1", n)
	}
}

func TestDispatch_ListingFailureFallsBack(t *testing.T) {
	f := newFakeGitHub(t, accepted, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Server Error"}`, http.StatusInternalServerError)
	})
	d := newTestDispatcher(t, f, 0)

	handle, err := d.Dispatch(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Dispatch: %v, want fallback handle", err)
	}
	if handle.Resolved() {
		t.Errorf("Resolved() = true after failed listing")
	}
}

func TestDispatch_WaitsGracePeriod(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	const grace = 100 * time.Millisecond
	d := newTestDispatcher(t, f, grace)

	start := time.Now()
	if _, err := d.Dispatch(context.Background(), validRequest()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < grace {
		t.Errorf("Dispatch returned after %v, want at least %v", elapsed, grace)
	}
}

func TestDispatch_CancelDuringGraceFallsBack(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	d := newTestDispatcher(t, f, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	handle, err := d.Dispatch(ctx, validRequest())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if time.Since(start) > 30*time.Second {
		t.Error("Dispatch ignored context cancellation")
	}
	if handle.Resolved() {
		t.Error("Resolved() = true, want fallback")
	}
	if n := f.listings.Load(); n != 0 {
		t.Errorf("listing calls = %d, want 0 after cancellation", n)
	}
}

func TestDispatch_RejectedDispatch(t *testing.T) {
	const upstreamBody = `{"message":"Unexpected inputs provided: [\"foo\"]","documentation_url":"https://docs.github.com/rest"}`
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unprocessable", http.StatusUnprocessableEntity, upstreamBody},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`},
		{"ok is not accepted", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGitHub(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, runList(`{"total_count":0,"workflow_runs":[]}`))
			d := newTestDispatcher(t, f, 0)

			handle, err := d.Dispatch(context.Background(), validRequest())
			if handle != nil {
				t.Errorf("handle = %+v, want nil", handle)
			}
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("error = %v (%T), want *UpstreamError", err, err)
			}
			if upstream.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", upstream.StatusCode, tt.status)
			}
			if tt.body != "" && upstream.Body != tt.body {
				t.Errorf("Body = %q, want verbatim %q", upstream.Body, tt.body)
			}
			if n := f.dispatches.Load(); n != 1 {
				t.Errorf("dispatch calls = %d, want 1 (no retry)", n)
			}
			if n := f.listings.Load(); n != 0 {
				t.Errorf("listing calls = %d, want 0", n)
			}
		})
	}
}

func TestDispatch_TransportFailure(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{}`))
	d := newTestDispatcher(t, f, 0)
	f.Close()

	_, err := d.Dispatch(context.Background(), validRequest())
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error = %v (%T), want *TransportError", err, err)
	}
	if transport.Unwrap() == nil {
		t.Error("TransportError should wrap the underlying error")
	}
}

func TestDispatch_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		missing []string
	}{
		{"missing rom manifest", func(r *Request) { r.ManifestURL = "" }, []string{"romManifest"}},
		{"missing rom branch", func(r *Request) { r.ManifestBranch = "" }, []string{"romBranch"}},
		{"missing manifest text", func(r *Request) { r.ManifestText = "" }, []string{"manifestContent"}},
		{"all missing", func(r *Request) { *r = Request{} }, []string{"romManifest", "romBranch", "manifestContent"}},
		{"only remotes", func(r *Request) {
			r.ManifestText = manifest.Build(manifest.Document{
				Remotes: []manifest.Remote{{Name: "aosp", Fetch: "https://github.com/aosp/"}},
			})
		}, nil},
		{"only comments", func(r *Request) {
			r.ManifestText = `<manifest><!-- Projects --></manifest>`
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGitHub(t, accepted, runList(`{}`))
			d := newTestDispatcher(t, f, 0)

			req := validRequest()
			tt.mutate(&req)
			_, err := d.Dispatch(context.Background(), req)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v (%T), want *ValidationError", err, err)
			}
			if diff := cmp.Diff(tt.missing, ve.Missing); diff != "" {
				t.Errorf("Missing mismatch (-want +got):\n%s", diff)
			}
			if n := f.dispatches.Load() + f.listings.Load(); n != 0 {
				t.Errorf("made %d network calls, want 0", n)
			}
		})
	}
}

func TestDispatch_AcceptsBuilderOutput(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	d := newTestDispatcher(t, f, 0)

	text := manifest.Build(manifest.Document{
		Remotes:  []manifest.Remote{{Name: "aosp", Fetch: "https://github.com/aosp/"}},
		Projects: []manifest.Project{{Path: "device/x", Name: "device_x", Remote: "aosp", Branch: "main"}},
	})
	req := validRequest()
	req.ManifestText = text

	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch(builder output): %v", err)
	}
	if n := f.dispatches.Load(); n != 1 {
		t.Errorf("dispatch calls = %d, want 1", n)
	}
}

func TestDispatch_AcceptsCommentedOnlyBuilderOutput(t *testing.T) {
	f := newFakeGitHub(t, accepted, runList(`{"total_count":0,"workflow_runs":[]}`))
	d := newTestDispatcher(t, f, 0)

	req := validRequest()
	req.ManifestText = manifest.Build(manifest.Document{
		Projects: []manifest.Project{{Path: "device/x", Name: "device_x", Commented: true}},
	})

	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch(commented project): %v", err)
	}
	if n := f.dispatches.Load(); n != 1 {
		t.Errorf("dispatch calls = %d, want 1", n)
	}
	body, _ := f.lastBody.Load().(map[string]interface{})
	inputs, _ := body["inputs"].(map[string]interface{})
	if got := inputs["manifest_content"]; got != req.ManifestText {
		t.Errorf("manifest_content = %v, want the built text verbatim", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	d, err := New(Config{Repo: "octo/manifests", WorkflowFile: "test-manifest.yml"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := d.client.BaseURL.String(); got != "https://api.github.com/" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := d.WorkflowURL(); got != "https://github.com/octo/manifests/actions/workflows/test-manifest.yml" {
		t.Errorf("WorkflowURL() = %q", got)
	}
	if d.cfg.Ref != "main" {
		t.Errorf("Ref = %q, want main", d.cfg.Ref)
	}
}

func TestNew_BadAPIURL(t *testing.T) {
	if _, err := New(Config{APIURL: "://bad"}); err == nil {
		t.Error("New() with an unparsable API URL should fail")
	}
}

func TestWorkflow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/manifests/actions/workflows/test-manifest.yml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"Test Manifest","path":".github/workflows/test-manifest.yml","state":"active"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := New(Config{Repo: "octo/manifests", WorkflowFile: "test-manifest.yml", APIURL: srv.URL}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	name, state, err := d.Workflow(context.Background())
	if err != nil {
		t.Fatalf("Workflow: %v", err)
	}
	if name != "Test Manifest" || state != "active" {
		t.Errorf("Workflow() = %q, %q", name, state)
	}

	d.cfg.WorkflowFile = "missing.yml"
	if _, _, err := d.Workflow(context.Background()); err == nil {
		t.Error("expected error for a missing workflow")
	}
}
