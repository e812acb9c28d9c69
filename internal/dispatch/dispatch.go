package dispatch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"go.uber.org/zap"

	"github.com/manifestgen/manifestgen/internal/manifest"
)

// Workflow input names understood by the test workflow.
const (
	inputManifest = "rom_manifest"
	inputBranch   = "rom_branch"
	inputContent  = "manifest_content"
)

// Config identifies the workflow to trigger and how to reach it.
type Config struct {
	// Repo is the "owner/name" repository hosting the workflow.
	Repo  string
	Token string
	// WorkflowFile is the workflow's file name, e.g. "test-manifest.yml".
	WorkflowFile string
	// Ref is the branch or tag the workflow runs on.
	Ref         string
	GracePeriod time.Duration
	// APIURL and WebURL default to api.github.com and github.com.
	APIURL    string
	WebURL    string
	UserAgent string
}

// Request is one manifest to test against a base ROM manifest.
type Request struct {
	ManifestURL    string `json:"romManifest"`
	ManifestBranch string `json:"romBranch"`
	ManifestText   string `json:"manifestContent"`
}

// Validate checks that every field is set and that the manifest has at least
// one project or remove-project element.
func (r Request) Validate() error {
	var missing []string
	if r.ManifestURL == "" {
		missing = append(missing, "romManifest")
	}
	if r.ManifestBranch == "" {
		missing = append(missing, "romBranch")
	}
	if r.ManifestText == "" {
		missing = append(missing, "manifestContent")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	if !manifest.HasTestableContent(r.ManifestText) {
		return &ValidationError{Reason: "manifest has no project or remove-project entries to test"}
	}
	return nil
}

// RunHandle is the outcome of a successful dispatch. WorkflowURL is always
// set; the run fields are empty when the run could not be resolved.
type RunHandle struct {
	RunID       int64  `json:"runId,omitempty"`
	RunURL      string `json:"runUrl,omitempty"`
	Status      string `json:"status,omitempty"`
	WorkflowURL string `json:"workflowUrl"`
}

// Resolved reports whether a specific run was identified.
func (h *RunHandle) Resolved() bool {
	return h.RunID != 0
}

// URL returns the most specific link available.
func (h *RunHandle) URL() string {
	if h.RunURL != "" {
		return h.RunURL
	}
	return h.WorkflowURL
}

// Dispatcher triggers the test workflow. It holds no per-call state and is
// safe for concurrent use.
type Dispatcher struct {
	cfg         Config
	owner, repo string
	client      *github.Client
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a Dispatcher. Missing credentials are not an error here; GitHub
// rejects the dispatch instead.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com/"
	}
	if cfg.WebURL == "" {
		cfg.WebURL = "https://github.com/"
	}
	if cfg.Ref == "" {
		cfg.Ref = "main"
	}

	d := &Dispatcher{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.owner, d.repo, _ = strings.Cut(cfg.Repo, "/")

	base, err := url.Parse(withSlash(cfg.APIURL))
	if err != nil {
		return nil, fmt.Errorf("parsing API URL %q: %w", cfg.APIURL, err)
	}
	client := github.NewClient(d.httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	client.BaseURL = base
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	d.client = client

	return d, nil
}

// WorkflowURL returns the web page listing the workflow's runs.
func (d *Dispatcher) WorkflowURL() string {
	return fmt.Sprintf("%s%s/actions/workflows/%s", withSlash(d.cfg.WebURL), d.cfg.Repo, d.cfg.WorkflowFile)
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
