package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatch validates req, triggers the workflow and resolves the run it
// started. Once the dispatch has been accepted the call succeeds: a failed or
// empty run lookup, or a context cancelled during the grace wait, yields a
// handle carrying only the workflow URL.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*RunHandle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := d.logger.With(
		zap.String("dispatch_id", uuid.NewString()),
		zap.String("repo", d.cfg.Repo),
		zap.String("workflow", d.cfg.WorkflowFile),
	)

	event := github.CreateWorkflowDispatchEventRequest{
		Ref: d.cfg.Ref,
		Inputs: map[string]interface{}{
			inputManifest: req.ManifestURL,
			inputBranch:   req.ManifestBranch,
			inputContent:  req.ManifestText,
		},
	}
	resp, err := d.client.Actions.CreateWorkflowDispatchEventByFileName(ctx, d.owner, d.repo, d.cfg.WorkflowFile, event)
	if resp != nil && resp.Response != nil && resp.StatusCode != http.StatusNoContent {
		upstream := &UpstreamError{StatusCode: resp.StatusCode, Body: readBody(resp.Response)}
		log.Warn("workflow dispatch rejected", zap.Int("status", resp.StatusCode))
		return nil, upstream
	}
	if err != nil {
		log.Warn("workflow dispatch failed", zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	log.Info("workflow dispatched", zap.String("rom_manifest", req.ManifestURL), zap.String("rom_branch", req.ManifestBranch))

	handle := &RunHandle{WorkflowURL: d.WorkflowURL()}

	if err := wait(ctx, d.cfg.GracePeriod); err != nil {
		log.Info("grace wait interrupted; run not resolved", zap.Error(err))
		return handle, nil
	}

	opts := &github.ListWorkflowRunsOptions{ListOptions: github.ListOptions{PerPage: 1}}
	runs, _, err := d.client.Actions.ListWorkflowRunsByFileName(ctx, d.owner, d.repo, d.cfg.WorkflowFile, opts)
	if err != nil {
		log.Warn("listing workflow runs failed; run not resolved", zap.Error(err))
		return handle, nil
	}
	if len(runs.WorkflowRuns) == 0 {
		log.Info("no workflow runs listed yet")
		return handle, nil
	}

	run := runs.WorkflowRuns[0]
	handle.RunID = run.GetID()
	handle.RunURL = run.GetHTMLURL()
	handle.Status = run.GetStatus()
	log.Info("workflow run resolved", zap.Int64("run_id", handle.RunID), zap.String("status", handle.Status))
	return handle, nil
}

// Workflow fetches the configured workflow and reports its name and state
// ("active", "disabled_manually", ...). It checks that the repository,
// token and workflow file line up without dispatching anything.
func (d *Dispatcher) Workflow(ctx context.Context) (name, state string, err error) {
	wf, _, err := d.client.Actions.GetWorkflowByFileName(ctx, d.owner, d.repo, d.cfg.WorkflowFile)
	if err != nil {
		return "", "", fmt.Errorf("fetching workflow %s: %w", d.cfg.WorkflowFile, err)
	}
	return wf.GetName(), wf.GetState(), nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// readBody returns what is left of a response body. go-github restores the
// body of error responses after decoding them.
func readBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(data)
}
