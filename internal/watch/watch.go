// Package watch rebuilds a manifest whenever its document description
// changes on disk.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/manifestgen/manifestgen/internal/manifest"
	"github.com/manifestgen/manifestgen/internal/platform"
)

const defaultDebounce = 200 * time.Millisecond

// Result describes one rebuild.
type Result struct {
	// Written is false when the output already had the built text.
	Written  bool
	Warnings []manifest.ValidationIssue
	Err      error
}

// Rebuilder writes the manifest built from one document file to an output
// file.
type Rebuilder struct {
	source   string
	output   string
	debounce time.Duration
	logger   *zap.Logger
	notify   func(Result)
}

// Option configures a Rebuilder.
type Option func(*Rebuilder)

// WithDebounce sets how long the source must stay quiet before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(r *Rebuilder) {
		r.debounce = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Rebuilder) {
		r.logger = l
	}
}

// WithNotify registers a callback run after every rebuild, on the watch
// goroutine.
func WithNotify(fn func(Result)) Option {
	return func(r *Rebuilder) {
		r.notify = fn
	}
}

// New creates a Rebuilder from source to output.
func New(source, output string, opts ...Option) *Rebuilder {
	r := &Rebuilder{
		source:   filepath.Clean(source),
		output:   filepath.Clean(output),
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rebuild builds the source once and writes the output if it changed. An
// invalid source leaves the previous output in place.
func (r *Rebuilder) Rebuild() Result {
	text, result, err := manifest.BuildFile(r.source)
	var res Result
	if result != nil {
		res.Warnings = result.Warnings
	}
	if err != nil {
		res.Err = err
		return res
	}

	if current, err := os.ReadFile(r.output); err == nil && bytes.Equal(current, []byte(text)) {
		return res
	}
	if err := platform.WriteFileAtomic(r.output, []byte(text), 0644); err != nil {
		res.Err = err
		return res
	}
	res.Written = true
	return res
}

// Run rebuilds once, then again after every change to the source, until ctx
// is done. The source's directory is watched so editors that save by
// renaming a temp file over the original are picked up.
func (r *Rebuilder) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.source)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	r.logger.Info("watching document", zap.String("source", r.source), zap.String("output", r.output))

	r.report(r.Rebuild())

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.source {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			r.logger.Debug("source changed", zap.String("op", event.Op.String()))
			pending = time.After(r.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watch error", zap.Error(err))

		case <-pending:
			pending = nil
			r.report(r.Rebuild())
		}
	}
}

func (r *Rebuilder) report(res Result) {
	switch {
	case res.Err != nil:
		r.logger.Warn("rebuild failed", zap.Error(res.Err))
	case res.Written:
		r.logger.Info("manifest rebuilt", zap.String("output", r.output), zap.Int("warnings", len(res.Warnings)))
	default:
		r.logger.Debug("manifest unchanged")
	}
	if r.notify != nil {
		r.notify(res)
	}
}
