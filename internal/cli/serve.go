package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/manifestgen/manifestgen/internal/config"
	"github.com/manifestgen/manifestgen/internal/server"
	"github.com/manifestgen/manifestgen/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	listen string
	file   string
	output string
}

var serveOpts serveOptions

func init() {
	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "", "Address to listen on (default from config, :8080)")
	serveCmd.Flags().StringVarP(&serveOpts.file, "file", "f", "", "Also keep this document description rebuilt")
	serveCmd.Flags().StringVarP(&serveOpts.output, "output", "o", "", "Manifest file rebuilt from --file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the test trigger endpoint",
	Long: `Serve POST /api/trigger-test for browser clients.

The endpoint accepts {"romManifest", "romBranch", "manifestContent"} and
answers with the run started on GitHub Actions. With --file and --output the
manifest is also rebuilt whenever the document description changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cmd.ErrOrStderr(), config.Current(), serveOpts)
	},
}

func runServe(ctx context.Context, w io.Writer, s config.Settings, opts serveOptions) error {
	if (opts.file == "") != (opts.output == "") {
		return errors.New("--file and --output must be given together")
	}

	listen := opts.listen
	if listen == "" {
		listen = s.Listen
	}

	d, err := newDispatcher(s)
	if err != nil {
		return err
	}
	srv := server.New(d, server.WithLogger(logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, listen)
	})
	if opts.file != "" {
		r := watch.New(opts.file, opts.output,
			watch.WithLogger(logger),
			watch.WithNotify(func(res watch.Result) { printRebuild(w, opts.output, res) }),
		)
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	fmt.Fprintf(w, "%s listening on %s\n", branding.DisplayName(), listen)
	return g.Wait()
}
