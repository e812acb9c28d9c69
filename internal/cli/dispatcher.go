package cli

import (
	"net/http"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/manifestgen/manifestgen/internal/config"
	"github.com/manifestgen/manifestgen/internal/dispatch"
	"go.uber.org/zap"
)

// newDispatcher builds a dispatcher from the loaded settings. Missing
// credentials are only logged; GitHub reports them when the dispatch is sent.
func newDispatcher(s config.Settings) (*dispatch.Dispatcher, error) {
	if s.GitHubRepo == "" || s.GitHubToken == "" {
		logger.Warn("GitHub repository or token not configured",
			zap.Bool("repo_set", s.GitHubRepo != ""),
			zap.Bool("token_set", s.GitHubToken != ""),
		)
	}
	return dispatch.New(dispatch.Config{
		Repo:         s.GitHubRepo,
		Token:        s.GitHubToken,
		WorkflowFile: s.WorkflowFile,
		Ref:          s.WorkflowRef,
		GracePeriod:  s.GracePeriod,
		APIURL:       s.APIURL,
		WebURL:       s.WebURL,
		UserAgent:    branding.UserAgent(),
	},
		dispatch.WithHTTPClient(&http.Client{Timeout: s.Timeout}),
		dispatch.WithLogger(logger),
	)
}
