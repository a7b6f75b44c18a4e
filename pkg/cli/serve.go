package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/intake-lab/prosecoach/pkg/cli/config"
	httpctrl "github.com/intake-lab/prosecoach/pkg/controller/http"
	"github.com/intake-lab/prosecoach/pkg/usecase"
	"github.com/intake-lab/prosecoach/pkg/utils/logging"
)

const shutdownTimeout = 30 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var llmTimeout time.Duration
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var slackCfg config.Slack
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("PROSECOACH_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for each LLM call before falling back to deterministic coaching",
			Value:       60 * time.Second,
			Category:    "LLM",
			Sources:     cli.EnvVars("PROSECOACH_LLM_TIMEOUT"),
			Destination: &llmTimeout,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if err := sentryCfg.Configure(c.Root().Version); err != nil {
				return err
			}

			intakeCfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load intake configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}
			if llmClient == nil {
				logger.Warn("Gemini not configured, coaching runs in deterministic fallback mode")
			}

			ucOpts := []usecase.Option{
				usecase.WithIntakeConfig(intakeCfg),
				usecase.WithLLMTimeout(llmTimeout),
			}
			if llmClient != nil {
				ucOpts = append(ucOpts, usecase.WithLLMClient(llmClient))
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Slack notifier")
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
				logger.Info("Slack urgent safety alerts enabled")
			}

			uc := usecase.New(repo, ucOpts...)
			server := httpctrl.New(uc)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "HTTP server failed")
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Shutting down", "signal", sig.String())
			case <-ctx.Done():
				logger.Info("Shutting down", "reason", "context canceled")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down HTTP server")
			}
			return nil
		},
	}
}
