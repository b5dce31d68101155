package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ballotledger/internal/election"
	"ballotledger/internal/election/seed"
	"ballotledger/internal/election/service"
	"ballotledger/internal/platform/config"
	"ballotledger/internal/platform/logger"
	auditpublisher "ballotledger/pkg/platform/audit/publisher"
)

var rootCmd = &cobra.Command{
	Use:   "ballotctl",
	Short: "Operate a ballotledger election store",
	Long: "ballotctl talks to the storage backend configured through BALLOT_* " +
		"environment variables. With the memory backend every invocation starts empty.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmdInit, cmdSeed, cmdStatus, cmdResults, cmdToken)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// env holds what a subcommand needs to reach the election.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	service *election.Service
	audit   eventLister
	close   func()
}

func openEnv(ctx context.Context, c *cobra.Command) (*env, error) {
	cfg, err := config.Environment()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(c.ErrOrStderr(), cfg.Log.Level, "text")

	backend, err := election.OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	publisher := auditpublisher.NewPublisher(backend.Audit, auditpublisher.WithLogger(log))
	svc := election.NewService(backend.Election,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
	)
	return &env{
		cfg:     cfg,
		log:     log,
		service: svc,
		audit:   publisher,
		close: func() {
			publisher.Close()
			if err := backend.Close(); err != nil {
				log.Error("failed to close storage", "error", err)
			}
		},
	}, nil
}

func loadSeedNames(path string, useDefault bool) ([]string, error) {
	switch {
	case path != "":
		f, err := seed.Load(path)
		if err != nil {
			return nil, err
		}
		return f.Names(), nil
	case useDefault:
		return seed.Default().Names(), nil
	default:
		return nil, nil
	}
}

func dumpJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
