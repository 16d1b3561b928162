package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/nao1215/addrcluster/internal/log"
)

// NewRootCmd creates the root command for addrcluster.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addrcluster",
		Short: "Cluster Bitcoin addresses by common input ownership",
		Long: `addrcluster reads flattened transaction records and groups addresses that
appear together as inputs of one transaction into clusters. It writes the
cluster listing (UserMap), the address lookup table (KeyMap) and the
cluster-to-cluster transaction graph.

Every run is stored in a local history database so that clusters of past
runs can be looked up and compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewClusterCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getPersistentBool retrieves a boolean flag from the command or the root.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// newLogger creates the masking logger, as text or as JSON lines.
func newLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return applog.NewSecureJSONLogger(w, verbose)
	}
	return applog.NewSecureLogger(w, verbose)
}

// setupLogger creates the masking logger on stderr and installs it as default.
func setupLogger(verbose, jsonLogs bool) *slog.Logger {
	logger := newLogger(os.Stderr, verbose, jsonLogs)
	slog.SetDefault(logger)
	return logger
}
