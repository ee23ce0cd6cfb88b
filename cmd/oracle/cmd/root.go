// Package cmd provides the CLI commands for the oracle front-end, grounded
// on the teacher's cmd/amanmcp/cmd package (cobra root command, persistent
// flags, signal-driven exit codes).
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCmd builds the root oracle command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Hybrid lexical + semantic code search",
		Long: `oracle indexes a codebase into a hybrid BM25 + vector index and
answers questions against it by retrieving the most relevant chunks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newAskCmd())

	return cmd
}

// Execute runs the root command under a signal-aware context and returns the
// process exit code per spec §6: 0 success, 1 fatal error, 130
// user-interrupt, 143 termination signal.
func Execute() int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received os.Signal
	done := make(chan struct{})
	go func() {
		select {
		case s := <-sigCh:
			received = s
			cancel()
		case <-done:
		}
	}()

	err := NewRootCmd().ExecuteContext(ctx)
	close(done)

	if err == nil {
		return 0
	}

	switch received {
	case syscall.SIGTERM:
		return 143
	case os.Interrupt:
		return 130
	}

	fmt.Fprintln(os.Stderr, "oracle:", err)
	return 1
}
