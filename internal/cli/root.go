// Package cli implements the booknotes command-line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"booknotes/internal/platform/booksapi"
)

const defaultServer = "http://localhost:8080"

type app struct {
	server string
	client *booksapi.Client
}

// NewRootCmd builds the booknotes command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "booknotes",
		Short:         "Track the books you read",
		Long:          `Add, search, edit and tag the books in a booknotes server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.client = booksapi.NewClient(a.server)
		},
	}

	server := os.Getenv("BOOKNOTES_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&a.server, "server", server, "booknotes server URL (env BOOKNOTES_SERVER)")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.showCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.tagCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var apiErr *booksapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		fmt.Fprintf(w, "✗ %s\n", apiErr.Message)
		for _, d := range apiErr.Details {
			fmt.Fprintf(w, "  %s: %s\n", d.Field, d.Message)
		}
		return
	}
	fmt.Fprintf(w, "✗ %v\n", err)
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", raw)
	}
	return id, nil
}
