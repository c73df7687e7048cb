package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagemill/pagemill/internal/cli"
	"github.com/pagemill/pagemill/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "pagemill",
		Short: "Pagemill CLI - Ask questions against your PDF library",
		Long: `Pagemill CLI talks to a running pagemill server.

Environment variables:
  PAGEMILL_API_TOKEN   Bearer token for authentication (optional)
  PAGEMILL_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "Bearer token for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.DocsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
