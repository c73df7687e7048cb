package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagemill/pagemill/internal/cli"
	"github.com/pagemill/pagemill/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pagemilld",
		Short: "Pagemill daemon and admin CLI",
		Long:  "Pagemill daemon for running the API server, ingesting PDFs and managing the database",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
